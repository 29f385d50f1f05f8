/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	archiveCmd "github.com/mpapenbr/livetiming-feed-go/pkg/cmd/archive"
	checkCmd "github.com/mpapenbr/livetiming-feed-go/pkg/cmd/check"
	liveCmd "github.com/mpapenbr/livetiming-feed-go/pkg/cmd/live"
	replayCmd "github.com/mpapenbr/livetiming-feed-go/pkg/cmd/replay"
	"github.com/mpapenbr/livetiming-feed-go/pkg/config"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/endpoint"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/keyserver"
	"github.com/mpapenbr/livetiming-feed-go/version"
)

const envPrefix = "LTF"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "ltf",
	Short:   "Live timing feed client",
	Long:    ``,
	Version: version.FullVersion,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.ltf.yml)")

	rootCmd.PersistentFlags().StringVar(&config.KeyframeURL, "keyframe-url",
		endpoint.DefaultKeyframeURL,
		"base URL of the keyframe files")
	rootCmd.PersistentFlags().StringVar(&config.StreamAddr, "stream-addr",
		endpoint.DefaultStreamAddr,
		"host:port of the live stream")
	rootCmd.PersistentFlags().StringVar(&config.KeyServerURL, "keyserver-url",
		keyserver.DefaultURL,
		"base URL of the session key server")
	rootCmd.PersistentFlags().StringVar(&config.LoginURL, "login-url",
		keyserver.DefaultLoginURL,
		"URL of the login form")
	rootCmd.PersistentFlags().StringVar(&config.User, "user", "",
		"email used for login")
	rootCmd.PersistentFlags().StringVar(&config.Password, "password", "",
		"password used for login")
	rootCmd.PersistentFlags().StringVar(&config.AuthToken, "auth-token", "",
		"user credential from a previous login")
	rootCmd.PersistentFlags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"15s",
		"Duration to wait for other services to be ready (0 skips the check)")

	// add commands here
	rootCmd.AddCommand(liveCmd.NewLiveCmd())
	rootCmd.AddCommand(archiveCmd.NewArchiveCmd())
	rootCmd.AddCommand(replayCmd.NewReplayCmd())
	rootCmd.AddCommand(checkCmd.NewCheckCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".ltf" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ltf")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --keyframe-url to LTF_KEYFRAME_URL
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper config value to the flag when the flag is not set and viper
		// has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}
