package live

import (
	"github.com/spf13/cobra"

	"github.com/mpapenbr/livetiming-feed-go/log"
	"github.com/mpapenbr/livetiming-feed-go/pkg/cmd/feed"
	"github.com/mpapenbr/livetiming-feed-go/pkg/config"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/endpoint"
	"github.com/mpapenbr/livetiming-feed-go/pkg/supervisor"
)

func NewLiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "decodes the live timing stream of the current session",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return feed.SetupLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd)
		},
	}
	cmd.Flags().StringVar(&config.RecordDir,
		"record-dir",
		"",
		"records keyframes and stream into this directory")
	feed.AddSupervisorFlags(cmd)
	feed.AddOutputFlags(cmd)
	return cmd
}

func runLive(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if err := feed.WaitForServices(ctx); err != nil {
		return err
	}
	keys, err := feed.KeyProvider(ctx)
	if err != nil {
		return err
	}
	var ep endpoint.Endpoint = endpoint.NewLive(config.KeyframeURL, config.StreamAddr)
	if config.RecordDir != "" {
		log.Info("Recording feed", log.String("dir", config.RecordDir))
		if ep, err = endpoint.NewRecording(ep, config.RecordDir); err != nil {
			return err
		}
	}
	return feed.Run(ctx, feed.Setup{
		Endpoint:    ep,
		KeyProvider: keys,
		Options:     []supervisor.Option{supervisor.WithTelemetry("live")},
	})
}
