package replay

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/livetiming-feed-go/pkg/cmd/feed"
	"github.com/mpapenbr/livetiming-feed-go/pkg/config"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/endpoint"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/keyserver"
	"github.com/mpapenbr/livetiming-feed-go/pkg/processing/decoder"
	"github.com/mpapenbr/livetiming-feed-go/pkg/supervisor"
)

var (
	follow bool
	key    string
)

func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <dir>",
		Short: "decodes a recorded session directory",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return feed.SetupLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args[0])
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false,
		"keep reading the stream file while it grows")
	cmd.Flags().StringVar(&key, "key", "",
		"session key as hex digits, skips the key server")
	feed.AddSupervisorFlags(cmd)
	feed.AddOutputFlags(cmd)
	return cmd
}

func runReplay(cmd *cobra.Command, dir string) error {
	ctx := cmd.Context()
	ep, err := endpoint.NewRecorded(dir, endpoint.WithFollow(follow))
	if err != nil {
		return err
	}
	keys, err := replayKeys(cmd)
	if err != nil {
		return err
	}
	return feed.Run(ctx, feed.Setup{
		Endpoint:    ep,
		KeyProvider: keys,
		Options: []supervisor.Option{
			supervisor.WithArchive(!follow),
			supervisor.WithTelemetry("replay"),
		},
	})
}

func replayKeys(cmd *cobra.Command) (decoder.SessionKeyProvider, error) {
	if key != "" {
		k, err := keyserver.ParseKey(key)
		if err != nil {
			return nil, fmt.Errorf("invalid --key: %w", err)
		}
		return keyserver.StaticKey(k), nil
	}
	if config.AuthToken == "" && config.User == "" {
		// recordings of unencrypted sessions need no key
		return nil, nil //nolint:nilnil // no provider keeps the current key
	}
	return feed.KeyProvider(cmd.Context())
}
