package archive

import (
	"github.com/spf13/cobra"

	"github.com/mpapenbr/livetiming-feed-go/pkg/cmd/feed"
	"github.com/mpapenbr/livetiming-feed-go/pkg/config"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/endpoint"
	"github.com/mpapenbr/livetiming-feed-go/pkg/supervisor"
)

func NewArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "loads the archived keyframe of the last session",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return feed.SetupLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			keys, err := feed.KeyProvider(ctx)
			if err != nil {
				return err
			}
			return feed.Run(ctx, feed.Setup{
				Endpoint:    endpoint.NewLive(config.KeyframeURL, config.StreamAddr),
				KeyProvider: keys,
				Options: []supervisor.Option{
					supervisor.WithArchive(true),
					supervisor.WithKeyframeOnly(true),
					supervisor.WithTelemetry("archive"),
				},
			})
		},
	}
	feed.AddOutputFlags(cmd)
	return cmd
}
