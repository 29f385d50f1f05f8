package check

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/livetiming-feed-go/log"
	"github.com/mpapenbr/livetiming-feed-go/pkg/cmd/feed"
	"github.com/mpapenbr/livetiming-feed-go/pkg/config"
	"github.com/mpapenbr/livetiming-feed-go/pkg/livetiming/endpoint"
)

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "checks that the live timing servers are reachable",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return feed.SetupLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd)
		},
	}
	feed.AddOutputFlags(cmd)
	return cmd
}

func runCheck(cmd *cobra.Command) error {
	ctx := cmd.Context()
	start := time.Now()
	if err := feed.WaitForServices(ctx); err != nil {
		return err
	}
	rc, err := endpoint.NewLive(config.KeyframeURL, config.StreamAddr).OpenKeyframe(ctx, 0)
	if err != nil {
		return fmt.Errorf("current keyframe: %w", err)
	}
	rc.Close()
	if config.AuthToken != "" || config.User != "" {
		keys, err := feed.KeyProvider(ctx)
		if err != nil {
			return err
		}
		log.Debug("credentials available", log.String("provider", fmt.Sprintf("%T", keys)))
	}
	log.Info("live timing servers are reachable", log.Since("duration", start))
	return nil
}
