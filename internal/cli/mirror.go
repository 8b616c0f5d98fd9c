package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"abc-inventory-monitor/internal/config"
	"abc-inventory-monitor/internal/mirror"
)

// NewMirrorCommand creates the mirror command group.
func NewMirrorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Sync preference documents with the remote store",
	}

	cmd.AddCommand(newMirrorPullCommand())
	cmd.AddCommand(newMirrorPushCommand())

	return cmd
}

func withSyncer(fn func(ctx context.Context, s *mirror.Syncer) error) error {
	cfg := config.MustLoad()
	if cfg.Mongo.URI == "" {
		return fmt.Errorf("MONGODB_URI is not configured")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := openMirror(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	return fn(ctx, mirror.NewSyncer(m, store))
}

func newMirrorPullCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull remote preference documents into the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncer(func(ctx context.Context, s *mirror.Syncer) error {
				if err := s.SyncAll(ctx); err != nil {
					return fmt.Errorf("pull failed: %w", err)
				}
				fmt.Println("pull complete")
				return nil
			})
		},
	}
}

func newMirrorPushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push local client state up as preference documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncer(func(ctx context.Context, s *mirror.Syncer) error {
				if err := s.PushAll(ctx); err != nil {
					return fmt.Errorf("push failed: %w", err)
				}
				fmt.Println("push complete")
				return nil
			})
		},
	}
}
