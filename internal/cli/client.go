package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"abc-inventory-monitor/internal/config"
	"abc-inventory-monitor/internal/model"
)

// NewClientCommand creates the client command group.
func NewClientCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage clients in the local store",
	}

	cmd.AddCommand(newClientAddCommand())
	cmd.AddCommand(newClientListCommand())
	cmd.AddCommand(newClientTrackCommand())

	return cmd
}

func newClientAddCommand() *cobra.Command {
	var email string
	var phones []string

	cmd := &cobra.Command{
		Use:   "add <client-id>",
		Short: "Add a client with default preferences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad()
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			scrubbed := make([]string, 0, len(phones))
			for _, n := range phones {
				if s := model.ScrubPhoneNumber(n); s != "" {
					scrubbed = append(scrubbed, s)
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := store.AddClient(ctx, args[0], email, scrubbed); err != nil {
				return fmt.Errorf("failed to add client: %w", err)
			}
			fmt.Printf("added client %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "client email address")
	cmd.Flags().StringSliceVar(&phones, "phone", nil, "client phone number (repeatable)")

	return cmd
}

func newClientListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List clients and their tracked items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad()
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			ids, err := store.ClientIDs(ctx)
			if err != nil {
				return fmt.Errorf("failed to list clients: %w", err)
			}

			for _, id := range ids {
				client, err := store.GetClient(ctx, id)
				if err != nil {
					fmt.Printf("%s: failed to load: %v\n", id, err)
					continue
				}
				tracked := make([]string, 0, len(client.Tracked))
				for _, a := range client.Tracked {
					if a.Tracking {
						tracked = append(tracked, a.Code)
					}
				}
				fmt.Printf("%s  email=%s  phones=%d  paid=%t  sent=%d  tracking=[%s]\n",
					client.ID, client.Email, len(client.PhoneNumbers),
					client.HasPaid, client.UpdatesSent, strings.Join(tracked, " "))
			}
			fmt.Printf("%d clients\n", len(ids))
			return nil
		},
	}
}

func newClientTrackCommand() *cobra.Command {
	var stop bool

	cmd := &cobra.Command{
		Use:   "track <client-id> <item-code>",
		Short: "Start or stop tracking an item for a client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoad()
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := store.AddTrackAssociation(ctx, args[0], args[1], !stop); err != nil {
				return fmt.Errorf("failed to update association: %w", err)
			}
			if stop {
				fmt.Printf("client %s stopped tracking %s\n", args[0], args[1])
			} else {
				fmt.Printf("client %s now tracking %s\n", args[0], args[1])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stop, "stop", false, "stop tracking instead of starting")

	return cmd
}
