package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/app"
	"github.com/roach88/bistro/internal/bus"
	"github.com/roach88/bistro/internal/notify"
)

type notificationsView []api.Notification

func (v notificationsView) WriteText(w io.Writer) error {
	if len(v) == 0 {
		_, err := fmt.Fprintln(w, "No notifications.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tRECEIVED\tTITLE\tMESSAGE")
	for _, n := range v {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.ID, formatTime(n.CreatedAt), n.Title, n.Message)
	}
	return tw.Flush()
}

type countView struct {
	Count int `json:"count"`
}

func (v countView) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, v.Count)
	return err
}

// alertView is one notification surfaced while watching.
type alertView api.Notification

func (v alertView) WriteText(w io.Writer) error {
	n := api.Notification(v)
	if n.Title != "" && n.Message != "" {
		_, err := fmt.Fprintf(w, "[%s] %s: %s\n", formatTime(n.CreatedAt), n.Title, n.Message)
		return err
	}
	_, err := fmt.Fprintf(w, "[%s] %s\n", formatTime(n.CreatedAt), n.Label())
	return err
}

// NewNotificationsCommand creates the notifications command group.
func NewNotificationsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Read and manage notifications",
	}
	cmd.AddCommand(newNotificationsListCommand(opts))
	cmd.AddCommand(newNotificationsCountCommand(opts))
	cmd.AddCommand(newNotificationsDeleteCommand(opts))
	cmd.AddCommand(newNotificationsClearCommand(opts))
	cmd.AddCommand(newNotificationsWatchCommand(opts))
	return cmd
}

func newNotificationsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				if err := a.Notifications.Fetch(ctx); err != nil {
					return err
				}
				return out.Success(notificationsView(a.Notifications.Notifications()))
			})
		},
	}
}

func newNotificationsCountCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the unread notification count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				if err := a.Notifications.FetchCount(ctx); err != nil {
					return err
				}
				return out.Success(countView{Count: a.Notifications.Count()})
			})
		},
	}
}

func newNotificationsDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <notification-id>",
		Short: "Delete one notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				if err := a.Notifications.DeleteOne(ctx, args[0]); err != nil {
					return err
				}
				return out.Success(say("Deleted notification %s.", args[0]))
			})
		},
	}
}

func newNotificationsClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				if err := a.Notifications.ClearAll(ctx); err != nil {
					return err
				}
				return out.Success(say("Notifications cleared."))
			})
		},
	}
}

func newNotificationsWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll for notifications and print new ones as they arrive",
		Long: `Poll for notifications and print each new one as it arrives. Notifications
that already exist when watching starts are not printed. Stops on Ctrl-C or
when the session ends.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			alerter := notify.AlerterFunc(func(n api.Notification) {
				_ = alerts.Success(alertView(n))
			})

			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()

				a.Bus.Subscribe(a.Poller.HandleEvent)
				a.Bus.Subscribe(func(_ context.Context, e bus.Event) error {
					if e.Kind == bus.Unauthenticated {
						cancel()
					}
					return nil
				})

				fmt.Fprintf(out.GetErrWriter(), "Watching notifications every %s. Press Ctrl-C to stop.\n", a.Poller.Interval())
				a.Poller.Start(ctx)
				<-ctx.Done()
				a.Poller.Stop()
				return nil
			}, withAppOptions(func(o *app.Options) {
				o.Alerter = alerter
			}))
		},
	}
}
