package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/app"
	"github.com/roach88/bistro/internal/forms"
	"github.com/roach88/bistro/internal/menu"
)

var allStatuses = []api.Status{
	api.StatusPending,
	api.StatusAccepted,
	api.StatusInProgress,
	api.StatusDelivered,
	api.StatusRejected,
}

// parseStatus accepts a status name in any case, with "-" or "_" for spaces.
func parseStatus(s string) (api.Status, error) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(s))
	for _, st := range allStatuses {
		if strings.EqualFold(string(st), norm) {
			return st, nil
		}
	}
	return "", invalidInput(fmt.Sprintf("unknown status %q: must be one of %v", s, allStatuses))
}

func transitionError(kind, id string, from, to api.Status) error {
	next := from.NextStatuses()
	if len(next) == 0 {
		return NewExitError(ExitFailure, CodeRequestFailed, fmt.Sprintf("%s %s is %s and can no longer change", kind, id, from))
	}
	return NewExitError(ExitFailure, CodeRequestFailed,
		fmt.Sprintf("%s %s cannot move from %s to %s; allowed: %v", kind, id, from, to, next))
}

type usersView []api.User

func (v usersView) WriteText(w io.Writer) error {
	if len(v) == 0 {
		_, err := fmt.Fprintln(w, "No users.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tROLE")
	for _, u := range v {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Phone, u.Role)
	}
	return tw.Flush()
}

type importView struct {
	DryRun  bool           `json:"dryRun"`
	Created []api.MenuItem `json:"created"`
	Skipped []string       `json:"skipped"`
	Failed  []importFailed `json:"failed"`
}

type importFailed struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func newImportView(res *menu.Result, dryRun bool) importView {
	v := importView{DryRun: dryRun, Created: res.Created, Skipped: res.Skipped, Failed: []importFailed{}}
	if v.Created == nil {
		v.Created = []api.MenuItem{}
	}
	if v.Skipped == nil {
		v.Skipped = []string{}
	}
	for _, f := range res.Failed {
		v.Failed = append(v.Failed, importFailed{Name: f.Name, Message: f.Message})
	}
	return v
}

func (v importView) WriteText(w io.Writer) error {
	verb := "Created"
	if v.DryRun {
		verb = "Would create"
	}
	for _, item := range v.Created {
		fmt.Fprintf(w, "%s %s (%s, %s)\n", verb, item.Name, item.Category, formatPrice(item.Price))
	}
	for _, name := range v.Skipped {
		fmt.Fprintf(w, "Skipped %s (already on the menu)\n", name)
	}
	for _, f := range v.Failed {
		fmt.Fprintf(w, "Failed %s: %s\n", f.Name, f.Message)
	}
	_, err := fmt.Fprintf(w, "%d created, %d skipped, %d failed\n", len(v.Created), len(v.Skipped), len(v.Failed))
	return err
}

// NewAdminCommand creates the admin command group. Every subcommand refuses
// to run without an admin session.
func NewAdminCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage users, orders, bookings and the menu (admin accounts)",
	}
	cmd.AddCommand(newAdminUsersCommand(opts))
	cmd.AddCommand(newAdminOrdersCommand(opts))
	cmd.AddCommand(newAdminBookingsCommand(opts))
	cmd.AddCommand(newAdminMenuCommand(opts))
	return cmd
}

// withAdmin runs fn with an admin session.
func withAdmin(cmd *cobra.Command, opts *RootOptions, fn commandFunc, runOpts ...runOption) error {
	return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
		if err := requireAdmin(a); err != nil {
			return err
		}
		return fn(ctx, a, out)
	}, runOpts...)
}

func newAdminUsersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				users, err := a.Client.ListUsers(ctx)
				if err != nil {
					return err
				}
				return out.Success(usersView(users))
			})
		},
	}
}

func newAdminOrdersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Review and progress every order",
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List every order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter api.Status
			if status != "" {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				filter = st
			}
			return withAdmin(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				orders, err := a.Client.ListOrders(ctx)
				if err != nil {
					return err
				}
				if filter != "" {
					kept := orders[:0]
					for _, o := range orders {
						if o.Status == filter {
							kept = append(kept, o)
						}
					}
					orders = kept
				}
				return out.Success(ordersView(orders))
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "only show orders in this status")

	set := &cobra.Command{
		Use:   "status <order-id> <status>",
		Short: "Move an order to its next status",
		Long: `Move an order to its next status. Pending orders may be Accepted or
Rejected, Accepted ones may go In Progress or be Rejected, and In Progress
ones may be Delivered or Rejected.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			return withAdmin(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				orders, err := a.Client.ListOrders(ctx)
				if err != nil {
					return err
				}
				order := findOrder(orders, args[0])
				if order == nil {
					return NewExitError(ExitFailure, CodeRequestFailed, fmt.Sprintf("order %s not found", args[0]))
				}
				if !order.Status.CanTransition(next) {
					return transitionError("order", order.ID, order.Status, next)
				}
				updated, err := a.Client.UpdateOrderStatus(ctx, order.ID, next)
				if err != nil {
					return err
				}
				return out.Success(say("Order %s is now %s.", updated.ID, updated.Status))
			})
		},
	}

	cmd.AddCommand(list, set)
	return cmd
}

func newAdminBookingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Review and answer every booking",
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List every booking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter api.Status
			if status != "" {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				filter = st
			}
			return withAdmin(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				bookings, err := a.Client.ListBookings(ctx)
				if err != nil {
					return err
				}
				if filter != "" {
					kept := bookings[:0]
					for _, b := range bookings {
						if b.Status == filter {
							kept = append(kept, b)
						}
					}
					bookings = kept
				}
				return out.Success(bookingsView(bookings))
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "only show bookings in this status")

	set := &cobra.Command{
		Use:   "status <booking-id> <status>",
		Short: "Accept, reject or progress a booking",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			return withAdmin(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				bookings, err := a.Client.ListBookings(ctx)
				if err != nil {
					return err
				}
				booking := findBooking(bookings, args[0])
				if booking == nil {
					return NewExitError(ExitFailure, CodeRequestFailed, fmt.Sprintf("booking %s not found", args[0]))
				}
				if !booking.Status.CanTransition(next) {
					return transitionError("booking", booking.ID, booking.Status, next)
				}
				updated, err := a.Client.UpdateBookingStatus(ctx, booking.ID, next)
				if err != nil {
					return err
				}
				return out.Success(say("Booking %s is now %s.", updated.ID, updated.Status))
			})
		},
	}

	cmd.AddCommand(list, set)
	return cmd
}

func newAdminMenuCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Create, edit and remove menu items",
	}
	cmd.AddCommand(newAdminMenuCreateCommand(opts))
	cmd.AddCommand(newAdminMenuUpdateCommand(opts))
	cmd.AddCommand(newAdminMenuDeleteCommand(opts))
	cmd.AddCommand(newAdminMenuImportCommand(opts))
	return cmd
}

func bindMenuItemFlags(cmd *cobra.Command, form *forms.MenuItem) {
	cmd.Flags().StringVar(&form.Name, "name", "", "dish name")
	cmd.Flags().StringVar(&form.Description, "description", "", "dish description")
	cmd.Flags().Float64Var(&form.Price, "price", 0, "price in dollars")
	cmd.Flags().StringVar(&form.Category, "category", "", fmt.Sprintf("one of %v", api.Categories))
	cmd.Flags().StringVar(&form.Image, "image", "", "image URL")
}

func newAdminMenuCreateCommand(opts *RootOptions) *cobra.Command {
	var form forms.MenuItem

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a dish to the menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				in, err := form.Validate()
				if err != nil {
					return err
				}
				item, err := a.Client.CreateMenuItem(ctx, in)
				if err != nil {
					return err
				}
				return out.Success(menuItemView(*item))
			})
		},
	}
	bindMenuItemFlags(cmd, &form)

	return cmd
}

func newAdminMenuUpdateCommand(opts *RootOptions) *cobra.Command {
	var form forms.MenuItem

	cmd := &cobra.Command{
		Use:   "update <menu-item-id>",
		Short: "Edit a dish; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				current, err := a.Client.GetMenuItem(ctx, args[0])
				if err != nil {
					return err
				}
				flags := cmd.Flags()
				if !flags.Changed("name") {
					form.Name = current.Name
				}
				if !flags.Changed("description") {
					form.Description = current.Description
				}
				if !flags.Changed("price") {
					form.Price = current.Price
				}
				if !flags.Changed("category") {
					form.Category = current.Category
				}
				if !flags.Changed("image") {
					form.Image = current.Image
				}
				in, err := form.Validate()
				if err != nil {
					return err
				}
				item, err := a.Client.UpdateMenuItem(ctx, current.ID, in)
				if err != nil {
					return err
				}
				return out.Success(menuItemView(*item))
			})
		},
	}
	bindMenuItemFlags(cmd, &form)

	return cmd
}

func newAdminMenuDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <menu-item-id>",
		Short: "Remove a dish from the menu",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := a.Client.DeleteMenuItem(ctx, args[0]); err != nil {
					return err
				}
				return out.Success(say("Deleted menu item %s.", args[0]))
			})
		},
	}
}

func newAdminMenuImportCommand(opts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <catalog.yaml>",
		Short: "Create menu items from a YAML catalog",
		Long: `Create menu items from a YAML catalog. Items whose name is already on the
menu are skipped. The catalog is fully validated before anything is sent.

Catalog format:
  items:
    - name: Pancakes
      description: Stack of three with maple syrup
      price: 6.5
      category: Breakfast`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := menu.LoadCatalog(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, CodeInvalidInput, err.Error(), err)
			}
			return withAdmin(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				res, err := a.Importer.Import(ctx, catalog, dryRun)
				if err != nil {
					return err
				}
				if err := out.Success(newImportView(res, dryRun)); err != nil {
					return err
				}
				if len(res.Failed) > 0 {
					return NewExitError(ExitFailure, CodeRequestFailed, fmt.Sprintf("%d catalog items failed", len(res.Failed)))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be created without creating it")

	return cmd
}
