package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/app"
)

type ordersView []api.Order

func (v ordersView) WriteText(w io.Writer) error {
	if len(v) == 0 {
		_, err := fmt.Fprintln(w, "No orders.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPLACED\tITEMS\tTOTAL\tPAYMENT\tSTATUS")
	for _, o := range v {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", o.ID, formatTime(o.CreatedAt), itemCount(o.Items),
			formatPrice(o.TotalPrice), o.PaymentMethod, o.Status)
	}
	return tw.Flush()
}

// NewOrdersCommand creates the orders command group.
func NewOrdersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Review your orders",
	}
	cmd.AddCommand(newOrdersListCommand(opts))
	cmd.AddCommand(newOrdersDeleteCommand(opts))
	return cmd
}

func newOrdersListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				orders, err := a.Client.MyOrders(ctx)
				if err != nil {
					return err
				}
				return out.Success(ordersView(orders))
			})
		},
	}
}

func newOrdersDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <order-id>",
		Short: "Delete a pending or rejected order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				orders, err := a.Client.MyOrders(ctx)
				if err != nil {
					return err
				}
				order := findOrder(orders, args[0])
				if order == nil {
					return NewExitError(ExitFailure, CodeRequestFailed, fmt.Sprintf("order %s not found", args[0]))
				}
				if !order.Status.Deletable() {
					return NewExitError(ExitFailure, CodeRequestFailed,
						fmt.Sprintf("order %s is %s; only Pending or Rejected orders can be deleted", order.ID, order.Status))
				}
				if err := a.Client.DeleteOrder(ctx, order.ID); err != nil {
					return err
				}
				return out.Success(say("Deleted order %s.", order.ID))
			})
		},
	}
}

func findOrder(orders []api.Order, id string) *api.Order {
	for i := range orders {
		if orders[i].ID == id {
			return &orders[i]
		}
	}
	return nil
}
