package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/app"
)

type orderView api.Order

func (v orderView) WriteText(w io.Writer) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Order:\t%s\n", v.ID)
	fmt.Fprintf(tw, "Status:\t%s\n", v.Status)
	fmt.Fprintf(tw, "Placed:\t%s\n", formatTime(v.CreatedAt))
	fmt.Fprintf(tw, "Deliver to:\t%s\n", v.DeliveryAddress)
	fmt.Fprintf(tw, "Payment:\t%s\n", v.PaymentMethod)
	if v.Notes != "" {
		fmt.Fprintf(tw, "Notes:\t%s\n", v.Notes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, li := range v.Items {
		fmt.Fprintf(w, "  %d x %s\n", li.Quantity, li.Name())
	}
	_, err := fmt.Fprintf(w, "Total: %s\n", formatPrice(v.TotalPrice))
	return err
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(opts *RootOptions) *cobra.Command {
	var address, phone, payment, notes string

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Long: `Place an order for everything in the cart.

The delivery address defaults to the one used for the previous order and the
phone to the one on your profile. Payment is cash on delivery unless
--payment Card is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				form, err := a.Checkout.Prefill(ctx, a.Session.Identity())
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("address") {
					form.DeliveryAddress = address
				}
				if cmd.Flags().Changed("phone") {
					form.Phone = phone
				}
				if cmd.Flags().Changed("payment") {
					form.PaymentMethod = payment
				}
				form.Notes = notes

				order, err := a.Checkout.PlaceOrder(ctx, form)
				if err != nil {
					return err
				}
				return out.Success(orderView(*order))
			})
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "delivery address")
	cmd.Flags().StringVar(&phone, "phone", "", "contact phone, digits only")
	cmd.Flags().StringVar(&payment, "payment", api.PaymentCashOnDelivery, `payment method: "Cash on Delivery" or "Card"`)
	cmd.Flags().StringVar(&notes, "notes", "", "notes for the kitchen or courier")

	return cmd
}
