package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/app"
)

type cartView struct {
	Items      []api.LineItem `json:"items"`
	ItemCount  int            `json:"itemCount"`
	TotalPrice float64        `json:"totalPrice"`
}

func newCartView(c *api.Cart) cartView {
	if c == nil {
		return cartView{Items: []api.LineItem{}}
	}
	items := c.Items
	if items == nil {
		items = []api.LineItem{}
	}
	return cartView{Items: items, ItemCount: itemCount(items), TotalPrice: c.TotalPrice}
}

func (v cartView) WriteText(w io.Writer) error {
	if len(v.Items) == 0 {
		_, err := fmt.Fprintln(w, "Your cart is empty.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tITEM\tQTY\tPRICE\tSUBTOTAL")
	for _, li := range v.Items {
		price := linePrice(li)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", li.MenuItemID, li.Name(), li.Quantity,
			formatPrice(price), formatPrice(price*float64(li.Quantity)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s, total %s\n", plural(v.ItemCount, "item"), formatPrice(v.TotalPrice))
	return err
}

type cartChangeView struct {
	Message string   `json:"message"`
	Cart    cartView `json:"cart"`
}

func (v cartChangeView) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s Cart: %s, total %s\n", v.Message, plural(v.Cart.ItemCount, "item"), formatPrice(v.Cart.TotalPrice))
	return err
}

// NewCartCommand creates the cart command group.
func NewCartCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change your cart",
	}
	cmd.AddCommand(newCartShowCommand(opts))
	cmd.AddCommand(newCartAddCommand(opts))
	cmd.AddCommand(newCartUpdateCommand(opts))
	cmd.AddCommand(newCartRemoveCommand(opts))
	cmd.AddCommand(newCartClearCommand(opts))
	return cmd
}

func newCartShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				if err := a.Cart.EnsureFetched(ctx); err != nil {
					return err
				}
				if err := a.Cart.Err(); err != nil {
					return err
				}
				return out.Success(newCartView(a.Cart.Cart()))
			})
		},
	}
}

func newCartAddCommand(opts *RootOptions) *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:   "add <menu-item-id>",
		Short: "Add a menu item to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if quantity < 1 {
				return invalidInput("quantity must be at least 1")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				c, err := a.Cart.AddItem(ctx, args[0], quantity)
				if err != nil {
					return err
				}
				return out.Success(cartChangeView{
					Message: fmt.Sprintf("Added %d x %s.", quantity, lineName(c, args[0])),
					Cart:    newCartView(c),
				})
			})
		},
	}

	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "how many to add")

	return cmd
}

func newCartUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <menu-item-id> <quantity>",
		Short: "Set the quantity of a cart item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil || quantity < 1 {
				return invalidInput(fmt.Sprintf("quantity must be a whole number of at least 1, got %q", args[1]))
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				c, err := a.Cart.UpdateItemQuantity(ctx, args[0], quantity)
				if err != nil {
					return err
				}
				return out.Success(cartChangeView{
					Message: fmt.Sprintf("Set %s to %d.", lineName(c, args[0]), quantity),
					Cart:    newCartView(c),
				})
			})
		},
	}
}

func newCartRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <menu-item-id>",
		Short: "Remove an item from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				if err := a.Cart.EnsureFetched(ctx); err != nil {
					return err
				}
				name := lineName(a.Cart.Cart(), args[0])
				c, err := a.Cart.RemoveItem(ctx, args[0])
				if err != nil {
					return err
				}
				return out.Success(cartChangeView{
					Message: fmt.Sprintf("Removed %s.", name),
					Cart:    newCartView(c),
				})
			})
		},
	}
}

func newCartClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				c, err := a.Cart.Clear(ctx)
				if err != nil {
					return err
				}
				return out.Success(cartChangeView{Message: "Cart cleared.", Cart: newCartView(c)})
			})
		},
	}
}

// lineName is the display name of menuItemID within c, or the id itself.
func lineName(c *api.Cart, menuItemID string) string {
	if c != nil {
		for _, li := range c.Items {
			if li.MenuItemID == menuItemID {
				return li.Name()
			}
		}
	}
	return menuItemID
}
