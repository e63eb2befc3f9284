package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/app"
)

type menuView []api.MenuItem

func (v menuView) WriteText(w io.Writer) error {
	if len(v) == 0 {
		_, err := fmt.Fprintln(w, "No menu items.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE")
	for _, item := range v {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.ID, item.Name, item.Category, formatPrice(item.Price))
	}
	return tw.Flush()
}

type menuItemView api.MenuItem

func (v menuItemView) WriteText(w io.Writer) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", v.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", v.Name)
	fmt.Fprintf(tw, "Category:\t%s\n", v.Category)
	fmt.Fprintf(tw, "Price:\t%s\n", formatPrice(v.Price))
	if v.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", v.Description)
	}
	if v.Image != "" {
		fmt.Fprintf(tw, "Image:\t%s\n", v.Image)
	}
	return tw.Flush()
}

// NewMenuCommand creates the menu command group.
func NewMenuCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Browse the menu",
	}
	cmd.AddCommand(newMenuListCommand(opts))
	cmd.AddCommand(newMenuShowCommand(opts))
	return cmd
}

func newMenuListCommand(opts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List menu items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if category != "" && category != api.CategoryAll && !slices.Contains(api.Categories, category) {
				return invalidInput(fmt.Sprintf("unknown category %q: must be one of %v", category, api.Categories))
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				items, err := a.Client.ListMenu(ctx, category)
				if err != nil {
					return err
				}
				return out.Success(menuView(items))
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only show this category")

	return cmd
}

func newMenuShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one menu item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				item, err := a.Client.GetMenuItem(ctx, args[0])
				if err != nil {
					return err
				}
				return out.Success(menuItemView(*item))
			})
		},
	}
}
