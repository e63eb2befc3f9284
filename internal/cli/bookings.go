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
)

type bookingsView []api.Booking

func (v bookingsView) WriteText(w io.Writer) error {
	if len(v) == 0 {
		_, err := fmt.Fprintln(w, "No bookings.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tGUESTS\tTABLE\tNAME\tSTATUS")
	for _, b := range v {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n", b.ID, b.Date, b.Time, b.NumberOfGuests, b.TableNumber, b.Name, b.Status)
	}
	return tw.Flush()
}

type bookingView api.Booking

func (v bookingView) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Booking %s: %s at %s, table %d for %s (%s)\n",
		v.ID, v.Date, v.Time, v.TableNumber, plural(v.NumberOfGuests, "guest"), v.Status)
	return err
}

type slotsView []string

func (v slotsView) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, strings.Join(v, " "))
	return err
}

// NewBookingsCommand creates the bookings command group.
func NewBookingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Book a table and review your bookings",
	}
	cmd.AddCommand(newBookingsCreateCommand(opts))
	cmd.AddCommand(newBookingsListCommand(opts))
	cmd.AddCommand(newBookingsDeleteCommand(opts))
	cmd.AddCommand(newBookingsSlotsCommand(opts))
	return cmd
}

func newBookingsCreateCommand(opts *RootOptions) *cobra.Command {
	var form forms.Booking

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Request a table",
		Long: `Request a table. Name and phone default to your profile. Times are
half-hour slots from 18:00 to 23:30 (see 'bistro bookings slots').`,
		Example: `  bistro bookings create --date 2026-12-24 --time 19:30 --guests 4 --table 7`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				identity := a.Session.Identity()
				if !cmd.Flags().Changed("name") {
					form.Name = identity.Name
				}
				if !cmd.Flags().Changed("phone") {
					form.Phone = string(identity.Phone)
				}
				req, err := form.Validate(opts.now())
				if err != nil {
					return err
				}
				booking, err := a.Client.CreateBooking(ctx, req)
				if err != nil {
					return err
				}
				return out.Success(bookingView(*booking))
			})
		},
	}

	cmd.Flags().StringVar(&form.Date, "date", "", "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&form.Time, "time", "", "time slot, HH:MM")
	cmd.Flags().IntVar(&form.Guests, "guests", 0, "number of guests (1-10)")
	cmd.Flags().IntVar(&form.TableNumber, "table", 0, "table number (1-10)")
	cmd.Flags().StringVar(&form.Name, "name", "", "name for the booking")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "contact phone, digits only")
	cmd.Flags().StringVar(&form.Notes, "notes", "", "special requests")

	return cmd
}

func newBookingsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				bookings, err := a.Client.MyBookings(ctx)
				if err != nil {
					return err
				}
				return out.Success(bookingsView(bookings))
			})
		},
	}
}

func newBookingsDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <booking-id>",
		Short: "Cancel a pending or rejected booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				bookings, err := a.Client.MyBookings(ctx)
				if err != nil {
					return err
				}
				booking := findBooking(bookings, args[0])
				if booking == nil {
					return NewExitError(ExitFailure, CodeRequestFailed, fmt.Sprintf("booking %s not found", args[0]))
				}
				if !booking.Status.Deletable() {
					return NewExitError(ExitFailure, CodeRequestFailed,
						fmt.Sprintf("booking %s is %s; only Pending or Rejected bookings can be deleted", booking.ID, booking.Status))
				}
				if err := a.Client.DeleteBooking(ctx, booking.ID); err != nil {
					return err
				}
				return out.Success(say("Deleted booking %s.", booking.ID))
			})
		},
	}
}

func newBookingsSlotsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "List the bookable time slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(slotsView(forms.Slots()))
		},
	}
}

func findBooking(bookings []api.Booking, id string) *api.Booking {
	for i := range bookings {
		if bookings[i].ID == id {
			return &bookings[i]
		}
	}
	return nil
}
