package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/app"
	"github.com/roach88/bistro/internal/forms"
)

// identityView renders the signed-in user.
type identityView api.User

func (v identityView) WriteText(w io.Writer) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Name:\t%s\n", v.Name)
	fmt.Fprintf(tw, "Email:\t%s\n", v.Email)
	if v.Phone != "" {
		fmt.Fprintf(tw, "Phone:\t%s\n", v.Phone)
	}
	fmt.Fprintf(tw, "Role:\t%s\n", v.Role)
	return tw.Flush()
}

type loginView struct {
	Message string       `json:"message"`
	User    identityView `json:"user"`
}

func (v loginView) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, v.Message)
	return err
}

// NewLoginCommand creates the login command.
func NewLoginCommand(opts *RootOptions) *cobra.Command {
	var form forms.Login

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Example: `  bistro login --email ann@example.com --password 'S3cret!pw'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				creds, err := form.Validate()
				if err != nil {
					return err
				}
				rec, err := a.Session.Login(ctx, creds)
				if err != nil {
					return err
				}
				return out.Success(loginView{
					Message: fmt.Sprintf("Logged in as %s (%s)", displayName(rec.User), rec.User.Role),
					User:    identityView(*rec.User),
				})
			})
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "account password")

	return cmd
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	var form forms.Register

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if !cmd.Flags().Changed("confirm-password") {
					form.ConfirmPassword = form.Password
				}
				reg, err := form.Validate()
				if err != nil {
					return err
				}
				if _, err := a.Session.Register(ctx, reg); err != nil {
					return err
				}
				if !a.Session.IsAuthenticated() {
					return out.Success(say("Account created. Run 'bistro login' to sign in."))
				}
				identity := a.Session.Identity()
				return out.Success(loginView{
					Message: fmt.Sprintf("Account created. Logged in as %s", displayName(identity)),
					User:    identityView(*identity),
				})
			})
		},
	}

	cmd.Flags().StringVar(&form.Name, "name", "", "your name")
	cmd.Flags().StringVar(&form.Email, "email", "", "account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "password: 6+ characters with upper, lower, digit and one of @$!%*?&")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm-password", "", "repeat the password (defaults to --password)")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "phone number, digits only")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				was := a.Session.IsAuthenticated()
				if err := a.Session.Logout(ctx); err != nil {
					return err
				}
				if !was {
					return out.Success(say("Not logged in."))
				}
				return out.Success(say("Logged out."))
			}, ignoreExpiry())
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := requireSession(a); err != nil {
					return err
				}
				return out.Success(identityView(*a.Session.Identity()))
			})
		},
	}
}

// NewProfileCommand creates the profile command group.
func NewProfileCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your profile",
	}
	cmd.AddCommand(newProfileUpdateCommand(opts))
	return cmd
}

func newProfileUpdateCommand(opts *RootOptions) *cobra.Command {
	var form forms.Profile

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your name, phone or password",
		Long: `Change your name, phone or password. Name and phone default to the
current values. Changing the password needs --current-password,
--new-password and --confirm-password.`,
		Args: cobra.NoArgs,
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
				update, err := form.Validate()
				if err != nil {
					return err
				}
				updated, err := a.Session.UpdateProfile(ctx, update)
				if err != nil {
					return err
				}
				return out.Success(loginView{Message: "Profile updated.", User: identityView(*updated)})
			})
		},
	}

	cmd.Flags().StringVar(&form.Name, "name", "", "new name")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "new phone, 8-15 digits")
	cmd.Flags().StringVar(&form.CurrentPassword, "current-password", "", "current password")
	cmd.Flags().StringVar(&form.NewPassword, "new-password", "", "new password")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm-password", "", "repeat the new password")

	return cmd
}

func displayName(u *api.User) string {
	if u == nil {
		return "unknown"
	}
	if u.Name != "" && u.Email != "" {
		return fmt.Sprintf("%s <%s>", u.Name, u.Email)
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
