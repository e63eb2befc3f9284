package cli

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/app"
	"github.com/roach88/bistro/internal/bus"
	"github.com/roach88/bistro/internal/cart"
	"github.com/roach88/bistro/internal/checkout"
	"github.com/roach88/bistro/internal/config"
	"github.com/roach88/bistro/internal/forms"
	"github.com/roach88/bistro/internal/logs"
	"github.com/roach88/bistro/internal/notify"
	"github.com/roach88/bistro/internal/session"
)

const (
	sessionExpiredMessage = "session expired, please login again"
	notLoggedInMessage    = "not logged in, run 'bistro login' first"
	forbiddenMessage      = "this command requires an admin account"

	stopTimeout = 5 * time.Second
)

// commandFunc is the body of a command that needs the component graph.
type commandFunc func(ctx context.Context, a *app.App, out *OutputFormatter) error

type runConfig struct {
	ignoreExpiry bool
	appOptions   []func(*app.Options)
}

type runOption func(*runConfig)

// ignoreExpiry suppresses the session expired report, for commands that end
// the session anyway.
func ignoreExpiry() runOption {
	return func(rc *runConfig) { rc.ignoreExpiry = true }
}

func withAppOptions(f func(*app.Options)) runOption {
	return func(rc *runConfig) { rc.appOptions = append(rc.appOptions, f) }
}

// withApp loads configuration, starts the component graph, runs fn and
// stops the graph. Errors are classified into ExitErrors.
func withApp(cmd *cobra.Command, opts *RootOptions, fn commandFunc, runOpts ...runOption) error {
	var rc runConfig
	for _, o := range runOpts {
		o(&rc)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, CodeStartup, "failed to load config", err)
	}
	logger, err := logs.New(cmd.ErrOrStderr(), cfg.Log, opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, CodeStartup, "invalid log configuration", err)
	}
	slog.SetDefault(logger)

	var expired atomic.Bool
	appOpts := opts.App
	appOpts.Config = cfg
	appOpts.Logger = logger
	appOpts.DeferCartLoad = true
	appOpts.Listeners = append(slices.Clone(appOpts.Listeners), func(_ context.Context, e bus.Event) error {
		if e.Kind == bus.Unauthenticated && e.Reason == bus.ReasonExpired {
			expired.Store(true)
		}
		return nil
	})
	for _, f := range rc.appOptions {
		f(&appOpts)
	}

	a, err := app.Start(ctx, appOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, CodeStartup, "failed to start", err)
	}

	runErr := fn(ctx, a, out)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	if err := a.Stop(stopCtx); err != nil {
		logger.Warn("shutdown failed", "error", err)
	}

	if !rc.ignoreExpiry && expired.Load() && !a.Session.IsAuthenticated() {
		return WrapExitError(ExitFailure, CodeSessionExpired, sessionExpiredMessage, runErr)
	}
	return classify(runErr)
}

// requireSession fails unless a session is held.
func requireSession(a *app.App) error {
	if !a.Session.IsAuthenticated() {
		return NewExitError(ExitFailure, CodeNotLoggedIn, notLoggedInMessage)
	}
	return nil
}

// requireAdmin fails unless an admin session is held.
func requireAdmin(a *app.App) error {
	if err := requireSession(a); err != nil {
		return err
	}
	if !a.Session.IsAdmin() {
		return NewExitError(ExitFailure, CodeForbidden, forbiddenMessage)
	}
	return nil
}

// invalidInput reports a bad argument value.
func invalidInput(message string) *ExitError {
	return NewExitError(ExitCommandError, CodeInvalidInput, message)
}

// classify maps component errors to exit codes and user-facing messages.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}

	var verr *forms.ValidationError
	if errors.As(err, &verr) {
		return &ExitError{Code: ExitCommandError, Kind: CodeInvalidInput, Message: "invalid input", Details: verr.Fields, Err: err}
	}

	var authErr *session.AuthError
	switch {
	case errors.As(err, &authErr):
		return WrapExitError(ExitFailure, CodeLoginFailed, authErr.Message, err)
	case errors.Is(err, cart.ErrNotAuthenticated), errors.Is(err, session.ErrNotAuthenticated):
		return WrapExitError(ExitFailure, CodeNotLoggedIn, userMessage(err), err)
	case api.IsAuthRejected(err):
		return WrapExitError(ExitFailure, CodeSessionExpired, sessionExpiredMessage, err)
	case errors.Is(err, checkout.ErrEmptyCart):
		return WrapExitError(ExitFailure, CodeRequestFailed, "your cart is empty", err)
	}

	return WrapExitError(ExitFailure, CodeRequestFailed, userMessage(err), err)
}

// userMessage returns the message a component attached to err.
func userMessage(err error) string {
	var (
		cartErr     *cart.Error
		notifyErr   *notify.Error
		authErr     *session.AuthError
		requestErr  *session.RequestError
		checkoutErr *checkout.Error
	)
	switch {
	case errors.As(err, &cartErr):
		return cartErr.Message
	case errors.As(err, &notifyErr):
		return notifyErr.Message
	case errors.As(err, &authErr):
		return authErr.Message
	case errors.As(err, &requestErr):
		return requestErr.Message
	case errors.As(err, &checkoutErr):
		return checkoutErr.Message
	}
	return api.MessageOr(err, err.Error())
}
