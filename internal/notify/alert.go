package notify

import (
	"log/slog"

	"github.com/roach88/bistro/internal/api"
)

// Alerter surfaces a newly seen notification to the user.
type Alerter interface {
	Alert(n api.Notification)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(n api.Notification)

func (f AlerterFunc) Alert(n api.Notification) {
	f(n)
}

// LogAlerter writes alerts to a logger.
type LogAlerter struct {
	Logger *slog.Logger
}

func (a LogAlerter) Alert(n api.Notification) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "id", n.ID, "label", n.Label())
}
