package notify

import "fmt"

// Error is a notification failure with a user-facing message.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("notifications %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const (
	msgFetchFailed  = "Failed to fetch notifications"
	msgCountFailed  = "Failed to fetch notification count"
	msgDeleteFailed = "Failed to delete notification"
	msgClearFailed  = "Failed to clear notifications"

	msgLoginToDelete = "Please login to delete notifications"
	msgLoginToClear  = "Please login to clear notifications"
)
