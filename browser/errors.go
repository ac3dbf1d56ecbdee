package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// TransientError marks a fault worth retrying: a navigation timeout or a
// hiccup on the browser communication channel. Anything not wrapped in it
// fails fast.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient browser fault during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// SessionFault means the browsing session or one of its contexts is no
// longer usable. Retrying the same operation is pointless; the whole
// session has to be re-established.
type SessionFault struct {
	Op  string
	Err error
}

func (e *SessionFault) Error() string {
	return fmt.Sprintf("browsing session unusable during %s: %v", e.Op, e.Err)
}

func (e *SessionFault) Unwrap() error { return e.Err }

// IsSessionFault reports whether err is (or wraps) a SessionFault.
func IsSessionFault(err error) bool {
	var sf *SessionFault
	return errors.As(err, &sf)
}

// classify wraps chromedp errors into the fault taxonomy. Deadline and
// network-level errors are transient; a cancelled browser context means the
// session is gone.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return &SessionFault{Op: op, Err: err}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return &TransientError{Op: op, Err: err}
	}
	msg := err.Error()
	if strings.Contains(msg, "websocket") || strings.Contains(msg, "connection") {
		return &TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
