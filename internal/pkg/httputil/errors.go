package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/user-registry/internal/pkg/ctxlog"
)

// ErrorMapping maps a sentinel error to a status and message.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // if empty, uses err.Error()
}

// HandleError writes the response for the first mapping err matches.
// Unmapped errors become 500 with a generic message. Every 5xx is logged
// with the request logger; 4xx are left to the access log.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	status := http.StatusInternalServerError
	msg := "internal error"

	for _, m := range mappings {
		if !errors.Is(err, m.Error) {
			continue
		}
		status = m.Status
		msg = m.Message
		if msg == "" {
			msg = err.Error()
		}
		break
	}

	if status >= http.StatusInternalServerError {
		ctxlog.FromContext(ctx).Error("request failed", "status", status, "error", err)
	}
	Error(w, status, msg)
}
