package api

import (
	"net/http"

	"github.com/converze/newsletter/internal/pkg/logger"
)

// 5xx responses never echo internal errors to clients. The full error
// is logged server-side and the caller sees a fixed public message.

// respondSafeError logs the internal error and sends a sanitized JSON
// error response to the client.
func respondSafeError(w http.ResponseWriter, code int, internalErr error, publicMsg string) {
	if internalErr != nil {
		logger.Error(publicMsg, "status", code, "error", internalErr.Error())
	}
	respondError(w, code, publicMsg)
}
