package rest

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/errors"
)

// writeError maps any error to the uniform JSON envelope. Domain errors carry
// their own status codes; everything else is a 500 with no internals leaked.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		h.logger.ErrorContext(ctx, "unhandled error",
			slog.String("error", err.Error()),
		)
		appErr = errors.NewInternalError("internal server error")
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed",
			slog.String("code", appErr.Code),
			slog.String("error", appErr.Error()),
		)
	}

	writeJSON(w, appErr.StatusCode, ErrorResponse{
		Error: ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
