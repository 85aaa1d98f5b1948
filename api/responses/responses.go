package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Rendered is the client-facing view of an error.
type Rendered struct {
	Status  int
	Code    pkgerrors.Code
	Message string
	Details any
}

// Render maps err onto its HTTP status and public message. Untyped errors
// are treated as internal.
func Render(err error) Rendered {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	out := Rendered{Status: meta.HTTPStatus, Code: typed.Code(), Message: meta.PublicMessage}
	if meta.ExposeMessage && typed.Message() != "" {
		out.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		out.Details = typed.Details()
	}
	return out
}

// WriteSuccess writes data as the response body with status 200.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, data)
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	rendered := Render(err)
	logError(ctx, logg, rendered, err)
	WriteJSON(w, rendered.Status, ErrorBody{
		Message: rendered.Message,
		Error:   string(rendered.Code),
		Details: rendered.Details,
	})
}

func logError(ctx context.Context, logg *logger.Logger, rendered Rendered, err error) {
	if logg == nil {
		return
	}
	fields := pkgerrors.LogFields(err)
	fields["error_code"] = string(rendered.Code)
	fields["status"] = rendered.Status
	ctx = logg.WithFields(ctx, fields)
	if rendered.Status >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.rejected")
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
