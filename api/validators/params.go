package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
)

// ParseUUIDParam reads a chi URL parameter as a UUID. A malformed id cannot
// name an existing record, so it is reported as not found.
func ParseUUIDParam(r *http.Request, name, resource string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, resource+" not found").
			WithDetails(map[string]any{"id": raw})
	}
	return id, nil
}
