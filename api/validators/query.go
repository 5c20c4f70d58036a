package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
)

// RequireQuery returns the trimmed query value or a validation error.
func RequireQuery(r *http.Request, key string) (string, error) {
	if raw := strings.TrimSpace(r.URL.Query().Get(key)); raw != "" {
		return raw, nil
	}
	return "", fieldError(key, "query parameter is required")
}

// ParseUUIDParam reads a chi URL parameter as a non-nil UUID.
func ParseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, key)))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fieldError(key, "path parameter must be a uuid")
	}
	return id, nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]string{"field": field})
}
