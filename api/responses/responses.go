package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
	"github.com/angelmondragon/workboard-backend/pkg/types"
)

// Board reads go stale on the next mutation, so nothing is cacheable.
const cacheControl = "no-store"

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

// WriteSuccessStatus writes data in a success envelope. An encode failure
// after the header went out cannot be reported to the caller.
func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	_ = writeEnvelope(w, status, types.Envelope{Success: true, Data: data})
}

// WriteError maps err onto its code's status and public payload. Untyped
// errors are treated as internal. The full chain is logged, never sent.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := classify(err)
	status := pkgerrors.MetadataFor(typed.Code()).HTTPStatus

	ctx = logFailure(ctx, logg, err, status)

	payload := &types.APIError{
		Code:    string(typed.Code()),
		Message: typed.PublicMessage(),
		Details: typed.PublicDetails(),
	}
	if encErr := writeEnvelope(w, status, types.Envelope{Error: payload}); encErr != nil {
		logg.Error(ctx, "encode error envelope", encErr)
	}
}

func classify(err error) *pkgerrors.Error {
	if err == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "error response without an error")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
}

func logFailure(ctx context.Context, logg *logger.Logger, err error, status int) context.Context {
	if logg == nil {
		return ctx
	}
	if err == nil {
		err = errors.New("error response without an error")
	}

	dump := pkgerrors.Dump(err)
	fields := map[string]any{
		"status":      status,
		"error_code":  dump.Code,
		"error_chain": dump.Chain,
	}
	for key, value := range map[string]string{
		"pg_code":       dump.PGCode,
		"pg_constraint": dump.PGConstraint,
		"pg_table":      dump.PGTable,
		"pg_detail":     dump.PGDetail,
		"pg_message":    dump.PGMessage,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	ctx = logg.WithFields(ctx, fields)

	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "rpc failed", err)
	} else {
		logg.Warn(logg.WithError(ctx, err), "rpc rejected")
	}
	return ctx
}

func writeEnvelope(w http.ResponseWriter, status int, env types.Envelope) error {
	header := w.Header()
	header.Set("Content-Type", "application/json")
	header.Set("Cache-Control", cacheControl)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(env)
}
