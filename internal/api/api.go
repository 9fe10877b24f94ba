// Package api contains helpers shared by http handlers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"
)

// Error is a body of every failed response.
// swagger:model
type Error struct {
	Error string `json:"error"`
}

// WriteOK writes v as json with status code.
func WriteOK(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// WriteError writes Error with message and status code.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteOK(w, status, Error{Error: message})
}

// WriteInternalErrorf logs the error and writes generic internal error to client.
func WriteInternalErrorf(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	GetLogger(ctx).Errorf(format, args...)

	WriteError(w, http.StatusInternalServerError, "internal error")
}

// GetLogger returns logger enriched with request id from context.
func GetLogger(ctx context.Context) logrus.FieldLogger {
	l := logrus.WithField("layer", "api")

	if id := middleware.GetReqID(ctx); id != "" {
		l = l.WithField("request_id", id)
	}

	return l
}

// ReadJSON decodes request body into v. Unknown fields are rejected.
func ReadJSON(r *http.Request, v interface{}) error {
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields()

	if err := d.Decode(v); err != nil {
		return fmt.Errorf("failed to decode body: %w", err)
	}

	return nil
}
