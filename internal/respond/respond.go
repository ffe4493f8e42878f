// Package respond writes JSON responses and records request outcomes for
// the request logger.
package respond

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"feedback-backend/internal/apperr"
)

type ErrorBody struct {
	ErrorKind apperr.Kind `json:"error_kind"`
	Message   string      `json:"message"`
}

// Outcome collects what the request logger reports once the handler returns.
type Outcome struct {
	mu        sync.Mutex
	Actor     string
	ErrorKind apperr.Kind
	Message   string
	Err       error
	Fields    map[string]any
}

type outcomeKey struct{}

func WithOutcome(ctx context.Context) (context.Context, *Outcome) {
	o := &Outcome{Fields: map[string]any{}}
	return context.WithValue(ctx, outcomeKey{}, o), o
}

func OutcomeFrom(ctx context.Context) *Outcome {
	o, _ := ctx.Value(outcomeKey{}).(*Outcome)
	return o
}

func (o *Outcome) SetActor(actor string) {
	if o == nil {
		return
	}
	o.mu.Lock()
	o.Actor = actor
	o.mu.Unlock()
}

// Set attaches an extra field to the request log entry.
func (o *Outcome) Set(key string, value any) {
	if o == nil {
		return
	}
	o.mu.Lock()
	o.Fields[key] = value
	o.mu.Unlock()
}

func (o *Outcome) setError(kind apperr.Kind, message string, err error) {
	if o == nil {
		return
	}
	o.mu.Lock()
	o.ErrorKind, o.Message, o.Err = kind, message, err
	o.mu.Unlock()
}

// Snapshot returns a copy safe to read after the handler finished.
func (o *Outcome) Snapshot() (actor string, kind apperr.Kind, message string, err error, fields map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fields = make(map[string]any, len(o.Fields))
	for k, v := range o.Fields {
		fields[k] = v
	}
	return o.Actor, o.ErrorKind, o.Message, o.Err, fields
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error maps err onto its HTTP status and writes {error_kind, message}.
// Unclassified errors become a 500 without exposing their text.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	message := apperr.MessageOf(err)
	OutcomeFrom(r.Context()).setError(kind, message, err)
	JSON(w, StatusFor(kind), ErrorBody{ErrorKind: kind, Message: message})
}

func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindProfanity:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidTransition, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
