package repository

import (
	"context"
	"iter"
	"strings"
	"sync"
	"time"

	"feedback-backend/internal/apperr"
	"feedback-backend/internal/models"
)

// FeedbackStore is the narrow contract the service depends on. A durable
// backend has to apply UpdateStatus's check-then-set atomically and keep
// (author, idempotency key) unique on Insert.
type FeedbackStore interface {
	Insert(ctx context.Context, feedback *models.Feedback) error
	Get(ctx context.Context, id string) (models.Feedback, error)
	FindByIdempotencyKey(ctx context.Context, author, key string) (models.Feedback, error)
	List(ctx context.Context, filter models.ListFilter) iter.Seq[models.Feedback]
	UpdateStatus(ctx context.Context, id string, status models.Status, decidedBy string, at time.Time) (models.Feedback, error)
}

// FeedbackRepo keeps feedback in process memory. Records are stored by value
// and copied out, so readers never observe a partially written record.
type FeedbackRepo struct {
	mu      sync.RWMutex
	order   []string
	records map[string]models.Feedback
	keys    map[string]string
}

var _ FeedbackStore = (*FeedbackRepo)(nil)

func NewFeedbackRepo() *FeedbackRepo {
	return &FeedbackRepo{
		records: make(map[string]models.Feedback),
		keys:    make(map[string]string),
	}
}

func (r *FeedbackRepo) Insert(ctx context.Context, feedback *models.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[feedback.ID]; exists {
		return apperr.New(apperr.KindConflict, "feedback %q already exists", feedback.ID)
	}
	if feedback.IdempotencyKey != "" {
		k := idempotencyIndex(feedback.Author, feedback.IdempotencyKey)
		if _, exists := r.keys[k]; exists {
			return apperr.New(apperr.KindConflict, "idempotency key %q already used", feedback.IdempotencyKey)
		}
		r.keys[k] = feedback.ID
	}
	r.records[feedback.ID] = clone(*feedback)
	r.order = append(r.order, feedback.ID)
	return nil
}

func (r *FeedbackRepo) Get(ctx context.Context, id string) (models.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.records[id]
	if !ok {
		return models.Feedback{}, apperr.NotFound("feedback %q not found", id)
	}
	return clone(f), nil
}

// FindByIdempotencyKey returns the record an author created with key.
func (r *FeedbackRepo) FindByIdempotencyKey(ctx context.Context, author, key string) (models.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.keys[idempotencyIndex(author, key)]
	if !ok {
		return models.Feedback{}, apperr.NotFound("no feedback for idempotency key %q", key)
	}
	return clone(r.records[id]), nil
}

// List returns a sequence over a snapshot taken when iteration starts, in
// insertion order. Each range over the result takes a fresh snapshot.
func (r *FeedbackRepo) List(ctx context.Context, filter models.ListFilter) iter.Seq[models.Feedback] {
	query := strings.ToLower(filter.Query)
	return func(yield func(models.Feedback) bool) {
		for _, f := range r.snapshot() {
			if filter.Status != "" && f.Status != filter.Status {
				continue
			}
			if query != "" && !strings.Contains(strings.ToLower(f.Text), query) {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

func (r *FeedbackRepo) UpdateStatus(ctx context.Context, id string, status models.Status, decidedBy string, at time.Time) (models.Feedback, error) {
	if !status.Terminal() {
		return models.Feedback{}, apperr.Validation("cannot move feedback to %q", status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.records[id]
	if !ok {
		return models.Feedback{}, apperr.NotFound("feedback %q not found", id)
	}
	if f.Status != models.StatusPending {
		return models.Feedback{}, apperr.InvalidTransition("feedback %q is already %s", id, f.Status)
	}

	decidedAt := at
	f.Status = status
	f.DecidedAt = &decidedAt
	f.DecidedBy = decidedBy
	r.records[id] = f
	return clone(f), nil
}

func (r *FeedbackRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *FeedbackRepo) snapshot() []models.Feedback {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Feedback, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, clone(r.records[id]))
	}
	return out
}

// Keys are scoped per author so one caller cannot fetch another's record by
// guessing a key.
func idempotencyIndex(author, key string) string {
	return author + "\x00" + key
}

func clone(f models.Feedback) models.Feedback {
	if f.DecidedAt != nil {
		t := *f.DecidedAt
		f.DecidedAt = &t
	}
	return f
}
