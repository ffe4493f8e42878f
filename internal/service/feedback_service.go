package service

import (
	"context"
	"html"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"feedback-backend/internal/apperr"
	"feedback-backend/internal/metrics"
	"feedback-backend/internal/models"
	"feedback-backend/internal/notify"
	"feedback-backend/internal/profanity"
	"feedback-backend/internal/ratelimit"
	"feedback-backend/internal/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Enqueuer accepts notifications for delivery after the response is sent.
type Enqueuer interface {
	Enqueue(n notify.Notification)
}

type Options struct {
	MinLength int
	MaxLength int
	Limiter   *ratelimit.KeyedLimiter
	Metrics   *metrics.Metrics
}

// FeedbackService owns submission and moderation. Access control happens in
// front of it; every method here assumes the caller is allowed.
type FeedbackService struct {
	store     repository.FeedbackStore
	filter    *profanity.Filter
	notifier  Enqueuer
	log       logrus.FieldLogger
	sanitizer *bluemonday.Policy
	limiter   *ratelimit.KeyedLimiter
	metrics   *metrics.Metrics
	minLength int
	maxLength int

	now   func() time.Time
	newID func() string
}

func NewFeedbackService(store repository.FeedbackStore, filter *profanity.Filter, notifier Enqueuer, log logrus.FieldLogger, opts Options) *FeedbackService {
	if opts.MinLength < 1 {
		opts.MinLength = 1
	}
	if opts.MaxLength < opts.MinLength {
		opts.MaxLength = opts.MinLength
	}
	return &FeedbackService{
		store:     store,
		filter:    filter,
		notifier:  notifier,
		log:       log,
		sanitizer: bluemonday.StrictPolicy(),
		limiter:   opts.Limiter,
		metrics:   opts.Metrics,
		minLength: opts.MinLength,
		maxLength: opts.MaxLength,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Submit validates text and stores it as pending feedback.
func (s *FeedbackService) Submit(ctx context.Context, author, text string) (models.Feedback, error) {
	feedback, _, err := s.SubmitIdempotent(ctx, author, text, "")
	return feedback, err
}

// SubmitIdempotent is Submit with duplicate suppression: a non-empty key that
// the same author already used returns the earlier record and created=false.
// Text is stored as submitted (trimmed); markup is only stripped to look for
// blocked terms hidden behind tags.
func (s *FeedbackService) SubmitIdempotent(ctx context.Context, author, text, key string) (models.Feedback, bool, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		s.metrics.ObserveSubmission("invalid")
		return models.Feedback{}, false, apperr.Validation("author is required")
	}

	text = strings.TrimSpace(text)
	if err := s.validateLength(text); err != nil {
		s.metrics.ObserveSubmission("invalid")
		return models.Feedback{}, false, err
	}

	key = strings.TrimSpace(key)
	if key != "" {
		if existing, ok, err := s.findDuplicate(ctx, author, key); err != nil || ok {
			if ok {
				s.metrics.ObserveSubmission("duplicate")
			}
			return existing, false, err
		}
	}

	if !s.limiter.Allow(author) {
		s.metrics.ObserveSubmission("rate_limited")
		return models.Feedback{}, false, apperr.New(apperr.KindRateLimited, "too many submissions, please try again later")
	}

	if term, found := s.checkProfanity(text); found {
		s.metrics.ObserveSubmission("profanity")
		return models.Feedback{}, false, apperr.New(apperr.KindProfanity, "profanity detected: %q is not allowed", term)
	}

	feedback := models.Feedback{
		ID:             s.newID(),
		Author:         author,
		Text:           text,
		Status:         models.StatusPending,
		IdempotencyKey: key,
		CreatedAt:      s.now(),
	}
	if err := s.store.Insert(ctx, &feedback); err != nil {
		// A concurrent submit with the same key won the insert.
		if key != "" && errors.Is(err, apperr.ErrConflict) {
			if existing, ok, findErr := s.findDuplicate(ctx, author, key); findErr == nil && ok {
				s.metrics.ObserveSubmission("duplicate")
				return existing, false, nil
			}
		}
		s.metrics.ObserveSubmission("error")
		return models.Feedback{}, false, errors.Wrapf(err, "insert feedback %s", feedback.ID)
	}

	s.metrics.ObserveSubmission("created")
	s.log.WithFields(logrus.Fields{
		"action":      "submission",
		"actor":       author,
		"outcome":     "created",
		"feedback_id": feedback.ID,
		"length":      utf8.RuneCountInString(text),
	}).Info("feedback submitted")
	return feedback, true, nil
}

func (s *FeedbackService) findDuplicate(ctx context.Context, author, key string) (models.Feedback, bool, error) {
	existing, err := s.store.FindByIdempotencyKey(ctx, author, key)
	switch {
	case err == nil:
		return existing, true, nil
	case errors.Is(err, apperr.ErrNotFound):
		return models.Feedback{}, false, nil
	}
	return models.Feedback{}, false, errors.Wrap(err, "idempotency lookup")
}

// Decide applies a moderation decision to pending feedback. Store errors are
// returned unchanged. The notification is queued only after the status has
// been committed.
func (s *FeedbackService) Decide(ctx context.Context, id, moderatorID string, decision models.Decision) (models.Feedback, error) {
	status, ok := decision.Status()
	if !ok {
		s.metrics.ObserveDecision("unknown", "invalid")
		return models.Feedback{}, apperr.Validation("unknown decision %q", decision)
	}

	updated, err := s.store.UpdateStatus(ctx, id, status, moderatorID, s.now())
	if err != nil {
		s.metrics.ObserveDecision(string(decision), string(apperr.KindOf(err)))
		return models.Feedback{}, err
	}

	s.metrics.ObserveDecision(string(decision), "ok")
	s.log.WithFields(logrus.Fields{
		"action":      "moderation_decision",
		"actor":       moderatorID,
		"outcome":     string(updated.Status),
		"feedback_id": updated.ID,
		"author":      updated.Author,
	}).Info("feedback moderated")

	s.notifier.Enqueue(notify.FromFeedback(updated))
	return updated, nil
}

func (s *FeedbackService) Get(ctx context.Context, id string) (models.Feedback, error) {
	return s.store.Get(ctx, id)
}

// List delegates to the store. Role checks are the caller's job.
func (s *FeedbackService) List(ctx context.Context, filter models.ListFilter) (iter.Seq[models.Feedback], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation("unknown status %q", filter.Status)
	}
	return s.store.List(ctx, filter), nil
}

// Page is one window over a filtered listing.
type Page struct {
	Items  []models.Feedback `json:"items"`
	Total  int               `json:"total"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
}

// ListPage collects the [offset, offset+limit) window of List, counting every
// match in Total. A non-positive limit means DefaultPageSize.
func (s *FeedbackService) ListPage(ctx context.Context, filter models.ListFilter, offset, limit int) (Page, error) {
	if offset < 0 {
		return Page{}, apperr.Validation("offset must not be negative")
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	seq, err := s.List(ctx, filter)
	if err != nil {
		return Page{}, err
	}

	page := Page{Items: []models.Feedback{}, Offset: offset, Limit: limit}
	for f := range seq {
		if page.Total >= offset && len(page.Items) < limit {
			page.Items = append(page.Items, f)
		}
		page.Total++
	}
	return page, nil
}

// checkProfanity looks at the text as submitted and at its tag-stripped
// form, so "<i>da</i>mn" is caught too.
func (s *FeedbackService) checkProfanity(text string) (string, bool) {
	if term, found := s.filter.Check(text); found {
		return term, true
	}
	return s.filter.Check(html.UnescapeString(s.sanitizer.Sanitize(text)))
}

func (s *FeedbackService) validateLength(text string) error {
	n := utf8.RuneCountInString(text)
	switch {
	case n == 0:
		return apperr.Validation("feedback text is required")
	case n < s.minLength:
		return apperr.Validation("feedback text must be at least %d characters", s.minLength)
	case n > s.maxLength:
		return apperr.Validation("feedback text must be at most %d characters", s.maxLength)
	}
	return nil
}
