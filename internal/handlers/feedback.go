package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"feedback-backend/internal/apperr"
	"feedback-backend/internal/middleware"
	"feedback-backend/internal/models"
	"feedback-backend/internal/respond"
	"feedback-backend/internal/service"
)

type FeedbackHandler struct {
	svc *service.FeedbackService
}

func NewFeedbackHandler(svc *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

// maxBodyBytes caps request bodies well above the longest allowed text.
const maxBodyBytes = 1 << 16

type SubmitFeedbackRequest struct {
	Author         string `json:"author"`
	Text           string `json:"text"`
	IdempotencyKey string `json:"idempotency_key"`
}

type DecisionRequest struct {
	Decision models.Decision `json:"decision"`
}

// --- POST /feedback ---

func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req SubmitFeedbackRequest
	if err := decodeBody(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	// An explicit author wins; otherwise fall back to the resolved caller.
	author := strings.TrimSpace(req.Author)
	if author == "" {
		if id, ok := middleware.GetIdentity(r.Context()); ok {
			author = id.UserID
		}
	}
	outcome := respond.OutcomeFrom(r.Context())
	if author != "" {
		outcome.SetActor(author)
	}

	feedback, created, err := h.svc.SubmitIdempotent(r.Context(), author, req.Text, req.IdempotencyKey)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	outcome.Set("feedback_id", feedback.ID)
	if !created {
		outcome.Set("duplicate", true)
		respond.JSON(w, http.StatusOK, feedback)
		return
	}
	respond.JSON(w, http.StatusCreated, feedback)
}

// --- GET /feedback ---

func (h *FeedbackHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ListFilter{
		Status: models.Status(strings.TrimSpace(q.Get("status"))),
		Query:  strings.TrimSpace(q.Get("q")),
	}
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	page, err := h.svc.ListPage(r.Context(), filter, offset, limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	outcome := respond.OutcomeFrom(r.Context())
	outcome.Set("status_filter", string(filter.Status))
	outcome.Set("result_count", len(page.Items))
	outcome.Set("total", page.Total)
	respond.JSON(w, http.StatusOK, page)
}

// --- GET /feedback/{id} ---

func (h *FeedbackHandler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	respond.OutcomeFrom(r.Context()).Set("feedback_id", id)

	feedback, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, feedback)
}

// --- POST /feedback/{id}/approve ---

func (h *FeedbackHandler) ApproveFeedback(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, models.DecisionApprove)
}

// --- POST /feedback/{id}/reject ---

func (h *FeedbackHandler) RejectFeedback(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, models.DecisionReject)
}

// --- POST /feedback/{id}/decision ---

func (h *FeedbackHandler) DecideFeedback(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := decodeBody(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.decide(w, r, req.Decision)
}

func (h *FeedbackHandler) decide(w http.ResponseWriter, r *http.Request, decision models.Decision) {
	id := chi.URLParam(r, "id")
	outcome := respond.OutcomeFrom(r.Context())
	outcome.Set("feedback_id", id)
	outcome.Set("decision", string(decision))

	moderator, err := middleware.Authorize(r.Context(), models.RoleModerator)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	feedback, err := h.svc.Decide(r.Context(), id, moderator.UserID, decision)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, feedback)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("request body too large")
		}
		return apperr.Validation("invalid request body")
	}
	return nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("%s must be a non-negative integer", name)
	}
	return n, nil
}
