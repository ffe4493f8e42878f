package handlers

import (
	"net/http"

	"feedback-backend/internal/respond"
)

// --- GET /health ---

func Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "feedback-backend"})
}
