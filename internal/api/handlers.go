// Package api exposes HTTP handlers for the activity tracker.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/liamchampton/write-my-performance-review/internal/ai"
	"github.com/liamchampton/write-my-performance-review/internal/domain"
)

const maxBodyBytes = 1 << 20

const (
	msgActivityNotFound    = "Activity not found"
	msgActivityDeleted     = "Activity deleted successfully"
	msgNoActivities        = "No activities provided"
	msgSummaryFailed       = "Could not generate summary. AI service may not be available."
	msgReviewSummaryFailed = "Could not generate review summary. AI service may not be available."
)

// Handler coordinates HTTP requests with the domain service and the summarizer.
type Handler struct {
	service    *domain.Service
	summarizer ai.Summarizer
}

// NewHandler builds a Handler. A nil summarizer behaves as an unconfigured one.
func NewHandler(service *domain.Service, summarizer ai.Summarizer) *Handler {
	if summarizer == nil {
		summarizer = ai.Unavailable{}
	}
	return &Handler{service: service, summarizer: summarizer}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/activities", h.activities)
	mux.HandleFunc("/api/activities/", h.activityByID)
	mux.HandleFunc("/api/categories", h.categories)
	mux.HandleFunc("/api/stats", h.stats)
	mux.HandleFunc("/api/generate-summary", h.generateSummary)
	mux.HandleFunc("/api/generate-review-summary", h.generateReviewSummary)
	mux.HandleFunc("/api/ai-status", h.aiStatus)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listActivities(w, r)
	case http.MethodPost:
		h.createActivity(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/activities/"))
	if err != nil {
		writeError(w, http.StatusNotFound, msgActivityNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getActivity(w, r, id)
	case http.MethodPut:
		h.updateActivity(w, r, id)
	case http.MethodDelete:
		h.deleteActivity(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ListActivities(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{Activities: activities, Total: len(activities)})
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	var req CreateActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	activity, err := h.service.CreateActivity(r.Context(), req.toInput())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request, id int) {
	activity, err := h.service.GetActivity(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request, id int) {
	var req UpdateActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	activity, err := h.service.UpdateActivity(r.Context(), id, req.toPatch())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request, id int) {
	if err := h.service.DeleteActivity(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msgActivityDeleted})
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := h.service.ListCategories(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
	case http.MethodPost:
		var req CreateCategoryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		name, err := h.service.CreateCategory(r.Context(), req.Name)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, CategoryResponse{Name: name})
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) generateSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req GenerateSummaryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	summary, err := h.summarizer.SummarizeActivity(r.Context(), ai.ActivityRequest(req))
	if err != nil {
		log.Printf("api: generate summary: %v", err)
		writeError(w, http.StatusInternalServerError, msgSummaryFailed)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Summary: summary})
}

func (h *Handler) generateReviewSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req GenerateReviewSummaryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Activities) == 0 {
		writeError(w, http.StatusBadRequest, msgNoActivities)
		return
	}

	summary, err := h.summarizer.SummarizeReview(r.Context(), req.Activities)
	if err != nil {
		log.Printf("api: generate review summary for %d activities: %v", len(req.Activities), err)
		writeError(w, http.StatusInternalServerError, msgReviewSummaryFailed)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Summary: summary})
}

func (h *Handler) aiStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, h.summarizer.Status())
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, msgActivityNotFound)
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("api: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody reads a JSON request body into dst, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("api: failed to write response: %v", err)
	}
}
