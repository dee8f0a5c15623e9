// Package httpapi implements the HTTP handlers for the matching service.
//
// All routes expect an x-user-id header forwarded by the Gateway.
//
// Routes:
//
//	POST /swipes                         → record a swipe (and its side effects)
//	GET  /matches                        → ranked job feed for the candidate
//	GET  /matches/{jobId}                → score detail + AI rationale vs one job
//	POST /jobs/{id}/view                 → count a job card impression
//	GET  /jobs/{id}/candidates           → ranked candidates for the job
//	GET  /jobs/{id}/applications         → applications received by the job
//	POST /applications                   → apply directly (no swipe)
//	GET  /applications                   → candidate's applications
//	GET  /applications/{id}              → one application
//	POST /applications/{id}/status       → recruiter-driven status transition
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"hospimatch/matching-service/internal/ai"
	"hospimatch/matching-service/internal/application"
	"hospimatch/matching-service/internal/model"
	"hospimatch/matching-service/internal/ranking"
	"hospimatch/matching-service/internal/scoring"
	"hospimatch/matching-service/internal/swipe"
)

// Handler holds shared dependencies.
type Handler struct {
	swipes    *swipe.Service
	apps      *application.Service
	ranker    *ranking.Coordinator
	profiles  application.Profiles
	engine    *scoring.Engine
	rationale *ai.RationaleGenerator // nil when no provider is configured
	poolSize  int
	log       *zap.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(swipes *swipe.Service, apps *application.Service, ranker *ranking.Coordinator,
	profiles application.Profiles, engine *scoring.Engine, rationale *ai.RationaleGenerator,
	poolSize int, log *zap.Logger) *Handler {
	return &Handler{
		swipes:    swipes,
		apps:      apps,
		ranker:    ranker,
		profiles:  profiles,
		engine:    engine,
		rationale: rationale,
		poolSize:  poolSize,
		log:       log,
	}
}

// RegisterRoutes mounts all matching-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swipes", h.handleSwipes)
	mux.HandleFunc("/matches", h.handleMatches)
	mux.HandleFunc("/matches/", h.handleMatchDetail)
	mux.HandleFunc("/jobs/", h.handleJobAction)
	mux.HandleFunc("/applications", h.handleApplications)
	mux.HandleFunc("/applications/", h.handleApplicationAction)
}

// ─── Swipes ──────────────────────────────────────────────────────────────────

// handleSwipes handles POST /swipes.
func (h *Handler) handleSwipes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	var body struct {
		JobID  string `json:"jobId"`
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if body.JobID == "" {
		jsonError(w, "jobId is required", http.StatusBadRequest)
		return
	}

	action, err := swipe.ParseAction(body.Action)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.swipes.RecordSwipe(r.Context(), userID, body.JobID, action, body.Reason)
	if err != nil {
		h.writeDomainError(w, "recordSwipe", err)
		return
	}

	jsonOK(w, rec)
}

// ─── Matches ─────────────────────────────────────────────────────────────────

// handleMatches handles GET /matches: the candidate's ranked job feed.
func (h *Handler) handleMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	ranked, err := h.ranker.RankJobsForCandidate(r.Context(), userID, h.querySize(r))
	if err != nil {
		h.writeDomainError(w, "rankJobs", err)
		return
	}

	jsonOK(w, map[string]any{"matches": ranked, "count": len(ranked)})
}

// handleMatchDetail handles GET /matches/{jobId}: the caller's score against
// one job, with the AI rationale when a provider answers. Rationale failure
// never fails the request; the score is authoritative, the text is garnish.
func (h *Handler) handleMatchDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	jobID := parts[1]

	cand, err := h.profiles.GetCandidateSnapshot(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, "matchDetail", err)
		return
	}
	job, err := h.profiles.GetJobSnapshot(r.Context(), jobID)
	if err != nil {
		h.writeDomainError(w, "matchDetail", err)
		return
	}

	score := h.engine.Score(cand, job, model.CandidateBrowsing)

	resp := map[string]any{
		"jobId": jobID,
		"score": score,
	}
	if h.rationale != nil {
		text, provider, err := h.rationale.Explain(r.Context(), cand, job, score)
		if err != nil {
			h.log.Warn("rationale unavailable", zap.String("jobId", jobID), zap.Error(err))
		} else {
			resp["rationale"] = text
			resp["rationaleProvider"] = string(provider)
		}
	}

	jsonOK(w, resp)
}

// ─── Jobs ────────────────────────────────────────────────────────────────────

// handleJobAction handles /jobs/{id}/view|candidates|applications.
func (h *Handler) handleJobAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}

	jobID := parts[1]
	action := parts[2]

	switch action {
	case "view":
		if r.Method != http.MethodPost {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.countJobView(w, r, jobID)
	case "candidates":
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.listRankedCandidates(w, r, jobID)
	case "applications":
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.listJobApplications(w, r, jobID)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
	}
}

func (h *Handler) countJobView(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := h.swipes.RecordJobView(r.Context(), jobID); err != nil {
		h.writeDomainError(w, "recordJobView", err)
		return
	}
	jsonOK(w, map[string]string{"status": "counted"})
}

func (h *Handler) listRankedCandidates(w http.ResponseWriter, r *http.Request, jobID string) {
	ranked, err := h.ranker.RankCandidatesForJob(r.Context(), jobID, h.querySize(r))
	if err != nil {
		h.writeDomainError(w, "rankCandidates", err)
		return
	}
	jsonOK(w, map[string]any{"candidates": ranked, "count": len(ranked)})
}

func (h *Handler) listJobApplications(w http.ResponseWriter, r *http.Request, jobID string) {
	apps, err := h.apps.ListForJob(r.Context(), jobID)
	if err != nil {
		h.writeDomainError(w, "listJobApplications", err)
		return
	}
	if apps == nil {
		apps = []application.Application{}
	}
	jsonOK(w, map[string]any{"applications": apps, "count": len(apps)})
}

// ─── Applications ────────────────────────────────────────────────────────────

// handleApplications handles POST and GET /applications.
func (h *Handler) handleApplications(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.applyDirect(w, r, userID)
	case http.MethodGet:
		apps, err := h.apps.ListForCandidate(r.Context(), userID)
		if err != nil {
			h.writeDomainError(w, "listApplications", err)
			return
		}
		if apps == nil {
			apps = []application.Application{}
		}
		jsonOK(w, map[string]any{"applications": apps, "count": len(apps)})
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) applyDirect(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		JobID           string `json:"jobId"`
		PersonalMessage string `json:"personalMessage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if body.JobID == "" {
		jsonError(w, "jobId is required", http.StatusBadRequest)
		return
	}

	app, err := h.apps.Apply(r.Context(), userID, body.JobID, body.PersonalMessage)
	if errors.Is(err, application.ErrAlreadyApplied) {
		jsonOK(w, map[string]any{"application": app, "alreadyApplied": true})
		return
	}
	if err != nil {
		h.writeDomainError(w, "apply", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"application": app, "alreadyApplied": false})
}

// handleApplicationAction handles GET /applications/{id} and
// POST /applications/{id}/status.
func (h *Handler) handleApplicationAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		app, err := h.apps.Get(r.Context(), parts[1])
		if err != nil {
			h.writeDomainError(w, "getApplication", err)
			return
		}
		jsonOK(w, app)
	case len(parts) == 3 && parts[2] == "status":
		if r.Method != http.MethodPost {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.updateStatus(w, r, parts[1])
	default:
		jsonError(w, "invalid path", http.StatusNotFound)
	}
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, appID string) {
	var body struct {
		Status          string  `json:"status"`
		RecruiterNotes  *string `json:"recruiterNotes"`
		RejectionReason *string `json:"rejectionReason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	app, err := h.apps.UpdateStatus(r.Context(), appID, application.Status(body.Status), application.UpdateOptions{
		RecruiterNotes:  body.RecruiterNotes,
		RejectionReason: body.RejectionReason,
	})
	if err != nil {
		h.writeDomainError(w, "updateStatus", err)
		return
	}

	jsonOK(w, app)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// querySize reads the optional ?size= pool bound, falling back to the
// configured default.
func (h *Handler) querySize(r *http.Request) int {
	if raw := r.URL.Query().Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= h.poolSize {
			return n
		}
	}
	return h.poolSize
}

// writeDomainError maps service errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, op string, err error) {
	var vErr *application.ValidationError

	switch {
	case errors.As(err, &vErr):
		jsonError(w, vErr.Msg, http.StatusBadRequest)
	case errors.Is(err, model.ErrNotFound) || errors.Is(err, application.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	case errors.Is(err, application.ErrJobUnavailable):
		jsonError(w, "job is no longer accepting applications", http.StatusUnprocessableEntity)
	case errors.Is(err, application.ErrConflict):
		jsonError(w, "concurrent update, retry", http.StatusConflict)
	default:
		h.log.Error("request failed", zap.String("op", op), zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
