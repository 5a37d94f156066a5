package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"olymphub/internal/api/middleware"
	"olymphub/internal/app/service"
	"olymphub/internal/common"
	"olymphub/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type OlympiadHandler struct {
	olympiadService   *service.OlympiadService
	problemService    *service.ProblemService
	enrollmentService *service.EnrollmentService
	submissionService *service.SubmissionService
	scoreboardService *service.ScoreboardService
}

func NewOlympiadHandler(
	olympiadService *service.OlympiadService,
	problemService *service.ProblemService,
	enrollmentService *service.EnrollmentService,
	submissionService *service.SubmissionService,
	scoreboardService *service.ScoreboardService,
) *OlympiadHandler {
	return &OlympiadHandler{
		olympiadService:   olympiadService,
		problemService:    problemService,
		enrollmentService: enrollmentService,
		submissionService: submissionService,
		scoreboardService: scoreboardService,
	}
}

func (h *OlympiadHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listOlympiads)
	r.Get("/{olympiadSlug}", h.getOlympiad) // GET /api/v1/olympiads/spring-math-2026
	r.Get("/{olympiadID}/scoreboard", h.getScoreboard)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/", h.createOlympiad)
		authed.Put("/{olympiadID}", h.updateOlympiad)
		authed.Delete("/{olympiadID}", h.deleteOlympiad)
		authed.Post("/{olympiadID}/problems", h.createProblem)
		authed.Post("/{olympiadID}/enroll", h.enroll)
		authed.Get("/{olympiadID}/submissions", h.listSubmissions)
	})

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Authenticator)
		admin.Use(middleware.AdminOnly)
		admin.Post("/refresh-status", h.refreshStatuses)
	})
}

func (h *OlympiadHandler) listOlympiads(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	status := model.OlympiadStatus(r.URL.Query().Get("status"))
	searchTerm := r.URL.Query().Get("search")

	olympiads, total, err := h.olympiadService.List(r.Context(), page, pageSize, status, searchTerm)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type PaginatedOlympiadsResponse struct {
		Olympiads []model.Olympiad `json:"olympiads"`
		Total     int              `json:"total"`
		Page      int              `json:"page"`
		PageSize  int              `json:"page_size"`
	}
	common.RespondWithJSON(w, http.StatusOK, PaginatedOlympiadsResponse{
		Olympiads: olympiads,
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
	})
}

func (h *OlympiadHandler) getOlympiad(w http.ResponseWriter, r *http.Request) {
	olympiadSlug := chi.URLParam(r, "olympiadSlug")

	// Detail is public; a valid token just adds the viewer's enrollment flag.
	viewerID := middleware.OptionalUserID(r)

	detail, err := h.olympiadService.GetDetailBySlug(r.Context(), olympiadSlug, viewerID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, detail)
}

func (h *OlympiadHandler) createOlympiad(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateOlympiadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	olympiad, err := h.olympiadService.Create(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, olympiad)
}

func (h *OlympiadHandler) updateOlympiad(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	olympiadID := chi.URLParam(r, "olympiadID")

	var req service.UpdateOlympiadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	olympiad, err := h.olympiadService.Update(r.Context(), userID, olympiadID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, olympiad)
}

func (h *OlympiadHandler) deleteOlympiad(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	olympiadID := chi.URLParam(r, "olympiadID")

	if err := h.olympiadService.Delete(r.Context(), userID, olympiadID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Olympiad deleted"})
}

func (h *OlympiadHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	olympiadID := chi.URLParam(r, "olympiadID")

	var req service.CreateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	problem, err := h.problemService.Create(r.Context(), userID, olympiadID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *OlympiadHandler) enroll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	olympiadID := chi.URLParam(r, "olympiadID")

	enrollment, _, err := h.enrollmentService.Enroll(r.Context(), userID, olympiadID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, enrollment)
}

func (h *OlympiadHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	olympiadID := chi.URLParam(r, "olympiadID")

	submissions, err := h.submissionService.ListForOlympiad(r.Context(), userID, olympiadID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submissions)
}

func (h *OlympiadHandler) getScoreboard(w http.ResponseWriter, r *http.Request) {
	olympiadID := chi.URLParam(r, "olympiadID")

	rows, err := h.scoreboardService.Scoreboard(r.Context(), olympiadID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, rows)
}

func (h *OlympiadHandler) refreshStatuses(w http.ResponseWriter, r *http.Request) {
	result, err := h.olympiadService.RefreshAllStatuses(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}
