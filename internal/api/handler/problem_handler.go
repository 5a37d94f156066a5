package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"olymphub/internal/api/middleware"
	"olymphub/internal/app/service"
	"olymphub/internal/common"
	"olymphub/internal/platform/config"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService    *service.ProblemService
	submissionService *service.SubmissionService
}

func NewProblemHandler(problemService *service.ProblemService, submissionService *service.SubmissionService) *ProblemHandler {
	return &ProblemHandler{problemService: problemService, submissionService: submissionService}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{problemID}", h.getProblem)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Put("/{problemID}", h.updateProblem)
		authed.Delete("/{problemID}", h.deleteProblem)
		authed.Post("/{problemID}/submissions", h.submit)
		authed.Get("/{problemID}/submissions/me", h.listMySubmissions)
	})
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problemID := chi.URLParam(r, "problemID")

	problem, err := h.problemService.Get(r.Context(), problemID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) updateProblem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	problemID := chi.URLParam(r, "problemID")

	var req service.UpdateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	problem, err := h.problemService.Update(r.Context(), userID, problemID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	problemID := chi.URLParam(r, "problemID")

	if err := h.problemService.Delete(r.Context(), userID, problemID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Problem deleted"})
}

func (h *ProblemHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	problemID := chi.URLParam(r, "problemID")

	// Hard cap before anything is spooled to disk; the extra MiB covers
	// multipart framing. The service enforces the exact file limit.
	r.Body = http.MaxBytesReader(w, r.Body, config.AppConfig.MaxSubmissionBytes+(1<<20))
	if err := r.ParseMultipartForm(config.AppConfig.MaxSubmissionBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.RespondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		common.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Missing \"file\" form field: "+err.Error())
		return
	}
	defer file.Close()

	submission, err := h.submissionService.Submit(r.Context(), userID, problemID, service.FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Data:     file,
	})
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, submission)
}

func (h *ProblemHandler) listMySubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	problemID := chi.URLParam(r, "problemID")

	submissions, err := h.submissionService.ListMine(r.Context(), userID, problemID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submissions)
}
