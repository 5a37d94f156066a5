package api

import (
	"net/http"
	"time"

	"olymphub/internal/api/handler"
	"olymphub/internal/app/service"
	"olymphub/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	olympiadService *service.OlympiadService,
	problemService *service.ProblemService,
	enrollmentService *service.EnrollmentService,
	submissionService *service.SubmissionService,
	scoreboardService *service.ScoreboardService,
	profileService *service.ProfileService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies a bearer token if present and puts the claims in context.
	// Route groups decide whether authentication is actually required.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Group(func(publicAuth chi.Router) {
			authHandler.RegisterRoutes(publicAuth)
		})

		olympiadHandler := handler.NewOlympiadHandler(
			olympiadService, problemService, enrollmentService, submissionService, scoreboardService)
		v1.Route("/olympiads", olympiadHandler.RegisterRoutes)

		problemHandler := handler.NewProblemHandler(problemService, submissionService)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(submissionService)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		profileHandler := handler.NewProfileHandler(profileService)
		v1.Route("/profile", profileHandler.RegisterRoutes)
		v1.Route("/users", profileHandler.RegisterUserAdminRoutes)
	})

	return r
}
