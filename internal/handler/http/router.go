package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"

	"github.com/presensia/attendance-backend-go/internal/handler/http/middleware"
	"github.com/presensia/attendance-backend-go/internal/pkg/jwt"
	"github.com/presensia/attendance-backend-go/internal/pkg/metrics"
)

type Handlers struct {
	Auth         AuthHandler
	Attendance   AttendanceHandler
	Verification VerificationHandler
	Live         LiveHandler
}

func NewRouter(JWTService jwt.Service, env string, allowedOrigin string, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "presensia"),
		slog.String("version", "v1.0.0"),
		slog.String("env", env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Auth.Login)

			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
				r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
				r.Post("/sse-token", h.Auth.SSEToken)
			})
		})

		r.Route("/attendance", func(r chi.Router) {
			// EventSource authenticates with a query-string token, so the
			// stream sits outside the bearer-auth group.
			r.Get("/live", h.Live.Stream)

			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
				r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

				r.Get("/today", h.Attendance.Today)
				r.Get("/history", h.Attendance.History)

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Patch("/{id}", h.Attendance.Correct)
				})

				r.Route("/verification", func(r chi.Router) {
					r.Post("/", h.Verification.Start)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", h.Verification.Get)
						r.Post("/advance", h.Verification.Advance)
						r.Post("/face", h.Verification.SubmitFace)
						r.Post("/location", h.Verification.SubmitLocation)
						r.Post("/confirm", h.Verification.Confirm)
						r.Delete("/", h.Verification.Cancel)
					})
				})
			})
		})
	})
	return r
}
