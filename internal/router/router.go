package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-account-service/internal/config"
	"go-account-service/internal/handler"
	"go-account-service/internal/middleware"
	"go-account-service/internal/model"
)

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	requireAdmin := authMiddleware.RequireRole(model.RoleAdmin)

	r.Route("/api/v1/users", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Post("/register", authHandler.Register)
		api.Post("/login", authHandler.Login)
		api.Post("/refresh-token", authHandler.Refresh)

		api.With(authMiddleware.RequireAuth).Post("/logout", authHandler.Logout)
		api.With(authMiddleware.RequireAuth).Get("/setting", userHandler.Setting)

		api.With(authMiddleware.RequireAuth, requireAdmin).Get("/dashboard", userHandler.Dashboard)
		api.With(authMiddleware.RequireAuth, requireAdmin).Get("/statistics", userHandler.Statistics)
		api.With(authMiddleware.RequireAuth, requireAdmin).Get("/allusers", userHandler.List)
		api.With(authMiddleware.RequireAuth, requireAdmin).Get("/{id}", userHandler.Get)
		api.With(authMiddleware.RequireAuth, requireAdmin).Patch("/update/{id}", userHandler.Update)
		api.With(authMiddleware.RequireAuth, requireAdmin).Delete("/delete/{id}", userHandler.Delete)
	})

	return r
}
