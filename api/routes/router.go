package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/galleryve/galleryve-backend/api/controllers"
	"github.com/galleryve/galleryve-backend/api/middleware"
	"github.com/galleryve/galleryve-backend/internal/accessgrants"
	"github.com/galleryve/galleryve-backend/internal/artists"
	"github.com/galleryve/galleryve-backend/internal/audit"
	"github.com/galleryve/galleryve-backend/internal/auth"
	"github.com/galleryve/galleryve-backend/internal/customers"
	"github.com/galleryve/galleryve-backend/internal/history"
	"github.com/galleryve/galleryve-backend/internal/rbac"
	"github.com/galleryve/galleryve-backend/internal/transactions"
	"github.com/galleryve/galleryve-backend/internal/users"
	"github.com/galleryve/galleryve-backend/pkg/auth/session"
	"github.com/galleryve/galleryve-backend/pkg/config"
	"github.com/galleryve/galleryve-backend/pkg/db"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	"github.com/galleryve/galleryve-backend/pkg/logger"
	"github.com/galleryve/galleryve-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services carries every domain service the router mounts.
type Services struct {
	Auth           auth.Service
	Users          users.Service
	RBAC           rbac.Service
	Customers      customers.Service
	Transactions   transactions.Service
	Artists        artists.Service
	AccessRequests accessgrants.Service
	Audit          audit.Service
	History        history.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager sessionManager,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/users", func(r chi.Router) {
			r.Post("/", controllers.UserProvision(svcs.Users, logg))
			r.Get("/", controllers.UserList(svcs.Users, logg))
			r.Get("/{id}", controllers.UserGet(svcs.Users, logg))
			r.Post("/{id}/reset-password", controllers.UserResetPassword(svcs.Users, logg))
			r.Post("/{id}/deactivate", controllers.UserDeactivate(svcs.Users, logg))
			r.Post("/{id}/reactivate", controllers.UserReactivate(svcs.Users, logg))
			r.Put("/{id}/role", controllers.UserAssignRole(svcs.Users, logg))
			r.Put("/{id}/team", controllers.UserAssignTeam(svcs.Users, logg))
		})

		r.Route("/v1/permissions", func(r chi.Router) {
			r.Get("/", controllers.PermissionList(svcs.RBAC, logg))
		})
		r.Route("/v1/roles/{role}/permissions", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Get("/", controllers.RolePermissionList(svcs.RBAC, logg))
			r.Put("/", controllers.RolePermissionSet(svcs.RBAC, logg))
		})

		r.Route("/v1/customers", func(r chi.Router) {
			r.Post("/", controllers.CustomerCreate(svcs.Customers, logg))
			r.Get("/", controllers.CustomerList(svcs.Customers, logg))
			r.Get("/{id}", controllers.CustomerGet(svcs.Customers, logg))
			r.Patch("/{id}", controllers.CustomerUpdate(svcs.Customers, logg))
			r.Delete("/{id}", controllers.CustomerDelete(svcs.Customers, logg))
			r.Post("/{id}/submit", controllers.CustomerSubmit(svcs.Customers, logg))
			r.Post("/{id}/approve", controllers.CustomerApprove(svcs.Customers, logg))
			r.Post("/{id}/reject", controllers.CustomerReject(svcs.Customers, logg))
			r.Get("/{id}/history", controllers.CustomerHistory(svcs.Customers, svcs.History, logg))
		})

		r.Route("/v1/transactions", func(r chi.Router) {
			r.Post("/", controllers.TransactionCreate(svcs.Transactions, logg))
			r.Get("/", controllers.TransactionList(svcs.Transactions, logg))
			r.Get("/{id}", controllers.TransactionGet(svcs.Transactions, logg))
			r.Patch("/{id}", controllers.TransactionUpdate(svcs.Transactions, logg))
			r.Delete("/{id}", controllers.TransactionDelete(svcs.Transactions, logg))
			r.Post("/{id}/submit", controllers.TransactionSubmit(svcs.Transactions, logg))
			r.Post("/{id}/approve", controllers.TransactionApprove(svcs.Transactions, logg))
			r.Post("/{id}/reject", controllers.TransactionReject(svcs.Transactions, logg))
			r.Get("/{id}/history", controllers.TransactionHistory(svcs.Transactions, svcs.History, logg))
		})

		r.Route("/v1/artists", func(r chi.Router) {
			r.Post("/", controllers.ArtistCreate(svcs.Artists, logg))
			r.Get("/", controllers.ArtistList(svcs.Artists, logg))
			r.Get("/{id}", controllers.ArtistGet(svcs.Artists, logg))
			r.Patch("/{id}", controllers.ArtistUpdate(svcs.Artists, logg))
			r.Delete("/{id}", controllers.ArtistDelete(svcs.Artists, logg))
			r.Post("/{id}/submit", controllers.ArtistSubmit(svcs.Artists, logg))
			r.Post("/{id}/approve", controllers.ArtistApprove(svcs.Artists, logg))
			r.Post("/{id}/reject", controllers.ArtistReject(svcs.Artists, logg))
			r.Get("/{id}/history", controllers.ArtistHistory(svcs.Artists, svcs.History, logg))
		})

		r.Route("/v1/access-requests", func(r chi.Router) {
			r.Post("/", controllers.AccessRequestCreate(svcs.AccessRequests, logg))
			r.Get("/mine", controllers.AccessRequestListMine(svcs.AccessRequests, logg))
			r.Get("/pending", controllers.AccessRequestListPending(svcs.AccessRequests, logg))
			r.Get("/{id}", controllers.AccessRequestGet(svcs.AccessRequests, logg))
			r.Post("/{id}/approve", controllers.AccessRequestApprove(svcs.AccessRequests, logg))
			r.Post("/{id}/reject", controllers.AccessRequestReject(svcs.AccessRequests, logg))
		})

		r.Route("/v1/audit", func(r chi.Router) {
			r.Get("/entities/{entityType}/{id}", controllers.AuditListByEntity(svcs.Audit, logg))
			r.Get("/actors/{id}", controllers.AuditListByActor(svcs.Audit, logg))
		})
	})

	return r
}
