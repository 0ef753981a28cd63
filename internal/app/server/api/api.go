// Package api assembles the HTTP surface of the record server.
//
//	GET  /api/v1/health
//	POST /api/v1/auth/register
//	POST /api/v1/auth/login
//	POST /api/v1/auth/logout           (bearer)
//	POST /api/v1/records               (bearer)
//	POST /api/v1/records/batch         (bearer)
//	GET  /api/v1/records               (bearer)
//	GET  /api/v1/records/{healthId}    (bearer)
package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"

	"childhealth/internal/app/server/api/http/health"
	"childhealth/internal/app/server/api/http/middleware"
	"childhealth/internal/app/server/api/http/middleware/auth"
	"childhealth/internal/app/server/api/http/middleware/logger"
	"childhealth/internal/app/server/api/http/middleware/metrics"
	recordAPI "childhealth/internal/app/server/api/http/record"
	userAPI "childhealth/internal/app/server/api/http/user"
	"childhealth/internal/app/server/config"
	"childhealth/internal/domain/record"
	"childhealth/internal/domain/session"
	"childhealth/internal/domain/user"
	"childhealth/internal/infrastructure/storage/postgres"
	"childhealth/internal/infrastructure/telemetry"
)

const (
	title   = "Child Health API"
	version = "1.0.0"
)

// Services backs the handlers. A nil Database skips the readiness check.
type Services struct {
	Record   record.Servicer
	User     user.Servicer
	Session  session.Servicer
	Database health.Pinger
}

type Handlers struct {
	Health *health.Handler
	User   *userAPI.Handler
	Record *recordAPI.Handler
}

// New builds the router with every operation backed by Postgres.
func New(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) *chi.Mux {
	pool := storage.Pool()

	svc := Services{
		Record:   record.NewService(postgres.NewRecordRepository(pool, log), log),
		User:     user.NewService(postgres.NewUserRepository(pool, log), user.NewUINValidator(), log),
		Session:  session.NewService(postgres.NewSessionRepository(storage, log), cfg.SessionTTL, log),
		Database: storage,
	}

	return NewWithServices(svc, log)
}

func NewWithServices(svc Services, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Use(chimw.RequestID, chimw.Recoverer)

	humaConfig := huma.DefaultConfig(title, version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	api := humachi.New(mux, humaConfig)

	h := handlers(svc, log)
	h.Health.SetupRoutes(api)
	h.User.SetupRoutes(api)
	h.Record.SetupRoutes(api)

	return mux
}

func handlers(svc Services, log *slog.Logger) *Handlers {
	authMW := auth.New(svc.Session, log)
	loggerMW := logger.New(log)
	metricsMW := metrics.New(telemetry.Meter(""), log)
	middlewares := middleware.NewContainer()

	middlewares.Add(metricsMW.Middleware(), loggerMW.Middleware())
	healthHandler := health.NewHandler(svc.Database, log, middlewares.GetAllAndClear())

	middlewares.Add(metricsMW.Middleware(), loggerMW.Middleware())
	public := middlewares.GetAllAndClear()
	middlewares.Add(metricsMW.Middleware(), loggerMW.Middleware(), authMW.Middleware())
	userHandler := userAPI.NewHandler(svc.User, svc.Session, log, public, middlewares.GetAllAndClear())

	middlewares.Add(metricsMW.Middleware(), loggerMW.Middleware(), authMW.Middleware())
	recordHandler := recordAPI.NewHandler(svc.Record, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		User:   userHandler,
		Record: recordHandler,
	}
}
