package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/fieldstock/fieldstock-backend/api/responses"
	"github.com/fieldstock/fieldstock-backend/pkg/config"
	pkgerrors "github.com/fieldstock/fieldstock-backend/pkg/errors"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is any dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NamedPinger pairs a dependency with its name for the readiness payload.
type NamedPinger struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FieldStock-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...NamedPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		w.Header().Set("X-FieldStock-Env", cfg.App.Env)

		checks := map[string]string{}
		for _, dep := range deps {
			if dep.Pinger == nil {
				checks[dep.Name] = "skipped"
				continue
			}
			if err := dep.Pinger.Ping(ctx); err != nil {
				checks[dep.Name] = "down"
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, dep.Name+" unavailable").WithDetails(checks))
				return
			}
			checks[dep.Name] = "up"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
