package controllers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/backoffice-api/api/responses"
	"github.com/angelmondragon/backoffice-api/pkg/config"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Pinger is implemented by every backing service checked by readiness.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Backoffice-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency in parallel. Any failure turns the
// whole probe into a 503 naming the failing dependencies.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Backoffice-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failed := pingAll(ctx, deps)
		if len(failed) == 0 {
			responses.WriteSuccess(w, map[string]string{"status": "ready"})
			return
		}

		names := make([]string, 0, len(failed))
		details := make(map[string]any, len(failed))
		for name, err := range failed {
			names = append(names, name)
			details[name] = err.Error()
		}
		sort.Strings(names)
		err := pkgerrors.Wrap(pkgerrors.CodeDependency, failed[names[0]], names[0]+" unavailable").WithDetails(details)
		responses.WriteError(ctx, logg, w, err)
	}
}

func pingAll(ctx context.Context, deps map[string]Pinger) map[string]error {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed = map[string]error{}
	)
	for name, dep := range deps {
		if dep == nil {
			continue
		}
		wg.Go(func() {
			if err := dep.Ping(ctx); err != nil {
				mu.Lock()
				failed[name] = err
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return failed
}
