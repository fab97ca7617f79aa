package analytichttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/fieldsales/internal/platform/httpx"
	"github.com/odyssey-erp/fieldsales/internal/shared"
)

// MountRoutes registers the analytics endpoints onto the router. Exports and
// charts share a tighter per-caller limit.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(20, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "")
		}),
	)

	r.Route("/analytics", func(ar chi.Router) {
		ar.Get("/dashboard", h.handleDashboard)
		ar.Get("/ranking", h.handleRanking)
		ar.Get("/weekly", h.handleWeekly)
		ar.Get("/plans", h.handlePlans)
		ar.Get("/periods/{periodID}", h.handlePeriod)
		ar.Get("/zones/{zoneID}/active-period", h.handleActivePeriod)
		ar.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/dashboard.csv", h.handleDashboardCSV)
			gr.Get("/weekly.svg", h.handleWeeklySVG)
			gr.Get("/periods/{periodID}/ranking.csv", h.handlePeriodRankingCSV)
			gr.Get("/periods/{periodID}/cohorts.svg", h.handlePeriodCohortsSVG)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if caller := shared.CallerFromContext(r.Context()); caller != nil {
		if user := strings.TrimSpace(caller.UserID); user != "" {
			return "user:" + user, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
