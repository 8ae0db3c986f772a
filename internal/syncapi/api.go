// Package syncapi exposes the synchronized alert views and the sync/mutation
// operations over HTTP for dashboard consumers.
package syncapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/wardsync/internal/alert"
	"github.com/linnemanlabs/wardsync/internal/syncer"
)

// ViewStore is the read surface syncapi needs from the alert store.
type ViewStore interface {
	All() []alert.Alert
	Active() []alert.Alert
	Critical() []alert.Alert
	HighRisk() []alert.Alert
	Acknowledged() []alert.Alert
	Stats() alert.Stats
}

// SyncService defines the sync and mutation operations syncapi needs.
type SyncService interface {
	Refresh(ctx context.Context) (*syncer.RefreshResult, error)
	Status() syncer.Status
	Acknowledge(ctx context.Context, id string) error
	Dismiss(ctx context.Context, id string) error
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	views  ViewStore
	svc    SyncService
}

// New creates a new API handler.
func New(logger log.Logger, views ViewStore, svc SyncService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if views == nil {
		panic(xerrors.New("view store is required"))
	}
	if svc == nil {
		panic(xerrors.New("sync service is required"))
	}
	return &API{
		logger: logger,
		views:  views,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router. mutationMW, if given,
// wraps only the acknowledge/dismiss endpoints (the read views stay open to
// the ward network).
func (a *API) RegisterRoutes(r chi.Router, mutationMW ...func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/alerts", a.handleListAlerts)
		r.Get("/alerts/stats", a.handleStats)
		r.With(mutationMW...).Post("/alerts/{id}/acknowledge", a.handleAcknowledge)
		r.With(mutationMW...).Delete("/alerts/{id}", a.handleDismiss)
		r.Post("/sync", a.handleSync)
		r.Get("/sync/status", a.handleSyncStatus)
	})
}

func (a *API) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if view == "" {
		view = "active"
	}

	var alerts []alert.Alert
	switch view {
	case "active":
		alerts = a.views.Active()
	case "critical":
		alerts = a.views.Critical()
	case "high_risk":
		alerts = a.views.HighRisk()
	case "acknowledged":
		alerts = a.views.Acknowledged()
	case "all":
		alerts = a.views.All()
	default:
		http.Error(w, `{"error":"unknown view"}`, http.StatusBadRequest)
		return
	}

	alerts = alert.Search(alerts, r.URL.Query().Get("q"))

	switch sortBy := r.URL.Query().Get("sort"); sortBy {
	case "", "timestamp":
		alert.SortByTimestampDesc(alerts)
	case "severity":
		alert.SortBySeverityRank(alerts)
	case "patient":
		alert.SortByPatientName(alerts)
	default:
		http.Error(w, `{"error":"unknown sort"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("wardsync.view", view),
		attribute.Int("wardsync.alerts", len(alerts)),
	)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
		"view":   view,
	})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.views.Stats())
}

func (a *API) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("wardsync.alert.id", id))

	if err := a.svc.Acknowledge(r.Context(), id); err != nil {
		// the optimistic edit already happened and a resync is underway;
		// the caller still needs to know the backend refused
		a.logger.Error(r.Context(), err, "acknowledge failed", "id", id)
		http.Error(w, `{"error":"backend rejected acknowledge"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "acknowledged",
		"id":     id,
	})
}

func (a *API) handleDismiss(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("wardsync.alert.id", id))

	if err := a.svc.Dismiss(r.Context(), id); err != nil {
		a.logger.Error(r.Context(), err, "dismiss failed", "id", id)
		http.Error(w, `{"error":"backend rejected dismiss"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "dismissed",
		"id":     id,
	})
}

func (a *API) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.Refresh(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "manual sync failed")
		http.Error(w, `{"error":"sync failed"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"skipped": res.Skipped,
		"count":   res.Count,
	})
}

func (a *API) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.svc.Status())
}
