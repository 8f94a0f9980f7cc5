package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/yaobase/tenantd/pkg/admission"
	"github.com/yaobase/tenantd/pkg/catalog"
	"github.com/yaobase/tenantd/pkg/core"
	"github.com/yaobase/tenantd/pkg/log"
	"github.com/yaobase/tenantd/pkg/metrics"
	"github.com/yaobase/tenantd/pkg/pool"
	"github.com/yaobase/tenantd/pkg/queue"
	"github.com/yaobase/tenantd/pkg/tenant"
	"github.com/yaobase/tenantd/pkg/types"
)

// Server is the HTTP admin surface over the core: tenant CRUD, quota
// updates, thread and system introspection, task submission, health,
// and metrics. The SQL, transaction, and data planes of a full
// deployment would sit beside it and consume the same core facade.
type Server struct {
	core        *core.Core
	catalog     *catalog.Catalog // optional
	connections *ConnectionManager
	mux         *http.ServeMux
	server      *http.Server
	logger      zerolog.Logger
}

// NewServer builds the admin server. cat may be nil when persistence
// of tenant specs is not wanted.
func NewServer(c *core.Core, cat *catalog.Catalog) *Server {
	s := &Server{
		core:        c,
		catalog:     cat,
		connections: NewConnectionManager(0),
		mux:         http.NewServeMux(),
		logger:      log.Component("api"),
	}

	s.mux.HandleFunc("GET /health", s.healthHandler)
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /v1/tenants", s.listTenantsHandler)
	s.mux.HandleFunc("POST /v1/tenants", s.createTenantHandler)
	s.mux.HandleFunc("GET /v1/tenants/{id}", s.getTenantHandler)
	s.mux.HandleFunc("DELETE /v1/tenants/{id}", s.removeTenantHandler)
	s.mux.HandleFunc("PUT /v1/tenants/{id}/quotas", s.updateQuotasHandler)
	s.mux.HandleFunc("POST /v1/tenants/{id}/tasks", s.submitTaskHandler)
	s.mux.HandleFunc("GET /v1/system/threads", s.systemThreadsHandler)

	return s
}

// Handler exposes the routing mux, mainly for tests
func (s *Server) Handler() http.Handler { return s.mux }

// Start begins serving on addr; it blocks until Stop or failure
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Msg("Admin API listening")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the HTTP server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Timestamp: time.Now()})
}

type tenantResponse struct {
	types.TenantInfo
	Threads *types.ThreadGroupInfo `json:"threads,omitempty"`
	Memory  *types.ResourceSlot    `json:"memory,omitempty"`
	Disk    *types.ResourceSlot    `json:"disk,omitempty"`
	CPU     *float64               `json:"cpu_usage,omitempty"`
}

func (s *Server) tenantResponse(info types.TenantInfo) tenantResponse {
	resp := tenantResponse{TenantInfo: info}
	if threads, ok := s.core.Pool().TenantThreadInfo(info.ID); ok {
		resp.Threads = &threads
	}
	if slot, ok := s.core.Memory().Slot(info.ID); ok {
		resp.Memory = &slot
	}
	if slot, ok := s.core.Disk().Slot(info.ID); ok {
		resp.Disk = &slot
	}
	if usage, ok := s.core.CPU().Usage(info.ID); ok {
		resp.CPU = &usage
	}
	return resp
}

func (s *Server) listTenantsHandler(w http.ResponseWriter, r *http.Request) {
	infos := s.core.Registry().List()
	resp := make([]tenantResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, s.tenantResponse(info))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createTenantHandler(w http.ResponseWriter, r *http.Request) {
	var spec types.TenantSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant specification")
		return
	}

	if err := s.core.CreateTenant(spec); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	if s.catalog != nil {
		if err := s.catalog.SaveTenant(spec); err != nil {
			s.logger.Error().Err(err).Str("tenant_id", spec.ID).Msg("Failed to persist tenant spec")
		}
	}

	t := s.core.Registry().Get(spec.ID)
	writeJSON(w, http.StatusCreated, s.tenantResponse(t.Info()))
}

func (s *Server) getTenantHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t := s.core.Registry().Get(id)
	if t == nil {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, s.tenantResponse(t.Info()))
}

func (s *Server) removeTenantHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.core.RemoveTenant(id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if s.catalog != nil {
		if err := s.catalog.DeleteTenant(id); err != nil {
			s.logger.Error().Err(err).Str("tenant_id", id).Msg("Failed to delete tenant spec")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateQuotasHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var q types.Quotas
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid quota payload")
		return
	}

	if err := s.core.UpdateTenantQuota(id, q); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	if s.catalog != nil {
		if err := s.catalog.SaveTenant(types.TenantSpec{ID: id, Quotas: q}); err != nil {
			s.logger.Error().Err(err).Str("tenant_id", id).Msg("Failed to persist tenant spec")
		}
	}

	t := s.core.Registry().Get(id)
	writeJSON(w, http.StatusOK, s.tenantResponse(t.Info()))
}

type submitRequest struct {
	User       string `json:"user"`
	Credential string `json:"credential"`
	SleepMS    int    `json:"sleep_ms"`
	Count      int    `json:"count"`
}

type submitResponse struct {
	RequestID string `json:"request_id"`
	Submitted int    `json:"submitted"`
	QueueSize int    `json:"queue_size"`
}

// submitTaskHandler admits the caller and enqueues synthetic work units
// on the tenant's thread group. It stands in for the SQL/data planes of
// a full deployment.
func (s *Server) submitTaskHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid submit payload")
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.User == "" {
		req.User = "anonymous"
	}

	if !s.connections.Acquire(id) {
		writeError(w, http.StatusTooManyRequests, "tenant connection limit reached")
		return
	}
	defer s.connections.Release(id)

	ctx, err := s.core.Admit(req.User+"@"+id, req.Credential)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	sleep := time.Duration(req.SleepMS) * time.Millisecond
	stats := ctx.Stats
	for i := 0; i < req.Count; i++ {
		task := queue.Func(func() {
			start := time.Now()
			if sleep > 0 {
				time.Sleep(sleep)
			}
			stats.AddCPU(time.Since(start).Seconds())
		})
		if err := s.core.Submit(id, task); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
	}

	info, _ := s.core.Pool().TenantThreadInfo(id)
	writeJSON(w, http.StatusAccepted, submitResponse{
		RequestID: ctx.ID,
		Submitted: req.Count,
		QueueSize: info.QueueSize,
	})
}

func (s *Server) systemThreadsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.core.Pool().SystemThreadInfo())
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tenant.ErrTenantExists):
		return http.StatusConflict
	case errors.Is(err, tenant.ErrTenantUnknown), errors.Is(err, pool.ErrGroupUnknown):
		return http.StatusNotFound
	case errors.Is(err, tenant.ErrInvalidTenant), errors.Is(err, pool.ErrInvalidTask):
		return http.StatusBadRequest
	case errors.Is(err, pool.ErrThreadBudget), errors.Is(err, admission.ErrQuotaDenied):
		return http.StatusTooManyRequests
	case errors.Is(err, admission.ErrAuthFailed):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
