package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/openherd/agentd/internal/domain"
	"github.com/openherd/agentd/internal/domain/agent"
	"github.com/openherd/agentd/internal/port/cache"
	"github.com/openherd/agentd/internal/port/runstore"
	"github.com/openherd/agentd/internal/service"
)

const (
	statusCacheKey   = "agents:status"
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// Handlers holds the dashboard handler dependencies. Runs and Cache are
// optional; the corresponding features degrade gracefully when absent.
type Handlers struct {
	Manager   *service.Manager
	Runs      runstore.Store
	Cache     cache.Cache
	StatusTTL time.Duration
}

// ListAgents returns status projections for every tracked instance. The
// response is cached briefly because dashboards poll this endpoint.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	if h.Cache != nil {
		if data, ok, _ := h.Cache.Get(r.Context(), statusCacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(data)
			return
		}
	}

	statuses := h.Manager.AllAgentStatuses()
	if h.Cache != nil {
		if data, err := json.Marshal(statuses); err == nil {
			_ = h.Cache.Set(r.Context(), statusCacheKey, data, h.StatusTTL)
		}
	}
	writeJSON(w, http.StatusOK, statuses)
}

type createAgentRequest struct {
	Type      string       `json:"type"`
	ID        string       `json:"id,omitempty"`
	Config    agent.Config `json:"config"`
	Autostart bool         `json:"autostart"`
}

// CreateAgent instantiates an agent out-of-band from the catalog.
func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createAgentRequest](w, r)
	if !ok {
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}

	st, err := h.Manager.CreateAgent(r.Context(), req.Type, req.ID, req.Config, req.Autostart)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown agent type")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	h.invalidateStatus(r)
	writeJSON(w, http.StatusCreated, st)
}

// GetAgent returns the status projection of one instance.
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	st, err := h.Manager.AgentStatus(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// StartAgent starts the identified instance.
func (h *Handlers) StartAgent(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if _, err := h.Manager.AgentStatus(id); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	if err := h.Manager.StartAgent(r.Context(), id); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.invalidateStatus(r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// StopAgent stops the identified instance.
func (h *Handlers) StopAgent(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if _, err := h.Manager.AgentStatus(id); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	if err := h.Manager.StopAgent(r.Context(), id); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}

	h.invalidateStatus(r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// RunAgent triggers an out-of-band execution and waits for it. The run's
// error, if any, is surfaced to the caller.
func (h *Handlers) RunAgent(w http.ResponseWriter, r *http.Request) {
	err := h.Manager.RunAgentNow(r.Context(), urlParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "agent not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.invalidateStatus(r)
		writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
	}
}

// EnableAgent marks the named catalog entry enabled.
func (h *Handlers) EnableAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.EnableAgent(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "agent type not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

// DisableAgent marks the named catalog entry disabled. A running instance
// keeps running until explicitly stopped.
func (h *Handlers) DisableAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.DisableAgent(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "agent type not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

// UpdateAgentConfig merges a partial configuration into the persisted one.
// The change applies on the next explicit start.
func (h *Handlers) UpdateAgentConfig(w http.ResponseWriter, r *http.Request) {
	partial, ok := readJSON[agent.Config](w, r)
	if !ok {
		return
	}

	name := urlParam(r, "id")
	if err := h.Manager.UpdateAgentConfig(r.Context(), name, partial); err != nil {
		writeDomainError(w, err, "agent type not found")
		return
	}

	cfg, err := h.Manager.Registry().Config(name)
	if err != nil {
		writeDomainError(w, err, "agent type not found")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// ListAgentRuns returns recent execution records for one instance, newest
// first.
func (h *Handlers) ListAgentRuns(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		writeError(w, http.StatusNotImplemented, "run history is not configured")
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := h.Runs.ListByAgent(r.Context(), urlParam(r, "id"), limit)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	if runs == nil {
		runs = []agent.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// ListRegistry returns the catalog projection.
func (h *Handlers) ListRegistry(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Manager.RegistryStatuses())
}

// ReloadRegistry re-runs discovery and re-reads the persisted
// configuration.
func (h *Handlers) ReloadRegistry(w http.ResponseWriter, r *http.Request) {
	reg := h.Manager.Registry()
	if err := reg.Discover(r.Context()); err != nil {
		writeDomainError(w, err, "discovery failed")
		return
	}
	reg.LoadConfiguration(r.Context())

	h.invalidateStatus(r)
	writeJSON(w, http.StatusOK, reg.TypeStatuses())
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if !h.Manager.Running() {
		status = "shutting down"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *Handlers) invalidateStatus(r *http.Request) {
	if h.Cache != nil {
		_ = h.Cache.Delete(r.Context(), statusCacheKey)
	}
}
