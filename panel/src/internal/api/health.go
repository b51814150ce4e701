package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os/exec"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Details   any       `json:"details,omitempty"`
}

// HealthChecker defines the interface for health checks
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthManager manages health checks
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	status   map[string]HealthStatus
}

// NewHealthManager creates a new health manager
func NewHealthManager() *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		status:   make(map[string]HealthStatus),
	}
}

// RegisterChecker registers a health checker
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// RunHealthChecks runs all registered health checks
func (hm *HealthManager) RunHealthChecks(ctx context.Context) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	for name, checker := range hm.checkers {
		hm.status[name] = checker.Check(ctx)
	}
}

// GetStatus returns the current health status
func (hm *HealthManager) GetStatus() map[string]HealthStatus {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	status := make(map[string]HealthStatus)
	for k, v := range hm.status {
		status[k] = v
	}
	return status
}

// Healthy runs the checks and reports whether all of them passed
func (hm *HealthManager) Healthy(ctx context.Context) bool {
	hm.RunHealthChecks(ctx)
	for _, s := range hm.GetStatus() {
		if s.Status != "ok" {
			return false
		}
	}
	return true
}

// CommandHealthChecker checks that the programs used by the refresh steps are installed
type CommandHealthChecker struct {
	programs []string
	lookPath func(string) (string, error)
}

// NewCommandHealthChecker creates a checker for programs
func NewCommandHealthChecker(programs []string) *CommandHealthChecker {
	return &CommandHealthChecker{
		programs: programs,
		lookPath: exec.LookPath,
	}
}

// Check implements HealthChecker
func (c *CommandHealthChecker) Check(ctx context.Context) HealthStatus {
	found := make(map[string]string)
	var missing []string
	for _, program := range c.programs {
		path, err := c.lookPath(program)
		if err != nil {
			missing = append(missing, program)
			continue
		}
		found[program] = path
	}
	sort.Strings(missing)

	if len(missing) > 0 {
		return HealthStatus{
			Status:    "error",
			Message:   "required programs not found",
			Timestamp: time.Now(),
			Details: map[string]interface{}{
				"missing": missing,
				"found":   found,
			},
		}
	}

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"found": found,
		},
	}
}

// HealthCheckHandler handles health check requests
func (hm *HealthManager) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	overallStatus := "ok"
	if !hm.Healthy(r.Context()) {
		overallStatus = "error"
	}

	response := map[string]interface{}{
		"status":     overallStatus,
		"timestamp":  time.Now(),
		"components": hm.GetStatus(),
	}

	w.Header().Set("Content-Type", "application/json")
	if overallStatus == "error" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}
