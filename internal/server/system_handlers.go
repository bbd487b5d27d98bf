package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/papertrade/internal/database"
)

// SystemHandlers serves health and resource endpoints
type SystemHandlers struct {
	log     zerolog.Logger
	dataDir string
	dbs     []*database.DB
}

// NewSystemHandlers creates system handlers over the given databases
func NewSystemHandlers(log zerolog.Logger, dataDir string, dbs ...*database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:     log.With().Str("handler", "system").Logger(),
		dataDir: dataDir,
		dbs:     dbs,
	}
}

// HandleHealth handles GET /api/health.
// Reports per-database health; any failing database turns the overall
// status degraded and the response code 503.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	databases := make(map[string]string, len(h.dbs))
	healthy := true

	for _, db := range h.dbs {
		if err := db.HealthCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database health check failed")
			databases[db.Name()] = "unhealthy"
			healthy = false
			continue
		}
		databases[db.Name()] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	h.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"databases": databases,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleSystemResources handles GET /api/system/resources
func (h *SystemHandlers) HandleSystemResources(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.systemStats()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cpu_percent":    cpuPct,
		"memory_percent": memPct,
		"data_dir":       h.dataDir,
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// systemStats samples CPU over a short window so the endpoint stays fast
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
