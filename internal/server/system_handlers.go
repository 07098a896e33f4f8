package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

var startTime = time.Now()

// handleSystemStatus handles GET /api/system/status
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":     "ok",
		"uptime_s":   int64(time.Since(startTime).Seconds()),
		"goroutines": runtime.NumGoroutine(),
		"go_version": runtime.Version(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status["memory"] = map[string]interface{}{
			"total_mb":     vm.Total / 1024 / 1024,
			"used_mb":      vm.Used / 1024 / 1024,
			"used_percent": vm.UsedPercent,
		}
	}
	if usage, err := disk.Usage(s.dataDir); err == nil {
		status["disk"] = map[string]interface{}{
			"total_gb":     float64(usage.Total) / 1024 / 1024 / 1024,
			"free_gb":      float64(usage.Free) / 1024 / 1024 / 1024,
			"used_percent": usage.UsedPercent,
		}
	}

	snap := s.orch.Snapshot()
	status["analytics"] = map[string]interface{}{
		"computing":       snap.Computing,
		"version":         snap.Version,
		"mode":            string(snap.Mode),
		"last_compute_ms": snap.LastComputeMs,
	}

	s.respondJSON(w, http.StatusOK, status)
}

// handleDatabaseStats handles GET /api/system/database/stats
func (s *Server) handleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledgerDB.GetStats()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":           s.ledgerDB.Name(),
		"size_bytes":     stats.SizeBytes,
		"wal_size_bytes": stats.WALSizeBytes,
		"page_count":     stats.PageCount,
		"page_size":      stats.PageSize,
	})
}
