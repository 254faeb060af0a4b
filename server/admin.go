package server

import (
	"encoding/json"
	"net/http"
)

// Routes 注册 WebSocket 接入与管理/监控接口
func (mm *Matchmaker) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", mm.HandleWS)
	mux.HandleFunc("/admin/config", mm.HandleAdminConfig)
	mux.HandleFunc("/metrics", mm.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

// HandleAdminConfig 提供运行配置的读取与更新
// GET /admin/config   返回当前配置
// POST /admin/config  以 JSON 载荷更新部分字段，由 Tick 协程应用到当前对局
func (mm *Matchmaker) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		Codec              string `json:"codec"`
		TPS                int    `json:"tps"`
		SnapshotIntervalMs int    `json:"snapshotIntervalMs"`
		StartLeadMs        int    `json:"startLeadMs"`
		MatchSeconds       int    `json:"matchSeconds"`
	}

	switch r.Method {
	case http.MethodGet:
		cur := cfg{
			Codec:              mm.codec.Name(),
			TPS:                mm.cfg.TPS,
			SnapshotIntervalMs: mm.cfg.SnapshotIntervalMs,
			StartLeadMs:        mm.cfg.StartLeadMs,
			MatchSeconds:       mm.cfg.MatchSeconds,
		}
		writeJSON(w, http.StatusOK, cur)
		return
	case http.MethodPost:
		var body ConfigPatch
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.SnapshotIntervalMs != nil && *body.SnapshotIntervalMs <= 0 {
			http.Error(w, "snapshotIntervalMs must be positive", http.StatusBadRequest)
			return
		}
		m := mm.Current()
		if m == nil || m.Finished() {
			http.Error(w, "no active match", http.StatusConflict)
			return
		}
		if !m.UpdateConfig(body) {
			http.Error(w, "config queue full", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "match": m.ID})
		Log.Infof("config update queued for match %s", m.ID)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出当前对局的运行指标
// GET /metrics
func (mm *Matchmaker) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	m := mm.Current()
	if m == nil {
		writeJSON(w, http.StatusOK, map[string]any{"match": nil})
		return
	}
	payload := map[string]any{
		"match":   m.ID,
		"seed":    m.Seed,
		"phase":   m.Phase(),
		"tick":    m.TickSeq(),
		"metrics": m.metrics.Snapshot(),
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
