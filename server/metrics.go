package server

import (
	"sync/atomic"
)

// MatchMetrics 记录对局运行期的关键指标（用于监控与调试）
type MatchMetrics struct {
	TickCount        int64 // 统计的 Tick 次数
	InputsAccepted   int64 // 进入输入队列的有效操作
	UnknownEvents    int64 // 未知事件码（静默忽略）
	ProtocolErrors   int64 // 无法解析的消息（丢弃）
	SnapshotsSent    int64 // 成功入队的快照
	SnapshotsDropped int64 // 发送队列满被丢弃的快照
	Disconnects      int64 // 连接断开次数
	TotalTickNs      int64 // Tick 累计耗时（纳秒）
}

func (m *MatchMetrics) IncAccepted()        { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *MatchMetrics) IncUnknownEvent()    { atomic.AddInt64(&m.UnknownEvents, 1) }
func (m *MatchMetrics) IncProtocolError()   { atomic.AddInt64(&m.ProtocolErrors, 1) }
func (m *MatchMetrics) IncSnapshotSent()    { atomic.AddInt64(&m.SnapshotsSent, 1) }
func (m *MatchMetrics) IncSnapshotDropped() { atomic.AddInt64(&m.SnapshotsDropped, 1) }
func (m *MatchMetrics) IncDisconnect()      { atomic.AddInt64(&m.Disconnects, 1) }
func (m *MatchMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *MatchMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":        tick,
		"inputs_accepted":   atomic.LoadInt64(&m.InputsAccepted),
		"unknown_events":    atomic.LoadInt64(&m.UnknownEvents),
		"protocol_errors":   atomic.LoadInt64(&m.ProtocolErrors),
		"snapshots_sent":    atomic.LoadInt64(&m.SnapshotsSent),
		"snapshots_dropped": atomic.LoadInt64(&m.SnapshotsDropped),
		"disconnects":       atomic.LoadInt64(&m.Disconnects),
		"avg_tick_ms":       avgMs,
	}
}
