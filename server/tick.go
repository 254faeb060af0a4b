package server

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tetrisduel/telemetry"
)

// Run 对局主循环（单协程推进世界）：广播 start → 等待 t0 → 固定频率 Tick → 结算
func (m *Match) Run(ctx context.Context) {
	defer close(m.done)

	ctx, span := telemetry.Tracer().Start(ctx, "match", trace.WithAttributes(
		attribute.String("match.id", m.ID),
		attribute.Int64("match.seed", m.Seed),
	))
	defer span.End()
	m.span = span

	start := m.setup(time.Now())
	m.broadcast(start)
	Log.Infof("match %s scheduled: seed=%d p1=%s p2=%s t0=%d", m.ID, m.Seed, m.seats[0].Name, m.seats[1].Name, start.T0ServerMs)

	wait := time.NewTimer(time.Until(m.t0))
	select {
	case <-ctx.Done():
		wait.Stop()
		m.finish(ReasonShutdown)
		return
	case <-wait.C:
	}
	m.setPhase(PhaseRunning)
	span.AddEvent("start")
	Log.Infof("match %s started", m.ID)

	ticker := time.NewTicker(m.cfg.TickInterval())
	defer ticker.Stop()

	reason := ReasonShutdown
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case now := <-ticker.C:
			// 核心循环：处理输入 → 更新世界 → 广播结果 → 判定结束
			begin := time.Now()
			r, over := m.step(now)
			m.metrics.AddTick(time.Since(begin).Nanoseconds())
			if over {
				reason = r
				break loop
			}
		}
	}
	m.finish(reason)
}

// step 执行一个完整 Tick，期间不让出给其他协程修改对局状态
func (m *Match) step(now time.Time) (string, bool) {
	m.tickSeq.Add(1)
	m.ProcessInputs()
	m.UpdateWorld(now)
	m.BroadcastSnapshot(now)
	return m.checkEnd(now)
}
