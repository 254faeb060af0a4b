package server

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tetrisduel/game"
	"tetrisduel/protocol"
)

// Phase 对局状态机
type Phase string

const (
	PhaseWaiting   Phase = "waiting"   // 席位未满
	PhaseScheduled Phase = "scheduled" // 已广播 start，等待 t0
	PhaseRunning   Phase = "running"
	PhaseFinished  Phase = "finished"
)

// 结束原因
const (
	ReasonBothDead = "both_dead"
	ReasonTimeUp   = "time_up"
	ReasonShutdown = "shutdown"
)

// previewLen 快照中的预览方块数量
const previewLen = 5

// gameOverWait game_over 入队的最长等待
const gameOverWait = 2 * time.Second

// ConfigPatch 运行期可热更新的参数，由 Tick 协程应用
type ConfigPatch struct {
	SnapshotIntervalMs *int `json:"snapshotIntervalMs,omitempty"`
}

// Match 一场双人对局：权威状态维护在内存，单协程 Tick 推进
type Match struct {
	ID   string
	Seed int64

	cfg     Config
	codec   protocol.Codec
	metrics *MatchMetrics

	seats     [2]*Seat
	leaveChan chan int
	cfgChan   chan ConfigPatch

	phase    atomic.Value // Phase
	tickSeq  atomic.Int64
	finished atomic.Bool
	done     chan struct{}

	// 以下仅由 Tick 协程访问
	t0               time.Time
	deadline         time.Time // 无尽模式为零值
	lastSnapshot     time.Time
	snapshotInterval time.Duration
	span             trace.Span

	result *protocol.GameOver // done 关闭前写入
}

// NewMatch 创建对局；种子取创建时刻的毫秒时间戳低 32 位
func NewMatch(cfg Config, codec protocol.Codec, now time.Time) *Match {
	m := &Match{
		ID:               uuid.NewString(),
		Seed:             now.UnixMilli() & 0xFFFFFFFF,
		cfg:              cfg,
		codec:            codec,
		metrics:          &MatchMetrics{},
		seats:            [2]*Seat{newSeat(1), newSeat(2)},
		leaveChan:        make(chan int, 2),
		cfgChan:          make(chan ConfigPatch, 4),
		done:             make(chan struct{}),
		snapshotInterval: cfg.SnapshotInterval(),
	}
	m.phase.Store(PhaseWaiting)
	return m
}

func (m *Match) Phase() Phase           { return m.phase.Load().(Phase) }
func (m *Match) setPhase(p Phase)       { m.phase.Store(p) }
func (m *Match) Finished() bool         { return m.finished.Load() }
func (m *Match) TickSeq() int64         { return m.tickSeq.Load() }
func (m *Match) Done() <-chan struct{}  { return m.done }
func (m *Match) Metrics() *MatchMetrics { return m.metrics }

// Result 对局结算消息；仅在 Done 关闭后有效
func (m *Match) Result() *protocol.GameOver {
	select {
	case <-m.done:
		return m.result
	default:
		return nil
	}
}

// Seat 按玩家编号（1 或 2）取席位
func (m *Match) Seat(id int) *Seat {
	if id < 1 || id > len(m.seats) {
		return nil
	}
	return m.seats[id-1]
}

// OnInput 入站输入（不立即改变状态），追加到该玩家的队列，等下一次 Tick 处理
func (m *Match) OnInput(id int, in InputEvent) {
	s := m.Seat(id)
	if s == nil {
		return
	}
	select {
	case s.inputs <- in:
		m.metrics.IncAccepted()
	case <-m.done:
	}
}

// RequestLeave 请求在 Tick 线程中将玩家标记为出局，避免并发改动对局状态
func (m *Match) RequestLeave(id int) {
	select {
	case m.leaveChan <- id:
	case <-m.done:
	}
}

// UpdateConfig 提交热更新；队列满时返回 false
func (m *Match) UpdateConfig(p ConfigPatch) bool {
	select {
	case m.cfgChan <- p:
		return true
	default:
		return false
	}
}

// setup 创建双方棋盘并计算同步开局时间，返回要广播的 start 消息
func (m *Match) setup(now time.Time) *protocol.Start {
	m.t0 = now.Add(m.cfg.StartLead())
	for _, s := range m.seats {
		if s.Name == "" {
			s.Name = fmt.Sprintf("P%d", s.ID)
		}
		// 双方使用同一种子的独立袋子，方块序列相同
		s.player = game.NewPlayer(s.ID, s.Name, game.NewBag(m.Seed))
		s.player.Spawn()
		s.lastGravity = m.t0
	}

	mode := protocol.MatchMode{Mode: "endless"}
	if d := m.cfg.MatchDuration(); d > 0 {
		m.deadline = m.t0.Add(d)
		secs := m.cfg.MatchSeconds
		mode = protocol.MatchMode{Mode: "timed", Seconds: &secs}
	}
	m.setPhase(PhaseScheduled)

	return &protocol.Start{
		Seed:       m.Seed,
		BagRule:    game.BagRule,
		Gravity:    protocol.Gravity{DropIntervalMs: game.DropIntervalMs(0)},
		Match:      mode,
		T0ServerMs: m.t0.UnixMilli(),
	}
}

// ProcessInputs 处理当前帧的所有输入（非阻塞 drain），随后处理断线与配置更新
func (m *Match) ProcessInputs() {
	for _, s := range m.seats {
		// 只消费本帧开始时已到达的输入
		for n := len(s.inputs); n > 0; n-- {
			in := <-s.inputs
			alive := s.player.Alive
			out := s.player.Apply(in.Ev)
			m.observe(s, alive, out)
		}
	}
	for {
		select {
		case id := <-m.leaveChan:
			m.markGone(id)
		case p := <-m.cfgChan:
			m.applyConfig(p)
		default:
			return
		}
	}
}

// UpdateWorld 推进重力：每位存活玩家按自身等级的间隔独立下落
func (m *Match) UpdateWorld(now time.Time) {
	for _, s := range m.seats {
		p := s.player
		if !p.Alive {
			continue
		}
		if now.Sub(s.lastGravity) >= game.DropInterval(p.Level) {
			out := p.Gravity()
			s.lastGravity = now
			m.observe(s, true, out)
		}
	}
}

// BroadcastSnapshot 距上次广播超过快照间隔时发送完整快照
func (m *Match) BroadcastSnapshot(now time.Time) {
	if now.Sub(m.lastSnapshot) < m.snapshotInterval {
		return
	}
	m.lastSnapshot = now
	b, err := protocol.Encode(m.codec, m.snapshot(now))
	if err != nil {
		Log.Errorf("match %s: %v", m.ID, err)
		return
	}
	for _, s := range m.seats {
		if s.conn == nil {
			continue
		}
		if s.conn.Enqueue(b) {
			m.metrics.IncSnapshotSent()
		} else {
			m.metrics.IncSnapshotDropped()
		}
	}
}

func (m *Match) snapshot(now time.Time) *protocol.Snapshot {
	snap := &protocol.Snapshot{ServerMs: now.UnixMilli()}
	for _, s := range m.seats {
		snap.Players = append(snap.Players, playerView(s.player))
	}
	if !m.deadline.IsZero() {
		left := m.deadline.Sub(now).Seconds()
		if left < 0 {
			left = 0
		}
		snap.TimeLeft = &left
	}
	return snap
}

func playerView(p *game.Player) protocol.PlayerView {
	v := protocol.PlayerView{
		ID:      p.ID,
		Name:    p.Name,
		Board:   p.Board.Strings(),
		CanHold: p.CanHold,
		Score:   p.Score,
		Level:   p.Level,
		Lines:   p.Lines,
		Alive:   p.Alive,
	}
	if a := p.Active; a != nil {
		v.Active = &protocol.ActiveView{Kind: a.Kind.String(), Rot: a.Rot, X: a.X, Y: a.Y}
	}
	for _, k := range p.Preview(previewLen) {
		v.Next = append(v.Next, k.String())
	}
	if p.Hold != game.None {
		h := p.Hold.String()
		v.Hold = &h
	}
	return v
}

// checkEnd 判断对局是否结束
func (m *Match) checkEnd(now time.Time) (string, bool) {
	if !m.deadline.IsZero() && !now.Before(m.deadline) {
		return ReasonTimeUp, true
	}
	for _, s := range m.seats {
		if s.player.Alive {
			return "", false
		}
	}
	return ReasonBothDead, true
}

func (m *Match) markGone(id int) {
	s := m.Seat(id)
	if s == nil || s.player == nil || !s.player.Alive {
		return
	}
	s.player.Alive = false
	m.metrics.IncDisconnect()
	Log.Infof("match %s: player %d (%s) left, counted as top-out", m.ID, s.ID, s.Name)
	if m.span != nil {
		m.span.AddEvent("player_left", trace.WithAttributes(attribute.Int("player.id", s.ID)))
	}
}

func (m *Match) applyConfig(p ConfigPatch) {
	if p.SnapshotIntervalMs != nil && *p.SnapshotIntervalMs > 0 {
		m.snapshotInterval = time.Duration(*p.SnapshotIntervalMs) * time.Millisecond
		Log.Infof("match %s: snapshot interval -> %s", m.ID, m.snapshotInterval)
	}
}

// observe 记录锁定与出局
func (m *Match) observe(s *Seat, wasAlive bool, out game.Outcome) {
	if out.Cleared > 0 {
		Log.Debugf("match %s: player %d cleared %d lines (level %d, score %d)", m.ID, s.ID, out.Cleared, s.player.Level, s.player.Score)
	}
	if wasAlive && !s.player.Alive {
		Log.Infof("match %s: player %d topped out with score %d", m.ID, s.ID, s.player.Score)
		if m.span != nil {
			m.span.AddEvent("player_out", trace.WithAttributes(
				attribute.Int("player.id", s.ID),
				attribute.Int("player.score", s.player.Score),
			))
		}
	}
}

// decideWinner 分数严格更高者获胜，平分返回 nil
func decideWinner(a, b *game.Player) *int {
	var id int
	switch {
	case a.Score > b.Score:
		id = a.ID
	case b.Score > a.Score:
		id = b.ID
	default:
		return nil
	}
	return &id
}

// finish 结算并向双方各发送一次 game_over，随后关闭连接
func (m *Match) finish(reason string) {
	if m.finished.Swap(true) {
		return
	}
	m.setPhase(PhaseFinished)

	p1, p2 := m.seats[0].player, m.seats[1].player
	msg := &protocol.GameOver{
		Reason: reason,
		Winner: decideWinner(p1, p2),
		Result: map[string]protocol.PlayerResult{},
	}
	for _, s := range m.seats {
		p := s.player
		msg.Result[fmt.Sprintf("p%d", s.ID)] = protocol.PlayerResult{Score: p.Score, Lines: p.Lines, Alive: p.Alive}
	}
	m.result = msg

	b, err := protocol.Encode(m.codec, msg)
	if err != nil {
		Log.Errorf("match %s: %v", m.ID, err)
	}
	for _, s := range m.seats {
		if s.conn == nil {
			continue
		}
		if b != nil && !s.conn.EnqueueWait(b, gameOverWait) {
			Log.Warnf("match %s: game_over to player %d not delivered", m.ID, s.ID)
		}
		s.conn.CloseAfterFlush()
	}

	winner := "draw"
	if msg.Winner != nil {
		winner = fmt.Sprintf("player %d", *msg.Winner)
	}
	Log.Infof("match %s over (%s): winner=%s p1=%d p2=%d", m.ID, reason, winner, p1.Score, p2.Score)
	if m.span != nil {
		m.span.SetAttributes(
			attribute.String("match.reason", reason),
			attribute.String("match.winner", winner),
			attribute.Int("match.p1.score", p1.Score),
			attribute.Int("match.p2.score", p2.Score),
		)
	}
}

// broadcast 编码一次后发给双方
func (m *Match) broadcast(msg protocol.Message) {
	b, err := protocol.Encode(m.codec, msg)
	if err != nil {
		Log.Errorf("match %s: %v", m.ID, err)
		return
	}
	for _, s := range m.seats {
		if s.conn != nil {
			s.conn.Enqueue(b)
		}
	}
}
