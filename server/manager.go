package server

import (
	"context"
	"sync"
	"time"

	"tetrisduel/protocol"
)

// maxMatches 每个进程生命周期只承载一场对局
const maxMatches = 1

// Matchmaker 管理对局登记表与席位分配
type Matchmaker struct {
	cfg   Config
	codec protocol.Codec

	mu      sync.Mutex
	matches map[string]*Match             // 登记表：match id -> 对局
	cancels map[string]context.CancelFunc // 进行中对局的取消函数
	open    *Match                        // 正在凑人的对局
	last    *Match                        // 最近一场（含已结束），供监控接口使用
	started int
	closed  bool

	wg sync.WaitGroup
}

// NewMatchmaker 创建撮合器；Shutdown 使进行中的对局以 shutdown 结束
func NewMatchmaker(cfg Config) (*Matchmaker, error) {
	codec, err := protocol.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	return &Matchmaker{
		cfg:     cfg,
		codec:   codec,
		matches: make(map[string]*Match),
		cancels: make(map[string]context.CancelFunc),
	}, nil
}

// reserve 为新连接预留席位：先到者为 1 号，后到者为 2 号
func (mm *Matchmaker) reserve() (*Match, int, bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if mm.closed {
		return nil, 0, false
	}
	if mm.open == nil {
		if mm.started >= maxMatches {
			return nil, 0, false
		}
		m := NewMatch(mm.cfg, mm.codec, time.Now())
		mm.open = m
		mm.last = m
		mm.matches[m.ID] = m
	}
	for _, s := range mm.open.seats {
		if !s.reserved {
			s.reserved = true
			return mm.open, s.ID, true
		}
	}
	return nil, 0, false
}

// release 握手失败时归还席位
func (mm *Matchmaker) release(m *Match, id int) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if s := m.Seat(id); s != nil && !s.joined {
		s.reserved = false
	}
}

// admit 握手完成后入座；双方都入座即启动对局
func (mm *Matchmaker) admit(m *Match, id int, name string, conn *ClientConn) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	s := m.Seat(id)
	s.Name = name
	s.conn = conn
	s.joined = true
	Log.Infof("match %s: player %d connected as %q", m.ID, id, name)

	for _, other := range m.seats {
		if !other.joined {
			return
		}
	}
	mm.open = nil
	mm.started++

	ctx, cancel := context.WithCancel(context.Background())
	mm.cancels[m.ID] = cancel
	if mm.closed {
		cancel()
	}
	mm.wg.Add(1)
	go func() {
		defer mm.wg.Done()
		m.Run(ctx)
		mm.remove(m)
	}()
}

func (mm *Matchmaker) remove(m *Match) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if cancel, ok := mm.cancels[m.ID]; ok {
		cancel()
		delete(mm.cancels, m.ID)
	}
	delete(mm.matches, m.ID)
}

// Shutdown 拒绝新连接，并让进行中的对局以 shutdown 结束
func (mm *Matchmaker) Shutdown() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.closed = true
	for _, cancel := range mm.cancels {
		cancel()
	}
}

// Get 按 id 查找登记中的对局
func (mm *Matchmaker) Get(id string) *Match {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.matches[id]
}

// Current 返回最近一场对局，可能为 nil
func (mm *Matchmaker) Current() *Match {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.last
}

// Wait 等待所有对局协程退出
func (mm *Matchmaker) Wait() {
	mm.wg.Wait()
}
