package game

// Event 客户端输入事件码
type Event string

const (
	EvLeft     Event = "L"
	EvRight    Event = "R"
	EvRotateCW Event = "CW"
	EvRotateCC Event = "CCW"
	EvSoftDrop Event = "SD"
	EvHardDrop Event = "HD"
	EvHold     Event = "HOLD"
)

// ParseEvent 识别事件码；未知事件返回 false，由调用方静默忽略
func ParseEvent(s string) (Event, bool) {
	switch ev := Event(s); ev {
	case EvLeft, EvRight, EvRotateCW, EvRotateCC, EvSoftDrop, EvHardDrop, EvHold:
		return ev, true
	}
	return "", false
}

// NextDepth 预览队列的最小深度
const NextDepth = 8

// scoreTable 按一次消除行数计分（NES 规则），乘以 level+1
var scoreTable = map[int]int{1: 40, 2: 100, 3: 300, 4: 1200}

// Source 方块来源（通常为 *Bag）
type Source interface {
	Next() Kind
}

// Outcome 一次操作的结果，便于上层记录日志与遥测
type Outcome struct {
	Locked    bool
	Cleared   int
	ToppedOut bool
}

// Player 单个玩家的棋盘与计分状态，仅由 Tick 协程修改
type Player struct {
	ID   int
	Name string

	Board   Board
	Active  *Piece
	Hold    Kind
	CanHold bool
	Next    []Kind

	Score      int
	Lines      int
	TotalLines int
	Level      int
	Alive      bool

	src Source
}

// NewPlayer 创建玩家并预先补满预览队列
func NewPlayer(id int, name string, src Source) *Player {
	p := &Player{ID: id, Name: name, CanHold: true, Alive: true, src: src}
	p.refill()
	return p
}

func (p *Player) refill() {
	for len(p.Next) < NextDepth {
		p.Next = append(p.Next, p.src.Next())
	}
}

// Spawn 若无活动方块则从预览队列取出下一个放到出生点；出生即碰撞视为 top-out
func (p *Player) Spawn() {
	if p.Active != nil || !p.Alive {
		return
	}
	k := p.Next[0]
	p.Next = p.Next[1:]
	p.refill()
	p.place(spawnPiece(k))
}

// place 放置活动方块；与棋盘重叠时不提交方块，玩家出局
func (p *Player) place(pc Piece) {
	if p.Board.Collides(pc) {
		p.Active = nil
		p.Alive = false
		return
	}
	p.Active = &pc
}

// Apply 执行一个输入事件；玩家已出局或没有活动方块时为空操作
func (p *Player) Apply(ev Event) Outcome {
	if !p.Alive || p.Active == nil {
		return Outcome{}
	}
	switch ev {
	case EvLeft:
		p.tryMove(-1, 0)
	case EvRight:
		p.tryMove(1, 0)
	case EvRotateCW:
		p.tryRotate(1)
	case EvRotateCC:
		p.tryRotate(-1)
	case EvSoftDrop:
		if p.tryMove(0, 1) {
			p.Score++
			return Outcome{}
		}
		return p.lock()
	case EvHardDrop:
		drop := 0
		for p.tryMove(0, 1) {
			drop++
		}
		p.Score += drop * 2
		return p.lock()
	case EvHold:
		p.hold()
	}
	return Outcome{}
}

// Gravity 强制下落一格，落地则锁定
func (p *Player) Gravity() Outcome {
	if !p.Alive {
		return Outcome{}
	}
	if p.Active == nil {
		p.Spawn()
		return Outcome{}
	}
	if p.tryMove(0, 1) {
		return Outcome{}
	}
	return p.lock()
}

func (p *Player) tryMove(dx, dy int) bool {
	c := *p.Active
	c.X += dx
	c.Y += dy
	if p.Board.Collides(c) {
		return false
	}
	*p.Active = c
	return true
}

// tryRotate 不做踢墙：新状态碰撞则直接拒绝
func (p *Player) tryRotate(dir int) {
	c := *p.Active
	n := c.Kind.Rotations()
	c.Rot = ((c.Rot+dir)%n + n) % n
	if p.Board.Collides(c) {
		return
	}
	*p.Active = c
}

func (p *Player) hold() {
	if !p.CanHold {
		return
	}
	cur := p.Active.Kind
	if p.Hold == None {
		p.Hold = cur
		p.Active = nil
		p.Spawn()
	} else {
		held := p.Hold
		p.Hold = cur
		p.place(spawnPiece(held))
	}
	p.CanHold = false
}

func (p *Player) lock() Outcome {
	p.Board.Stamp(*p.Active)
	p.Active = nil

	cleared := p.Board.ClearFullRows()
	if cleared > 0 {
		p.Lines += cleared
		p.TotalLines += cleared
		p.Level = p.TotalLines / 10
		p.Score += scoreTable[cleared] * (p.Level + 1)
	}
	if p.Board.TopOccupied() {
		p.Alive = false
	}
	p.CanHold = true
	p.Spawn()
	return Outcome{Locked: true, Cleared: cleared, ToppedOut: !p.Alive}
}

// Preview 返回前 n 个预览方块
func (p *Player) Preview(n int) []Kind {
	if n > len(p.Next) {
		n = len(p.Next)
	}
	out := make([]Kind, n)
	copy(out, p.Next[:n])
	return out
}
