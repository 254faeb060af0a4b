// Package protocol 定义客户端与服务端之间的消息、编码与分帧
package protocol

// Type 消息类型标签
type Type string

const (
	TypeWelcome  Type = "welcome"
	TypeHello    Type = "hello"
	TypeStart    Type = "start"
	TypeInput    Type = "input"
	TypeSnapshot Type = "snapshot"
	TypeGameOver Type = "game_over"
	TypeFull     Type = "full"
	TypePing     Type = "ping"
	TypePong     Type = "pong"
)

// Message 所有消息变体实现此接口
type Message interface {
	MessageType() Type
}

// header 解码时先读取类型标签
type header struct {
	Type Type `json:"type" msgpack:"type"`
}

// Welcome 服务端 → 客户端：分配玩家编号
type Welcome struct {
	Type     Type `json:"type" msgpack:"type"`
	PlayerID int  `json:"player_id" msgpack:"player_id"`
}

// Hello 客户端 → 服务端：握手并上报显示名
type Hello struct {
	Type Type   `json:"type" msgpack:"type"`
	Name string `json:"name" msgpack:"name"`
}

// Gravity 开局广播的基础重力参数
type Gravity struct {
	DropIntervalMs int `json:"dropIntervalMs" msgpack:"dropIntervalMs"`
}

// MatchMode 对局模式；Seconds 仅计时赛存在
type MatchMode struct {
	Mode    string `json:"mode" msgpack:"mode"`
	Seconds *int   `json:"seconds,omitempty" msgpack:"seconds,omitempty"`
}

// Start 服务端 → 客户端：开局参数与同步起始时间
type Start struct {
	Type       Type      `json:"type" msgpack:"type"`
	Seed       int64     `json:"seed" msgpack:"seed"`
	BagRule    string    `json:"bagRule" msgpack:"bagRule"`
	Gravity    Gravity   `json:"gravity" msgpack:"gravity"`
	Match      MatchMode `json:"match" msgpack:"match"`
	T0ServerMs int64     `json:"t0_server_ms" msgpack:"t0_server_ms"`
}

// Input 客户端 → 服务端：一次操作；WhenMs 仅作参考，不参与排序
type Input struct {
	Type   Type   `json:"type" msgpack:"type"`
	WhenMs int64  `json:"when_ms" msgpack:"when_ms"`
	Ev     string `json:"ev" msgpack:"ev"`
}

// ActiveView 活动方块视图
type ActiveView struct {
	Kind string `json:"kind" msgpack:"kind"`
	Rot  int    `json:"rot" msgpack:"rot"`
	X    int    `json:"x" msgpack:"x"`
	Y    int    `json:"y" msgpack:"y"`
}

// PlayerView 快照中单个玩家的完整状态
type PlayerView struct {
	ID      int         `json:"id" msgpack:"id"`
	Name    string      `json:"name" msgpack:"name"`
	Board   [][]string  `json:"board" msgpack:"board"`
	Active  *ActiveView `json:"active" msgpack:"active"`
	Next    []string    `json:"next" msgpack:"next"`
	Hold    *string     `json:"hold" msgpack:"hold"`
	CanHold bool        `json:"can_hold" msgpack:"can_hold"`
	Score   int         `json:"score" msgpack:"score"`
	Level   int         `json:"level" msgpack:"level"`
	Lines   int         `json:"lines" msgpack:"lines"`
	Alive   bool        `json:"alive" msgpack:"alive"`
}

// Snapshot 服务端 → 客户端：双方完整状态
type Snapshot struct {
	Type     Type         `json:"type" msgpack:"type"`
	ServerMs int64        `json:"server_ms" msgpack:"server_ms"`
	Players  []PlayerView `json:"players" msgpack:"players"`
	TimeLeft *float64     `json:"time_left,omitempty" msgpack:"time_left,omitempty"`
}

// PlayerResult 结算时单个玩家的成绩
type PlayerResult struct {
	Score int  `json:"score" msgpack:"score"`
	Lines int  `json:"lines" msgpack:"lines"`
	Alive bool `json:"alive" msgpack:"alive"`
}

// GameOver 服务端 → 客户端：对局结束；Winner 为 nil 表示平局
type GameOver struct {
	Type   Type                    `json:"type" msgpack:"type"`
	Reason string                  `json:"reason" msgpack:"reason"`
	Winner *int                    `json:"winner" msgpack:"winner"`
	Result map[string]PlayerResult `json:"result" msgpack:"result"`
}

// Full 服务端 → 客户端：满员通知，随后断开
type Full struct {
	Type Type `json:"type" msgpack:"type"`
}

// Ping 客户端 → 服务端：时钟探测
type Ping struct {
	Type Type `json:"type" msgpack:"type"`
}

// Pong 服务端 → 客户端：回应 Ping
type Pong struct {
	Type     Type  `json:"type" msgpack:"type"`
	ServerMs int64 `json:"server_ms" msgpack:"server_ms"`
}

func (*Welcome) MessageType() Type  { return TypeWelcome }
func (*Hello) MessageType() Type    { return TypeHello }
func (*Start) MessageType() Type    { return TypeStart }
func (*Input) MessageType() Type    { return TypeInput }
func (*Snapshot) MessageType() Type { return TypeSnapshot }
func (*GameOver) MessageType() Type { return TypeGameOver }
func (*Full) MessageType() Type     { return TypeFull }
func (*Ping) MessageType() Type     { return TypePing }
func (*Pong) MessageType() Type     { return TypePong }

// newMessage 按类型标签创建空消息
func newMessage(t Type) (Message, bool) {
	switch t {
	case TypeWelcome:
		return &Welcome{}, true
	case TypeHello:
		return &Hello{}, true
	case TypeStart:
		return &Start{}, true
	case TypeInput:
		return &Input{}, true
	case TypeSnapshot:
		return &Snapshot{}, true
	case TypeGameOver:
		return &GameOver{}, true
	case TypeFull:
		return &Full{}, true
	case TypePing:
		return &Ping{}, true
	case TypePong:
		return &Pong{}, true
	}
	return nil, false
}

// stamp 编码前写入类型标签
func stamp(m Message) {
	t := m.MessageType()
	switch v := m.(type) {
	case *Welcome:
		v.Type = t
	case *Hello:
		v.Type = t
	case *Start:
		v.Type = t
	case *Input:
		v.Type = t
	case *Snapshot:
		v.Type = t
	case *GameOver:
		v.Type = t
	case *Full:
		v.Type = t
	case *Ping:
		v.Type = t
	case *Pong:
		v.Type = t
	}
}
