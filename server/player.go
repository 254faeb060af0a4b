package server

import (
	"time"

	"tetrisduel/game"
)

// inputQueueSize 每位玩家输入队列的容量，满时读协程阻塞等待 Tick 消费
const inputQueueSize = 256

// Seat 对局中的一个席位（玩家 1 或 2）
type Seat struct {
	ID   int
	Name string

	conn   *ClientConn
	inputs chan InputEvent

	// 由撮合器在 mm.mu 保护下修改
	reserved bool
	joined   bool

	// 以下仅由 Tick 协程访问
	player      *game.Player
	lastGravity time.Time
}

func newSeat(id int) *Seat {
	return &Seat{ID: id, inputs: make(chan InputEvent, inputQueueSize)}
}

// Player 返回引擎状态；对局开始前为 nil
func (s *Seat) Player() *game.Player {
	return s.player
}
