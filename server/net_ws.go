package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tetrisduel/protocol"
)

// sendQueueSize 每个连接的发送队列容量
const sendQueueSize = 64

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	conn protocol.Conn
	send chan []byte

	// done 关闭后不再接受新消息，写协程写完已入队的消息后退出
	done      chan struct{}
	closeOnce sync.Once

	// flushed 在写协程退出后关闭
	flushed chan struct{}
}

// NewClientConn 创建包装并启动写协程
func NewClientConn(conn protocol.Conn) *ClientConn {
	c := &ClientConn{
		conn:    conn,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性，丢弃（防止阻塞 Tick）
		return false
	}
}

// EnqueueWait 在限定时间内等待队列空位，用于不可丢弃的消息（game_over）
func (c *ClientConn) EnqueueWait(b []byte, timeout time.Duration) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case c.send <- b:
		return true
	case <-c.done:
		return false
	case <-timer.C:
		return false
	}
}

// CloseAfterFlush 停止接收新消息，写协程写完剩余消息后关闭连接
func (c *ClientConn) CloseAfterFlush() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Close 停止发送并立即关闭底层连接
func (c *ClientConn) Close() {
	c.CloseAfterFlush()
	_ = c.conn.Close()
}

// Flushed 写协程退出后可读
func (c *ClientConn) Flushed() <-chan struct{} {
	return c.flushed
}

// writePump 独立协程，负责从 send 队列写出到连接
func (c *ClientConn) writePump() {
	defer close(c.flushed)
	defer c.conn.Close()
	for {
		select {
		case msg := <-c.send:
			if !c.write(msg) {
				return
			}
		case <-c.done:
			// 写完已入队的消息
			for {
				select {
				case msg := <-c.send:
					if !c.write(msg) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *ClientConn) write(msg []byte) bool {
	if err := c.conn.WriteFrame(msg); err != nil {
		Log.Debugf("write to %s failed: %v", c.conn.RemoteAddr(), err)
		// 连接已坏，唤醒等待中的 EnqueueWait
		c.CloseAfterFlush()
		return false
	}
	return true
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：一条 WS 消息即一帧，与 TCP 接入共用同一撮合器
func (mm *Matchmaker) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}
	go mm.Handle(protocol.NewWSConn(ws, mm.codec.Binary()))
}
