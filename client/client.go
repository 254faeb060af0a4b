// Package client 无界面的协议客户端：握手、等待开局、发送输入、镜像快照
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tetrisduel/protocol"
)

// ErrServerFull 服务端已满员
var ErrServerFull = errors.New("server full")

// Client 一个玩家连接
type Client struct {
	conn  protocol.Conn
	codec protocol.Codec

	PlayerID int

	mu        sync.Mutex
	last      *protocol.Snapshot
	gameOvers int
	over      chan *protocol.GameOver
	pongs     chan int64
}

// Dial 通过 TCP 连接并完成握手
func Dial(ctx context.Context, addr string, codec protocol.Codec, name string) (*Client, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return handshake(protocol.NewStreamConn(c), codec, name)
}

// DialWS 通过 WebSocket 连接并完成握手
func DialWS(ctx context.Context, url string, codec protocol.Codec, name string) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return handshake(protocol.NewWSConn(ws, codec.Binary()), codec, name)
}

func handshake(conn protocol.Conn, codec protocol.Codec, name string) (*Client, error) {
	msg, err := protocol.Recv(conn, codec)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	var id int
	switch m := msg.(type) {
	case *protocol.Welcome:
		id = m.PlayerID
	case *protocol.Full:
		_ = conn.Close()
		return nil, ErrServerFull
	default:
		_ = conn.Close()
		return nil, fmt.Errorf("expected welcome, got %s", msg.MessageType())
	}
	if err := protocol.Send(conn, codec, &protocol.Hello{Name: name}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}
	return &Client{
		conn:     conn,
		codec:    codec,
		PlayerID: id,
		over:     make(chan *protocol.GameOver, 1),
		pongs:    make(chan int64, 1),
	}, nil
}

// WaitStart 阻塞直到收到 start
func (c *Client) WaitStart() (*protocol.Start, error) {
	for {
		msg, err := protocol.Recv(c.conn, c.codec)
		if err != nil {
			if protocol.IsProtocolError(err) {
				continue
			}
			return nil, err
		}
		if st, ok := msg.(*protocol.Start); ok {
			return st, nil
		}
	}
}

// Run 持续接收服务端消息直到连接关闭
func (c *Client) Run() error {
	for {
		msg, err := protocol.Recv(c.conn, c.codec)
		if err != nil {
			if protocol.IsProtocolError(err) {
				continue
			}
			return err
		}
		switch m := msg.(type) {
		case *protocol.Snapshot:
			c.mu.Lock()
			c.last = m
			c.mu.Unlock()
		case *protocol.GameOver:
			c.mu.Lock()
			c.gameOvers++
			c.mu.Unlock()
			select {
			case c.over <- m:
			default:
			}
		case *protocol.Pong:
			select {
			case c.pongs <- m.ServerMs:
			default:
			}
		}
	}
}

// SendInput 发送一次操作，when_ms 为本地时间
func (c *Client) SendInput(ev string) error {
	return protocol.Send(c.conn, c.codec, &protocol.Input{WhenMs: time.Now().UnixMilli(), Ev: ev})
}

// Ping 发送时钟探测，回应通过 Pongs 取得
func (c *Client) Ping() error {
	return protocol.Send(c.conn, c.codec, &protocol.Ping{})
}

func (c *Client) Pongs() <-chan int64 { return c.pongs }

// GameOver 收到结算时可读
func (c *Client) GameOver() <-chan *protocol.GameOver { return c.over }

// GameOvers 已收到的 game_over 数量
func (c *Client) GameOvers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameOvers
}

// Latest 最近一次快照，可能为 nil
func (c *Client) Latest() *protocol.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Me 最近快照中自己的视图
func (c *Client) Me() (protocol.PlayerView, bool) {
	snap := c.Latest()
	if snap == nil {
		return protocol.PlayerView{}, false
	}
	for _, p := range snap.Players {
		if p.ID == c.PlayerID {
			return p, true
		}
	}
	return protocol.PlayerView{}, false
}

func (c *Client) Close() error {
	return c.conn.Close()
}
