package server

import (
	"fmt"
	"strings"
	"time"

	"tetrisduel/game"
	"tetrisduel/protocol"
)

// Session 单个连接的握手与输入解码
type Session struct {
	match *Match
	id    int
	name  string
	conn  protocol.Conn
	out   *ClientConn
	codec protocol.Codec
	seq   int64
}

// Handle 接入一个新连接：分配席位 → welcome → 等待 hello → 入座 → 持续读取输入。
// 第三个及以后的连接收到 full 后被关闭
func (mm *Matchmaker) Handle(conn protocol.Conn) {
	m, id, ok := mm.reserve()
	if !ok {
		Log.Infof("reject %s: server full", conn.RemoteAddr())
		_ = protocol.Send(conn, mm.codec, &protocol.Full{})
		_ = conn.Close()
		return
	}

	s := &Session{match: m, id: id, conn: conn, out: NewClientConn(conn), codec: mm.codec}
	s.reply(&protocol.Welcome{PlayerID: id})

	name, err := s.handshake()
	if err != nil {
		Log.Infof("player %d from %s dropped before hello: %v", id, conn.RemoteAddr(), err)
		mm.release(m, id)
		s.out.Close()
		return
	}
	s.name = name
	mm.admit(m, id, name, s.out)
	s.readPump()
}

// handshake 读取 hello；首条消息不是合法 hello 时仍然入座，使用默认名
func (s *Session) handshake() (string, error) {
	def := fmt.Sprintf("P%d", s.id)
	msg, err := protocol.Recv(s.conn, s.codec)
	if err != nil {
		if protocol.IsProtocolError(err) {
			s.match.metrics.IncProtocolError()
			return def, nil
		}
		return "", err
	}
	if h, ok := msg.(*protocol.Hello); ok {
		if name := strings.TrimSpace(h.Name); name != "" {
			return name, nil
		}
	}
	return def, nil
}

// readPump 读取客户端输入，按到达顺序注入该玩家的输入队列
func (s *Session) readPump() {
	defer s.out.Close()
	// 读泵退出时，通知对局在 Tick 线程中将该玩家标记为出局
	defer s.match.RequestLeave(s.id)

	for {
		msg, err := protocol.Recv(s.conn, s.codec)
		if err != nil {
			if protocol.IsProtocolError(err) {
				s.match.metrics.IncProtocolError()
				Log.Debugf("player %d: dropped message: %v", s.id, err)
				continue
			}
			if !s.match.Finished() {
				Log.Infof("player %d (%s) connection lost: %v", s.id, s.name, err)
			}
			return
		}
		switch m := msg.(type) {
		case *protocol.Input:
			ev, ok := game.ParseEvent(m.Ev)
			if !ok {
				s.match.metrics.IncUnknownEvent()
				continue
			}
			s.seq++
			s.match.OnInput(s.id, InputEvent{Seq: s.seq, WhenMs: m.WhenMs, Ev: ev})
		case *protocol.Ping:
			s.reply(&protocol.Pong{ServerMs: time.Now().UnixMilli()})
		default:
			s.match.metrics.IncProtocolError()
			Log.Debugf("player %d: unexpected %s", s.id, msg.MessageType())
		}
	}
}

func (s *Session) reply(msg protocol.Message) {
	b, err := protocol.Encode(s.codec, msg)
	if err != nil {
		Log.Errorf("player %d: %v", s.id, err)
		return
	}
	s.out.Enqueue(b)
}
