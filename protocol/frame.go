package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MaxFrameSize 单帧负载上限（1MB）
const MaxFrameSize = 1 << 20

// ErrFrameTooLarge 帧长度超过上限
var ErrFrameTooLarge = errors.New("frame too large")

// writeWait 单次写出的超时
const writeWait = 5 * time.Second

// Conn 按帧收发的持久连接
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(payload []byte) error
	Close() error
	RemoteAddr() string
}

// StreamConn TCP 分帧：4 字节大端长度 + 负载
type StreamConn struct {
	c   net.Conn
	r   *bufio.Reader
	wmu sync.Mutex
}

func NewStreamConn(c net.Conn) *StreamConn {
	return &StreamConn{c: c, r: bufio.NewReader(c)}
}

func (s *StreamConn) ReadFrame() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(s.r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *StreamConn) WriteFrame(payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)

	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = s.c.SetWriteDeadline(time.Now().Add(writeWait))
	_, err := s.c.Write(buf)
	return err
}

func (s *StreamConn) Close() error       { return s.c.Close() }
func (s *StreamConn) RemoteAddr() string { return s.c.RemoteAddr().String() }

// WSConn WebSocket 分帧：一条消息即一帧
type WSConn struct {
	ws     *websocket.Conn
	binary bool
	wmu    sync.Mutex
}

// NewWSConn binary 为 true 时以二进制消息写出（msgpack）
func NewWSConn(ws *websocket.Conn, binary bool) *WSConn {
	ws.SetReadLimit(MaxFrameSize)
	return &WSConn{ws: ws, binary: binary}
}

func (w *WSConn) ReadFrame() ([]byte, error) {
	_, payload, err := w.ws.ReadMessage()
	return payload, err
}

func (w *WSConn) WriteFrame(payload []byte) error {
	mt := websocket.TextMessage
	if w.binary {
		mt = websocket.BinaryMessage
	}
	w.wmu.Lock()
	defer w.wmu.Unlock()
	_ = w.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return w.ws.WriteMessage(mt, payload)
}

func (w *WSConn) Close() error       { return w.ws.Close() }
func (w *WSConn) RemoteAddr() string { return w.ws.RemoteAddr().String() }

// Send 编码并写出一条消息
func Send(conn Conn, c Codec, m Message) error {
	b, err := Encode(c, m)
	if err != nil {
		return err
	}
	return conn.WriteFrame(b)
}

// Recv 读取并解码一条消息。读帧失败原样返回（连接已断），
// 解码失败返回 ErrMalformed / ErrUnknownType，连接仍可继续使用
func Recv(conn Conn, c Codec) (Message, error) {
	b, err := conn.ReadFrame()
	if err != nil {
		return nil, err
	}
	return Decode(c, b)
}

// IsProtocolError 判断错误是否仅为单条消息无法识别
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrUnknownType)
}
