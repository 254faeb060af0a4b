package server

import (
	"context"
	"errors"
	"net"

	"tetrisduel/protocol"
)

// Serve 在监听器上接受 TCP 连接，直到 ctx 取消或监听器关闭
func (mm *Matchmaker) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	Log.Infof("game server listening on %s (codec=%s)", ln.Addr(), mm.codec.Name())
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			Log.Warnf("accept: %v", err)
			continue
		}
		go mm.Handle(protocol.NewStreamConn(c))
	}
}
