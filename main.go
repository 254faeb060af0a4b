package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tetrisduel/server"
	"tetrisduel/telemetry"
)

// tetrisduel 入口：启动 TCP 游戏服务 + HTTP（WebSocket 与管理接口）
// 用法：tetrisduel [port]
func main() {
	// 环境配置非法时告警并使用默认值
	cfg, cfgErr := server.LoadConfigOrDefault()
	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel, cfg.LogConsole); err != nil {
		panic(err)
	}
	defer server.SyncLogger()
	if cfgErr != nil {
		server.Log.Warnf("%v; using default config", cfgErr)
	}

	// 可选的端口参数，非法时告警并使用默认值
	if len(os.Args) > 1 {
		if err := cfg.ApplyPortArg(os.Args[1]); err != nil {
			server.Log.Warnf("%v; using port %d", err, cfg.Port)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		server.Log.Warnf("tracing disabled: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	mm, err := server.NewMatchmaker(cfg)
	if err != nil {
		server.Log.Fatalf("matchmaker: %v", err)
	}

	// 监听失败是唯一的致命错误
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		server.Log.Fatalf("listen %s: %v", cfg.Addr(), err)
	}
	httpLn, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		server.Log.Fatalf("listen %s: %v", cfg.HTTPAddr, err)
	}

	mux := http.NewServeMux()
	mm.Routes(mux)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mm.Serve(gctx, ln)
	})
	g.Go(func() error {
		server.Log.Infof("ws + admin listening on %s", httpLn.Addr())
		if err := srv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		mm.Shutdown()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		server.Log.Errorf("server: %v", err)
	}
	server.Log.Info("Shutting down...")
	mm.Wait()
}
