package server

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"

	"tetrisduel/protocol"
)

// EnvPrefix 环境变量前缀，如 TETRISDUEL_PORT
const EnvPrefix = "TETRISDUEL_"

// DefaultPort 默认 TCP 游戏端口
const DefaultPort = 16800

// Config 服务运行配置，来源于环境变量与命令行端口参数
type Config struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"16800"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	Codec    string `env:"CODEC" envDefault:"json"`

	TPS                int `env:"TPS" envDefault:"30"`
	SnapshotIntervalMs int `env:"SNAPSHOT_INTERVAL_MS" envDefault:"100"`
	StartLeadMs        int `env:"START_LEAD_MS" envDefault:"1000"`
	MatchSeconds       int `env:"MATCH_SECONDS" envDefault:"0"`

	LogFile    string `env:"LOG_FILE" envDefault:"app.log"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"debug"`
	LogConsole bool   `env:"LOG_CONSOLE" envDefault:"false"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// LoadConfig 从环境变量加载配置并校验
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigOrDefault 加载失败时返回默认配置与原始错误，由调用方告警后继续运行
func LoadConfigOrDefault() (Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// DefaultConfig 不读环境变量的默认配置（测试与嵌入使用）
func DefaultConfig() Config {
	return Config{
		Port:               DefaultPort,
		HTTPAddr:           ":8080",
		Codec:              "json",
		TPS:                30,
		SnapshotIntervalMs: 100,
		StartLeadMs:        1000,
		LogFile:            "app.log",
		LogLevel:           "debug",
	}
}

// Validate 检查取值范围
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.TPS <= 0 || c.TPS > 1000 {
		return fmt.Errorf("tps out of range: %d", c.TPS)
	}
	if c.SnapshotIntervalMs <= 0 {
		return fmt.Errorf("snapshot interval must be positive: %d", c.SnapshotIntervalMs)
	}
	if c.StartLeadMs < 0 || c.MatchSeconds < 0 {
		return fmt.Errorf("start lead and match seconds must not be negative")
	}
	if _, err := protocol.CodecByName(c.Codec); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// ApplyPortArg 以命令行参数覆盖端口；非法值返回错误且保留原端口，由调用方告警
func (c *Config) ApplyPortArg(arg string) error {
	port, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid port argument %q: %w", arg, err)
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port argument %q: out of range", arg)
	}
	c.Port = port
	return nil
}

// Addr TCP 监听地址
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TPS)
}

func (c Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalMs) * time.Millisecond
}

func (c Config) StartLead() time.Duration {
	return time.Duration(c.StartLeadMs) * time.Millisecond
}

// MatchDuration 计时赛时长，0 表示无尽模式
func (c Config) MatchDuration() time.Duration {
	return time.Duration(c.MatchSeconds) * time.Second
}
