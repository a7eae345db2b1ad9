package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fzft/go-mini-redis/resp"
)

const (
	DefaultAddr          = ":6379"
	DefaultMaxClients    = 10000
	DefaultReadBuffer    = 1024 * 4
	DefaultMaxQueryBuf   = 1024 * 1024 * 1024 // 1GB, same as client-query-buffer-limit
	DefaultTCPKeepAlive  = 300 * time.Second
	EnvConfigAddr        = "MINIREDIS_ADDR"
	EnvConfigLogLevel    = "MINIREDIS_LOG_LEVEL"
	DefaultLogLevel      = "info"
	defaultConfigMaxLine = resp.ProtoInlineMaxSize
)

// Config is the top-level configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Protocol ProtocolConfig `toml:"protocol"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig describes the listener.
type ServerConfig struct {
	Addr       string   `toml:"addr"`
	MaxClients int      `toml:"max_clients"`
	KeepAlive  Duration `toml:"tcp_keepalive"` // 0 disables keepalive probes
}

// ProtocolConfig bounds per-connection memory.
type ProtocolConfig struct {
	ReadBufferSize int `toml:"read_buffer_size"`
	MaxBufferSize  int `toml:"max_buffer_size"`
	MaxLineLen     int `toml:"max_line_len"`
	MaxBulkLen     int `toml:"max_bulk_len"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as a string ("300s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       DefaultAddr,
			MaxClients: DefaultMaxClients,
			KeepAlive:  Duration{DefaultTCPKeepAlive},
		},
		Protocol: ProtocolConfig{
			ReadBufferSize: DefaultReadBuffer,
			MaxBufferSize:  DefaultMaxQueryBuf,
			MaxLineLen:     defaultConfigMaxLine,
			MaxBulkLen:     resp.ProtoMaxBulkLen,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing %s: unknown key %q", path, undecoded[0].String())
		}
	}

	if addr := os.Getenv(EnvConfigAddr); addr != "" {
		cfg.Server.Addr = addr
	}
	if lvl := os.Getenv(EnvConfigLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every limit is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.MaxClients <= 0 {
		return fmt.Errorf("server.max_clients must be positive, got %d", c.Server.MaxClients)
	}
	if c.Server.KeepAlive.Duration < 0 {
		return fmt.Errorf("server.tcp_keepalive must not be negative, got %s", c.Server.KeepAlive)
	}
	p := c.Protocol
	if p.ReadBufferSize <= 0 {
		return fmt.Errorf("protocol.read_buffer_size must be positive, got %d", p.ReadBufferSize)
	}
	if p.MaxBufferSize < p.ReadBufferSize {
		return fmt.Errorf("protocol.max_buffer_size (%d) is smaller than read_buffer_size (%d)", p.MaxBufferSize, p.ReadBufferSize)
	}
	if p.MaxLineLen <= 0 || p.MaxBulkLen <= 0 {
		return fmt.Errorf("protocol.max_line_len and protocol.max_bulk_len must be positive")
	}
	return nil
}

// Limits returns the decoder limits described by the protocol section.
func (c *Config) Limits() resp.Limits {
	return resp.Limits{
		MaxLineLen: c.Protocol.MaxLineLen,
		MaxBulkLen: c.Protocol.MaxBulkLen,
	}
}

// Save writes the configuration as TOML to path.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
