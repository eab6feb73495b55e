package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreConfig selects and configures the backing kvstore.Store the oplog
// and invocation queue persist through.
type StoreConfig struct {
	Backend     string `json:"backend"`      // memory, redis
	RedisAddr   string `json:"redis_addr"`   // localhost:6379
	RedisDB     int    `json:"redis_db"`     // 0
	RedisPrefix string `json:"redis_prefix"` // golem:
}

// ShardConfig holds this node's shard-manager settings.
type ShardConfig struct {
	NodeID              string        `json:"node_id"`              // stable identity used in ownership records
	AdvertiseAddr       string        `json:"advertise_addr"`       // control plane address other nodes dial to reach this one; defaults to grpc.addr
	HeartbeatInterval   time.Duration `json:"heartbeat_interval"`    // how often this node renews its membership
	HealthCheckInterval time.Duration `json:"health_check_interval"` // how often the registry sweeps for dead nodes
	HeartbeatTimeout    time.Duration `json:"heartbeat_timeout"`     // a node missing this long is reaped
}

// WorkerConfig holds executor-node settings: how many workers this node
// keeps resident and how connect_worker streams poll for new entries.
type WorkerConfig struct {
	Capacity           int           `json:"capacity"`             // resident worker slots (default: 64)
	StreamBufferSize   int           `json:"stream_buffer_size"`   // connect_worker channel buffer (default: 64)
	StreamPollInterval time.Duration `json:"stream_poll_interval"` // connect_worker tail-poll cadence (default: 200ms)
	MaxInvokeRetries   int           `json:"max_invoke_retries"`   // bounded retries on a shard-moved response (default: 3)
}

// DaemonConfig holds daemon-specific settings
type DaemonConfig struct {
	LogLevel string `json:"log_level"`
}

// TracingConfig holds OpenTelemetry tracing settings
type TracingConfig struct {
	Enabled     bool    `json:"enabled"`      // Default: false
	Exporter    string  `json:"exporter"`     // otlp-http (or otlp), stdout
	Endpoint    string  `json:"endpoint"`     // localhost:4318
	ServiceName string  `json:"service_name"` // golem
	SampleRate  float64 `json:"sample_rate"`  // 1.0
}

// MetricsConfig holds Prometheus metrics settings
type MetricsConfig struct {
	Enabled          bool      `json:"enabled"`           // Default: true
	Namespace        string    `json:"namespace"`         // golem
	HistogramBuckets []float64 `json:"histogram_buckets"` // Latency buckets in ms
}

// LoggingConfig holds structured logging settings
type LoggingConfig struct {
	Level          string `json:"level"`            // debug, info, warn, error
	Format         string `json:"format"`           // text, json
	IncludeTraceID bool   `json:"include_trace_id"` // Correlate with traces
}

// ObservabilityConfig holds all observability-related settings
type ObservabilityConfig struct {
	Tracing TracingConfig `json:"tracing"`
	Metrics MetricsConfig `json:"metrics"`
	Logging LoggingConfig `json:"logging"`
}

// GRPCConfig holds the control plane's gRPC listener settings.
type GRPCConfig struct {
	Enabled bool   `json:"enabled"` // Default: true
	Addr    string `json:"addr"`    // :9090
}

// Config is the central configuration struct embedding every daemon's
// component configs. A single binary composing C1-C9 reads the whole
// struct; a binary that only runs a subset of components (e.g. a
// storage-only node) simply ignores the sections it doesn't need.
type Config struct {
	Store         StoreConfig         `json:"store"`
	Shard         ShardConfig         `json:"shard"`
	Worker        WorkerConfig        `json:"worker"`
	Daemon        DaemonConfig        `json:"daemon"`
	Observability ObservabilityConfig `json:"observability"`
	GRPC          GRPCConfig          `json:"grpc"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:     "memory",
			RedisAddr:   "localhost:6379",
			RedisDB:     0,
			RedisPrefix: "golem:",
		},
		Shard: ShardConfig{
			NodeID:              "",
			HeartbeatInterval:   5 * time.Second,
			HealthCheckInterval: 10 * time.Second,
			HeartbeatTimeout:    30 * time.Second,
		},
		Worker: WorkerConfig{
			Capacity:           64,
			StreamBufferSize:   64,
			StreamPollInterval: 200 * time.Millisecond,
			MaxInvokeRetries:   3,
		},
		Daemon: DaemonConfig{
			LogLevel: "info",
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:     false,
				Exporter:    "otlp-http",
				Endpoint:    "localhost:4318",
				ServiceName: "golem",
				SampleRate:  1.0,
			},
			Metrics: MetricsConfig{
				Enabled:          true,
				Namespace:        "golem",
				HistogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
			Logging: LoggingConfig{
				Level:          "info",
				Format:         "text",
				IncludeTraceID: true,
			},
		},
		GRPC: GRPCConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to the config
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GOLEM_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("GOLEM_REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("GOLEM_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.RedisDB = n
		}
	}
	if v := os.Getenv("GOLEM_REDIS_PREFIX"); v != "" {
		cfg.Store.RedisPrefix = v
	}

	if v := os.Getenv("GOLEM_NODE_ID"); v != "" {
		cfg.Shard.NodeID = v
	}
	if v := os.Getenv("GOLEM_SHARD_ADVERTISE_ADDR"); v != "" {
		cfg.Shard.AdvertiseAddr = v
	}
	if v := os.Getenv("GOLEM_SHARD_HEARTBEAT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Shard.HeartbeatInterval = d
		}
	}
	if v := os.Getenv("GOLEM_SHARD_HEALTH_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Shard.HealthCheckInterval = d
		}
	}
	if v := os.Getenv("GOLEM_SHARD_HEARTBEAT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Shard.HeartbeatTimeout = d
		}
	}

	if v := os.Getenv("GOLEM_WORKER_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.Capacity = n
		}
	}
	if v := os.Getenv("GOLEM_STREAM_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.StreamBufferSize = n
		}
	}
	if v := os.Getenv("GOLEM_STREAM_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Worker.StreamPollInterval = d
		}
	}
	if v := os.Getenv("GOLEM_MAX_INVOKE_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.MaxInvokeRetries = n
		}
	}

	if v := os.Getenv("GOLEM_LOG_LEVEL"); v != "" {
		cfg.Daemon.LogLevel = v
	}

	if v := os.Getenv("GOLEM_TRACING_ENABLED"); v != "" {
		cfg.Observability.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("GOLEM_TRACING_ENDPOINT"); v != "" {
		cfg.Observability.Tracing.Endpoint = v
	}
	if v := os.Getenv("GOLEM_TRACING_EXPORTER"); v != "" {
		cfg.Observability.Tracing.Exporter = v
	}
	if v := os.Getenv("GOLEM_TRACING_SERVICE_NAME"); v != "" {
		cfg.Observability.Tracing.ServiceName = v
	}
	if v := os.Getenv("GOLEM_TRACING_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Observability.Tracing.SampleRate = f
		}
	}
	if v := os.Getenv("GOLEM_METRICS_ENABLED"); v != "" {
		cfg.Observability.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("GOLEM_METRICS_NAMESPACE"); v != "" {
		cfg.Observability.Metrics.Namespace = v
	}
	if v := os.Getenv("GOLEM_LOG_FORMAT"); v != "" {
		cfg.Observability.Logging.Format = v
	}
	if v := os.Getenv("GOLEM_LOG_INCLUDE_TRACE_ID"); v != "" {
		cfg.Observability.Logging.IncludeTraceID = parseBool(v)
	}

	if v := os.Getenv("GOLEM_GRPC_ENABLED"); v != "" {
		cfg.GRPC.Enabled = parseBool(v)
	}
	if v := os.Getenv("GOLEM_GRPC_ADDR"); v != "" {
		cfg.GRPC.Addr = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}
