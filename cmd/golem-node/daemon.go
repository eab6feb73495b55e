package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oriys/golem/internal/config"
	"github.com/oriys/golem/internal/controlplane"
	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/invqueue"
	"github.com/oriys/golem/internal/kvstore"
	"github.com/oriys/golem/internal/logging"
	"github.com/oriys/golem/internal/metrics"
	"github.com/oriys/golem/internal/observability"
	"github.com/oriys/golem/internal/oplog"
	"github.com/oriys/golem/internal/runtime"
	"github.com/oriys/golem/internal/shardmgr"
	"github.com/oriys/golem/internal/template"
	"github.com/oriys/golem/internal/wasmhost"
	"github.com/oriys/golem/internal/workerexec"
	"github.com/oriys/golem/internal/workersvc"
)

func daemonCmd() *cobra.Command {
	var (
		grpcAddr      string
		logLevel      string
		nodeID        string
		advertiseAddr string
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run a Golem node daemon",
		Long:  "Run a Golem node with its template store, oplog, shard manager, worker executor, and control plane gRPC API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if configFile != "" {
				var err error
				cfg, err = config.LoadFromFile(configFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
			}
			config.LoadFromEnv(cfg)

			if cmd.Flags().Changed("grpc") {
				cfg.GRPC.Addr = grpcAddr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Daemon.LogLevel = logLevel
			}
			if cmd.Flags().Changed("node-id") {
				cfg.Shard.NodeID = nodeID
			}
			if cmd.Flags().Changed("advertise-addr") {
				cfg.Shard.AdvertiseAddr = advertiseAddr
			}
			if cfg.Shard.NodeID == "" {
				host, err := os.Hostname()
				if err != nil {
					host = "golem-node"
				}
				cfg.Shard.NodeID = host
			}

			logging.SetLevelFromString(cfg.Daemon.LogLevel)
			logging.InitStructured(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)

			if err := observability.Init(context.Background(), observability.Config{
				Enabled:     cfg.Observability.Tracing.Enabled,
				Exporter:    cfg.Observability.Tracing.Exporter,
				Endpoint:    cfg.Observability.Tracing.Endpoint,
				ServiceName: cfg.Observability.Tracing.ServiceName,
				SampleRate:  cfg.Observability.Tracing.SampleRate,
			}); err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer observability.Shutdown(context.Background())

			if cfg.Observability.Metrics.Enabled {
				metrics.InitPrometheus(cfg.Observability.Metrics.Namespace, cfg.Observability.Metrics.HistogramBuckets)
			}

			var kv kvstore.Store
			switch cfg.Store.Backend {
			case "redis":
				redisStore, err := kvstore.NewRedis(cfg.Store.RedisAddr, "", cfg.Store.RedisDB)
				if err != nil {
					return fmt.Errorf("connect redis store: %w", err)
				}
				kv = redisStore
			default:
				logging.Op().Info("using in-memory store (single node only)")
				kv = kvstore.NewMemory()
			}
			defer kv.Close()

			var queue invqueue.Queue
			switch cfg.Store.Backend {
			case "redis":
				redisQueue, err := invqueue.NewRedis(cfg.Store.RedisAddr, "", cfg.Store.RedisDB)
				if err != nil {
					return fmt.Errorf("connect redis queue: %w", err)
				}
				queue = redisQueue
			default:
				queue = invqueue.NewMemory()
			}

			templates := template.NewMemoryStore(template.BinaryParser{})
			log := oplog.New(kv)
			registry := wasmhost.NewRegistry()

			resolvedAdvertiseAddr := cfg.Shard.AdvertiseAddr
			if resolvedAdvertiseAddr == "" {
				resolvedAdvertiseAddr = cfg.GRPC.Addr
			}
			// A single in-memory kv (the default store backend) is
			// process-local, so it cannot carry membership between
			// processes; only the shared redis backend actually lets a
			// second node process discover this one through shardmgr's
			// SyncFromStore. Single-node/in-memory deployments still work
			// unchanged, just without cross-process membership sync.
			var shardStore kvstore.Store
			if cfg.Store.Backend == "redis" {
				shardStore = kv
			}
			shards := shardmgr.NewRegistry(shardStore, &shardmgr.Config{
				NodeID:              cfg.Shard.NodeID,
				Addr:                resolvedAdvertiseAddr,
				HeartbeatInterval:   cfg.Shard.HeartbeatInterval,
				HealthCheckInterval: cfg.Shard.HealthCheckInterval,
				HeartbeatTimeout:    cfg.Shard.HeartbeatTimeout,
			})
			stopShards := make(chan struct{})
			go shards.Run(stopShards, cfg.Shard.HeartbeatInterval)

			rpcClient := workersvc.NewRPCClient(templates, log)
			node := workerexec.New(cfg.Worker.Capacity, shards, log, registry, templates, func(workerID domain.WorkerID) runtime.Deps {
				return runtime.Deps{
					Clock:  wasmhost.SystemClock{},
					Random: wasmhost.CryptoRandom{},
					KV:     wasmhost.NewStoreKeyValue(kv, workerID.String()),
					HTTP:   wasmhost.NewHTTPCapability(30 * time.Second),
					Blob:   wasmhost.NewBlobCapability(kv),
					RPC:    rpcClient,
				}
			})
			dispatcher := workerexec.NewDispatcher(node, queue)

			forwarder := workersvc.NewGRPCForwarder(shards)
			defer forwarder.Close()

			router := workersvc.NewRouter(shards, cfg.Shard.NodeID)
			svc := workersvc.NewService(router, dispatcher, forwarder, cfg.Worker.MaxInvokeRetries)
			rpcClient.Bind(svc)

			srv := controlplane.New(templates, log, queue, svc, controlplane.Config{
				StreamBufferSize:   cfg.Worker.StreamBufferSize,
				StreamPollInterval: cfg.Worker.StreamPollInterval,
			})

			serveErrCh := make(chan error, 1)
			go func() {
				if err := srv.Start(cfg.GRPC.Addr); err != nil {
					serveErrCh <- err
				}
			}()
			logging.Op().Info("golem node started", "node_id", cfg.Shard.NodeID, "grpc_addr", cfg.GRPC.Addr)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-sigCh:
				logging.Op().Info("shutdown signal received")
			case err := <-serveErrCh:
				logging.Op().Error("control plane server stopped unexpectedly", "error", err)
			}

			srv.Stop()
			close(stopShards)
			return nil
		},
	}

	cmd.Flags().StringVar(&grpcAddr, "grpc", ":9090", "control plane gRPC address")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	cmd.Flags().StringVar(&nodeID, "node-id", "", "this node's shard-manager identity (default: hostname)")
	cmd.Flags().StringVar(&advertiseAddr, "advertise-addr", "", "control plane address other nodes dial to reach this one (default: --grpc)")

	return cmd
}
