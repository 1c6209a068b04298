package agent

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mohitkumar/pollster/analytics"
	"github.com/mohitkumar/pollster/cluster"
	"github.com/mohitkumar/pollster/config"
	"github.com/mohitkumar/pollster/connector"
	"github.com/mohitkumar/pollster/connector/httppoll"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/metadata"
	"github.com/mohitkumar/pollster/metrics"
	"github.com/mohitkumar/pollster/persistence"
	"github.com/mohitkumar/pollster/persistence/cassandra"
	"github.com/mohitkumar/pollster/persistence/memory"
	"github.com/mohitkumar/pollster/persistence/redis"
	"github.com/mohitkumar/pollster/persistence/sqlstore"
	"github.com/mohitkumar/pollster/rest"
	"github.com/mohitkumar/pollster/rpc"
	"github.com/mohitkumar/pollster/scheduler"
	"github.com/mohitkumar/pollster/service"
	"github.com/mohitkumar/pollster/sink"
	"github.com/mohitkumar/pollster/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const DEFAULT_CLUSTER_REFRESH = 5 * time.Second

type Agent struct {
	Config          config.Config
	backend         persistence.BackendLocker
	queue           persistence.Queue
	metadataStorage metadata.MetadataStorage
	metadataService metadata.MetadataService
	connectors      *connector.Registry
	metrics         *metrics.PrometheusMetrics
	collector       analytics.TriggerDataCollector
	tracerProvider  *sdktrace.TracerProvider
	ring            *cluster.Ring
	membership      *cluster.Membership
	ringRefresher   *util.TickWorker
	triggerService  *service.TriggerService
	scheduler       *scheduler.Scheduler
	httpServer      *rest.Server
	grpcServer      *grpc.Server
	closers         []func() error
	shutdown        bool
	shutdowns       chan struct{}
	shutdownLock    sync.Mutex
	wg              sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a := &Agent{
		Config:    config,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.setupStorage,
		a.setupQueue,
		a.setupMetadata,
		a.setupObservability,
		a.setupCluster,
		a.setupTriggerService,
		a.setupScheduler,
		a.setupHttpServer,
		a.setupGrpcServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		store := redis.NewRedisStore(a.redisConfig())
		a.closers = append(a.closers, store.Close)
		a.backend = store
	case config.STORAGE_TYPE_SQLITE:
		store, err := sqlstore.NewSQLiteStore(a.Config.SQLConfig.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store.Close)
		a.backend = store
	case config.STORAGE_TYPE_MYSQL:
		store, err := sqlstore.NewMySQLStore(a.Config.SQLConfig.MySQLDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store.Close)
		a.backend = store
	case config.STORAGE_TYPE_CASSANDRA:
		store, err := cassandra.NewCassandraStore(cassandra.Config{
			Addrs:    a.Config.CassandraConfig.Hosts,
			KeySpace: a.Config.CassandraConfig.Keyspace,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		a.backend = store
	default:
		a.backend = memory.NewMemoryStore()
	}
	logger.Info("trigger state storage ready", zap.String("type", string(a.Config.StorageType)))
	return nil
}

func (a *Agent) redisConfig() redis.Config {
	return redis.Config{
		Addrs:     a.Config.RedisConfig.Addrs,
		Namespace: a.Config.RedisConfig.Namespace,
		PoolSize:  a.Config.RedisConfig.PoolSize,
		Password:  a.Config.RedisConfig.Password,
	}
}

func (a *Agent) setupQueue() error {
	switch a.Config.QueueType {
	case config.QUEUE_TYPE_REDIS:
		a.queue = redis.NewRedisQueue(a.redisConfig())
	default:
		a.queue = memory.NewMemoryQueue()
	}
	return nil
}

func (a *Agent) setupMetadata() error {
	a.connectors = connector.NewRegistry()
	a.connectors.Register(connector.STATIC_CONNECTOR, connector.NewStaticConnector)
	a.connectors.Register(httppoll.NAME, httppoll.Factory(http.DefaultClient))

	if a.Config.StorageType == config.STORAGE_TYPE_REDIS {
		a.metadataStorage = redis.NewRedisMetadataStorage(a.redisConfig())
	} else {
		a.metadataStorage = metadata.NewMemoryMetadataStorage()
	}
	a.metadataService = metadata.NewMetadataService(a.metadataStorage, a.connectors, a.Config.PollerConfig.MetadataCacheTTL)
	if a.Config.TriggerFile != "" {
		return metadata.Seed(context.Background(), a.metadataService, a.Config.TriggerFile)
	}
	return nil
}

func (a *Agent) setupObservability() error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewPrometheusMetrics(registry)

	var err error
	a.collector, err = analytics.NewDataCollector(a.Config.AnalyticsConfig)
	if err != nil {
		return err
	}
	a.tracerProvider = sdktrace.NewTracerProvider()
	return nil
}

func (a *Agent) setupCluster() error {
	a.ring = cluster.NewRing(cluster.RingConfig{PartitionCount: a.Config.ClusterConfig.PartitionCount})
	if !a.Config.ClusterConfig.Clustered() {
		return nil
	}
	rpcAddr, err := a.Config.RPCAddr()
	if err != nil {
		return err
	}
	a.membership, err = cluster.New(a.ring, cluster.Config{
		NodeName:       a.Config.ClusterConfig.NodeName,
		BindAddr:       a.Config.ClusterConfig.BindAddr,
		RPCAddr:        rpcAddr,
		Tags:           a.Config.ClusterConfig.Tags,
		StartJoinAddrs: a.Config.ClusterConfig.StartJoinAddrs,
	})
	if err != nil {
		return err
	}
	tick := a.Config.PollerConfig.ClusterRefreshTick
	if tick <= 0 {
		tick = DEFAULT_CLUSTER_REFRESH
	}
	a.ringRefresher = util.NewTickWorker("cluster-refresh", tick, a.ring.RefreshCluster, &a.wg)
	return nil
}

func (a *Agent) setupTriggerService() error {
	recorder := multiRecorder{a.metrics, a.collector}
	a.triggerService = service.NewTriggerService(
		a.metadataService,
		a.connectors,
		persistence.NewScopedStore(a.backend),
		a.backend,
		sink.NewQueueSink(a.queue, a.Config.PollerConfig.SinkRetryInterval, uint64(a.Config.PollerConfig.SinkMaxRetries)),
		recorder,
		service.TriggerServiceConfig{
			SampleSize: a.Config.PollerConfig.SampleSize,
			UseLease:   a.Config.PollerConfig.UseLease,
			LeaseTTL:   a.Config.PollerConfig.LeaseTTL,
		},
		a.metrics, a.collector,
	).WithTracerProvider(a.tracerProvider)
	return nil
}

func (a *Agent) setupScheduler() error {
	var owner scheduler.Owner = scheduler.AllOwner
	if a.Config.ClusterConfig.Clustered() {
		owner = a.ring
	}
	a.scheduler = scheduler.New(scheduler.Config{
		RefreshInterval: a.Config.PollerConfig.ClusterRefreshTick,
		LeaseRetries:    1,
		LeaseRetryWait:  a.Config.PollerConfig.SinkRetryInterval,
	}, a.metadataService, a.triggerService, owner)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.metadataService, a.triggerService, a.metrics.Handler())
	return err
}

func (a *Agent) setupGrpcServer() error {
	var err error
	a.grpcServer, err = rpc.NewGrpcServer(&rpc.GrpcConfig{TriggerService: a.triggerService})
	return err
}

func (a *Agent) Start() error {
	if a.ringRefresher != nil {
		a.ringRefresher.Start()
	}
	a.scheduler.Start()
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server failed", zap.Error(err))
			_ = a.Shutdown()
		}
	}()

	logger.Info("starting grpc server on", zap.Int("port", a.Config.GrpcPort))
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.Config.GrpcPort))
	if err != nil {
		return err
	}
	go func() {
		if err := a.grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server failed", zap.Error(err))
			_ = a.Shutdown()
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		func() error {
			a.scheduler.Stop()
			return nil
		},
		func() error {
			if a.ringRefresher != nil {
				a.ringRefresher.Stop()
			}
			if a.membership != nil {
				return a.membership.Leave()
			}
			return nil
		},
		a.httpServer.Stop,
		func() error {
			logger.Info("stopping grpc server")
			a.grpcServer.GracefulStop()
			return nil
		},
		func() error {
			return a.tracerProvider.Shutdown(context.Background())
		},
	}
	shutdown = append(shutdown, a.closers...)
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			logger.Error("error during shutdown", zap.Error(err))
		}
	}
	if c, ok := a.collector.(interface{ Sync() error }); ok {
		_ = c.Sync()
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}

func (a *Agent) TriggerService() *service.TriggerService {
	return a.triggerService
}

type multiRecorder []interface {
	RecordHandshake(trigger string, status int)
}

func (m multiRecorder) RecordHandshake(trigger string, status int) {
	for _, r := range m {
		r.RecordHandshake(trigger, status)
	}
}
