package config

import (
	"fmt"
	"net"
	"time"

	"github.com/mohitkumar/pollster/analytics"
)

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"
const STORAGE_TYPE_SQLITE StorageType = "sqlite"
const STORAGE_TYPE_MYSQL StorageType = "mysql"
const STORAGE_TYPE_CASSANDRA StorageType = "cassandra"

type QueueType string

const QUEUE_TYPE_REDIS QueueType = "redis"
const QUEUE_TYPE_INMEM QueueType = "memory"

type Config struct {
	RedisConfig     RedisStorageConfig
	SQLConfig       SQLStorageConfig
	CassandraConfig CassandraStorageConfig
	HttpPort        int
	GrpcPort        int
	StorageType     StorageType
	QueueType       QueueType
	ClusterConfig   ClusterConfig
	PollerConfig    PollerConfig
	AnalyticsConfig analytics.DataCollectorConfig
	TriggerFile     string
	LogLevel        string
	LogJson         bool
}

type ClusterConfig struct {
	NodeName       string
	BindAddr       string
	Tags           map[string]string
	StartJoinAddrs []string
	PartitionCount int
}

// Clustered reports whether gossip membership should be started. Without a
// bind address the node owns every trigger.
func (c ClusterConfig) Clustered() bool {
	return c.BindAddr != ""
}

type PollerConfig struct {
	SampleSize         int
	LeaseTTL           time.Duration
	UseLease           bool
	SinkRetryInterval  time.Duration
	SinkMaxRetries     int
	MetadataCacheTTL   time.Duration
	ClusterRefreshTick time.Duration
}

func (c Config) RPCAddr() (string, error) {
	host, _, err := net.SplitHostPort(c.ClusterConfig.BindAddr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", host, c.GrpcPort), nil
}

func (c Config) Validate() error {
	switch c.StorageType {
	case STORAGE_TYPE_REDIS, STORAGE_TYPE_INMEM, STORAGE_TYPE_SQLITE, STORAGE_TYPE_MYSQL, STORAGE_TYPE_CASSANDRA:
	default:
		return fmt.Errorf("invalid storage type %q", c.StorageType)
	}
	switch c.QueueType {
	case QUEUE_TYPE_REDIS, QUEUE_TYPE_INMEM:
	default:
		return fmt.Errorf("invalid queue type %q", c.QueueType)
	}
	if c.StorageType == STORAGE_TYPE_INMEM && c.ClusterConfig.Clustered() {
		return fmt.Errorf("memory storage can not be shared by a cluster")
	}
	if c.PollerConfig.SampleSize <= 0 {
		return fmt.Errorf("sample size must be positive")
	}
	return nil
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
	PoolSize  int
	Password  string
}

type SQLStorageConfig struct {
	SQLitePath string
	MySQLDSN   string
}

type CassandraStorageConfig struct {
	Hosts    []string
	Keyspace string
}
