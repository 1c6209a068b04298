package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohitkumar/pollster/agent"
	"github.com/mohitkumar/pollster/analytics"
	api "github.com/mohitkumar/pollster/api/v1"
	"github.com/mohitkumar/pollster/config"
	"github.com/mohitkumar/pollster/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type cli struct {
	cfg config.Config
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("redis-password", "", "redis password")
	cmd.Flags().String("namespace", "pollster", "namespace used in storage")
	cmd.Flags().String("sqlite-path", "pollster.db", "sqlite database file")
	cmd.Flags().String("mysql-dsn", "", "mysql data source name")
	cmd.Flags().String("cassandra-hosts", "localhost", "comma separated list of cassandra hosts")
	cmd.Flags().String("cassandra-keyspace", "pollster", "cassandra keyspace")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints and webhooks")
	cmd.Flags().Int("grpc-port", 8099, "grpc port for trigger operations")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("queue-impl", "redis", "implementation of underline queue")
	cmd.Flags().String("node-name", "", "unique name of this node in the cluster")
	cmd.Flags().String("bind-addr", "", "serf bind address, empty runs a single node")
	cmd.Flags().StringSlice("start-join-addrs", nil, "serf addresses to join on start")
	cmd.Flags().Int("partition-count", 271, "partitions of the trigger ownership ring")
	cmd.Flags().Int("sample-size", 5, "items returned by a test invocation")
	cmd.Flags().Bool("use-lease", true, "serialize invocations of one trigger with a lease")
	cmd.Flags().Duration("lease-ttl", 2*time.Minute, "lease expiry")
	cmd.Flags().Duration("sink-retry-interval", time.Second, "wait between event delivery attempts")
	cmd.Flags().Int("sink-max-retries", 3, "event delivery retries")
	cmd.Flags().Duration("metadata-cache-ttl", time.Minute, "trigger definition cache expiry")
	cmd.Flags().Duration("refresh-interval", 10*time.Second, "trigger and cluster refresh interval")
	cmd.Flags().String("trigger-file", "", "yaml file of trigger definitions loaded on start")
	cmd.Flags().String("analytics-file", "", "file to record poll outcomes, empty disables")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().Bool("log-json", false, "log in json")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err = viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return err
			}
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.SQLConfig.SQLitePath = viper.GetString("sqlite-path")
	c.cfg.SQLConfig.MySQLDSN = viper.GetString("mysql-dsn")
	c.cfg.CassandraConfig.Hosts = strings.Split(viper.GetString("cassandra-hosts"), ",")
	c.cfg.CassandraConfig.Keyspace = viper.GetString("cassandra-keyspace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.GrpcPort = viper.GetInt("grpc-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.QueueType = config.QueueType(viper.GetString("queue-impl"))

	c.cfg.ClusterConfig.NodeName = viper.GetString("node-name")
	if c.cfg.ClusterConfig.NodeName == "" {
		c.cfg.ClusterConfig.NodeName, _ = os.Hostname()
	}
	c.cfg.ClusterConfig.BindAddr = viper.GetString("bind-addr")
	c.cfg.ClusterConfig.StartJoinAddrs = viper.GetStringSlice("start-join-addrs")
	c.cfg.ClusterConfig.PartitionCount = viper.GetInt("partition-count")

	c.cfg.PollerConfig.SampleSize = viper.GetInt("sample-size")
	c.cfg.PollerConfig.UseLease = viper.GetBool("use-lease")
	c.cfg.PollerConfig.LeaseTTL = viper.GetDuration("lease-ttl")
	c.cfg.PollerConfig.SinkRetryInterval = viper.GetDuration("sink-retry-interval")
	c.cfg.PollerConfig.SinkMaxRetries = viper.GetInt("sink-max-retries")
	c.cfg.PollerConfig.MetadataCacheTTL = viper.GetDuration("metadata-cache-ttl")
	c.cfg.PollerConfig.ClusterRefreshTick = viper.GetDuration("refresh-interval")

	c.cfg.TriggerFile = viper.GetString("trigger-file")
	if f := viper.GetString("analytics-file"); f != "" {
		c.cfg.AnalyticsConfig = analytics.DataCollectorConfig{FileName: f, CollectorType: analytics.LOG_FILE_DATA_COLLECTOR}
	}
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.LogJson = viper.GetBool("log-json")
	return logger.Init(c.cfg.LogLevel, c.cfg.LogJson)
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	a, err := agent.New(c.cfg)
	if err != nil {
		return err
	}
	if err = a.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	defer logger.Sync()
	return a.Shutdown()
}

func clientCommand(use string, short string, call func(ctx context.Context, client api.TriggerServiceClient, req *api.TriggerRequest) (any, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <trigger>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			runId, _ := cmd.Flags().GetString("run-id")
			conn, err := grpc.Dial(server, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return err
			}
			defer conn.Close()
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			res, err := call(ctx, api.NewTriggerServiceClient(conn), &api.TriggerRequest{Name: args[0], RunId: runId})
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().String("server", "localhost:8099", "grpc address of a pollster node")
	cmd.Flags().String("run-id", "", "run id, scopes state to one flow run")
	return cmd
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "pollster",
		Short:   "trigger dispatch and deduplication engine",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	cmd.AddCommand(
		clientCommand("poll", "run one invocation and print new items", func(ctx context.Context, c api.TriggerServiceClient, req *api.TriggerRequest) (any, error) {
			return c.Poll(ctx, req)
		}),
		clientCommand("test", "print sample items without touching state", func(ctx context.Context, c api.TriggerServiceClient, req *api.TriggerRequest) (any, error) {
			return c.Test(ctx, req)
		}),
		clientCommand("enable", "seed the trigger watermark", func(ctx context.Context, c api.TriggerServiceClient, req *api.TriggerRequest) (any, error) {
			return c.Enable(ctx, req)
		}),
		clientCommand("disable", "clear the trigger watermark", func(ctx context.Context, c api.TriggerServiceClient, req *api.TriggerRequest) (any, error) {
			return c.Disable(ctx, req)
		}),
	)

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
