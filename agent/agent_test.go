package agent

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	api "github.com/mohitkumar/pollster/api/v1"
	"github.com/mohitkumar/pollster/config"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func freePort(t *testing.T) int {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

const triggerFile = `
triggers:
  - name: orders
    projectId: shop
    flowId: orders
    connector: static
    bootstrap: EMIT_ALL
    intervalSeconds: 3600
    props:
      items:
        - sortKey: 1
          payload: {"id": 1}
        - sortKey: 2
          payload: {"id": 2}
`

func TestAgentServesSeededTriggers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triggers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(triggerFile), 0o644))

	grpcPort := freePort(t)
	a, err := New(config.Config{
		HttpPort:    freePort(t),
		GrpcPort:    grpcPort,
		StorageType: config.STORAGE_TYPE_SQLITE,
		SQLConfig:   config.SQLStorageConfig{SQLitePath: filepath.Join(dir, "state.db")},
		QueueType:   config.QUEUE_TYPE_INMEM,
		TriggerFile: path,
		PollerConfig: config.PollerConfig{
			SampleSize:         5,
			UseLease:           true,
			LeaseTTL:           time.Minute,
			SinkRetryInterval:  time.Millisecond,
			SinkMaxRetries:     1,
			MetadataCacheTTL:   time.Minute,
			ClusterRefreshTick: time.Hour,
		},
	})
	require.NoError(t, err)
	require.NoError(t, a.Start())
	defer a.Shutdown()

	conn, err := grpc.Dial(fmt.Sprintf("127.0.0.1:%d", grpcPort), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := api.NewTriggerServiceClient(conn)

	var res *api.ItemsResponse
	require.Eventually(t, func() bool {
		res, err = client.Poll(context.Background(), &api.TriggerRequest{Name: "orders"})
		return err == nil
	}, 3*time.Second, 50*time.Millisecond)
	require.Len(t, res.Items, 2)

	res, err = client.Poll(context.Background(), &api.TriggerRequest{Name: "orders"})
	require.NoError(t, err)
	require.Empty(t, res.Items)
}

func TestAgentRejectsInvalidConfig(t *testing.T) {
	_, err := New(config.Config{StorageType: "etcd", QueueType: config.QUEUE_TYPE_INMEM})
	require.Error(t, err)
}
