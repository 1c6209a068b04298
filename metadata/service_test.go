package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohitkumar/pollster/connector"
	"github.com/mohitkumar/pollster/model"
	"github.com/stretchr/testify/require"
)

func newService() MetadataService {
	registry := connector.NewRegistry()
	registry.Register(connector.STATIC_CONNECTOR, connector.NewStaticConnector)
	return NewMetadataService(NewMemoryMetadataStorage(), registry, time.Minute)
}

func TestMetadataService(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, service MetadataService){
		"save applies defaults":       testSaveDefaults,
		"get misses are typed":        testGetMissing,
		"delete evicts cache":         testDeleteEvicts,
		"list is sorted":              testList,
		"invalid definitions refused": testValidation,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newService())
		})
	}
}

func testSaveDefaults(t *testing.T, service MetadataService) {
	ctx := context.Background()
	require.NoError(t, service.SaveTrigger(ctx, model.TriggerDefinition{
		Name: "orders", ProjectId: "p", FlowId: "f", Connector: connector.STATIC_CONNECTOR,
	}))
	def, err := service.GetTrigger(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, model.TRIGGER_TYPE_POLLING, def.Type)
	require.Equal(t, model.STRATEGY_TIME, def.Strategy)
	require.Equal(t, model.BOOTSTRAP_FROM_NOW, def.Bootstrap)
	require.Equal(t, DEFAULT_INTERVAL_SECONDS, def.IntervalSeconds)
	require.Equal(t, DEFAULT_TIMEOUT_SECONDS, def.TimeoutSeconds)
}

func testGetMissing(t *testing.T, service MetadataService) {
	_, err := service.GetTrigger(context.Background(), "nope")
	require.ErrorIs(t, err, ErrTriggerNotFound)
}

func testDeleteEvicts(t *testing.T, service MetadataService) {
	ctx := context.Background()
	def := model.TriggerDefinition{Name: "orders", ProjectId: "p", FlowId: "f", Connector: connector.STATIC_CONNECTOR}
	require.NoError(t, service.SaveTrigger(ctx, def))
	_, err := service.GetTrigger(ctx, "orders")
	require.NoError(t, err)
	require.NoError(t, service.DeleteTrigger(ctx, "orders"))
	_, err = service.GetTrigger(ctx, "orders")
	require.ErrorIs(t, err, ErrTriggerNotFound)
}

func testList(t *testing.T, service MetadataService) {
	ctx := context.Background()
	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, service.SaveTrigger(ctx, model.TriggerDefinition{
			Name: name, ProjectId: "p", FlowId: name, Connector: connector.STATIC_CONNECTOR,
		}))
	}
	defs, err := service.ListTriggers(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	require.Equal(t, "a", defs[0].Name)
	require.Equal(t, "c", defs[2].Name)
}

func testValidation(t *testing.T, service MetadataService) {
	ctx := context.Background()
	for _, def := range []model.TriggerDefinition{
		{ProjectId: "p", FlowId: "f", Connector: connector.STATIC_CONNECTOR},
		{Name: "no-flow", ProjectId: "p", Connector: connector.STATIC_CONNECTOR},
		{Name: "bad-strategy", ProjectId: "p", FlowId: "f", Connector: connector.STATIC_CONNECTOR, Strategy: "SOMETIMES"},
		{Name: "bad-connector", ProjectId: "p", FlowId: "f", Connector: "ftp"},
		{Name: "bad-type", ProjectId: "p", FlowId: "f", Type: "CRON"},
		{Name: "bad-handshake", ProjectId: "p", FlowId: "f", Type: model.TRIGGER_TYPE_WEBHOOK,
			Handshake: &model.HandshakeConfig{Strategy: model.HANDSHAKE_QUERY_PRESENT}},
		{Name: "bad-redelivery", ProjectId: "p", FlowId: "f", Type: model.TRIGGER_TYPE_WEBHOOK,
			Redelivery: &model.RedeliveryConfig{}},
	} {
		require.Error(t, service.SaveTrigger(ctx, def), def.Name)
	}
	require.NoError(t, service.SaveTrigger(ctx, model.TriggerDefinition{
		Name: "hook", ProjectId: "p", FlowId: "f", Type: model.TRIGGER_TYPE_WEBHOOK,
		Handshake: &model.HandshakeConfig{
			Strategy: model.HANDSHAKE_QUERY_PRESENT, ParamName: "hub.mode",
			TokenParam: "hub.verify_token", ChallengeParam: "hub.challenge", Secret: "abc123",
		},
	}))
}

func TestSeedFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triggers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
triggers:
  - name: new-orders
    projectId: shop
    flowId: notify
    connector: static
    strategy: COUNT
    intervalSeconds: 15
    props:
      items:
        - id: a
          payload: {n: 1}
  - name: github-push
    projectId: shop
    flowId: deploy
    type: WEBHOOK
    handshake:
      strategy: QUERY_PRESENT
      paramName: hub.mode
      tokenParam: hub.verify_token
      challengeParam: hub.challenge
      secret: abc123
`), 0o600))

	service := newService()
	require.NoError(t, Seed(context.Background(), service, path))
	def, err := service.GetTrigger(context.Background(), "new-orders")
	require.NoError(t, err)
	require.Equal(t, model.STRATEGY_COUNT, def.Strategy)
	require.Equal(t, 15, def.IntervalSeconds)

	hook, err := service.GetTrigger(context.Background(), "github-push")
	require.NoError(t, err)
	require.Equal(t, "abc123", hook.Handshake.Secret)

	_, err = LoadTriggerFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
