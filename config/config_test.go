package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		StorageType:  STORAGE_TYPE_INMEM,
		QueueType:    QUEUE_TYPE_INMEM,
		GrpcPort:     8400,
		PollerConfig: PollerConfig{SampleSize: 5},
	}
}

func TestValidate(t *testing.T) {
	for scenario, tc := range map[string]struct {
		mutate func(c *Config)
		ok     bool
	}{
		"defaults are valid":          {mutate: func(c *Config) {}, ok: true},
		"unknown storage":             {mutate: func(c *Config) { c.StorageType = "dynamo" }},
		"unknown queue":               {mutate: func(c *Config) { c.QueueType = "sqs" }},
		"clustered memory":            {mutate: func(c *Config) { c.ClusterConfig.BindAddr = "127.0.0.1:8401" }},
		"clustered redis":             {mutate: func(c *Config) { c.StorageType = STORAGE_TYPE_REDIS; c.ClusterConfig.BindAddr = "127.0.0.1:8401" }, ok: true},
		"sample size must be positive": {mutate: func(c *Config) { c.PollerConfig.SampleSize = 0 }},
	} {
		t.Run(scenario, func(t *testing.T) {
			c := validConfig()
			tc.mutate(&c)
			err := c.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestRPCAddr(t *testing.T) {
	c := validConfig()
	c.ClusterConfig.BindAddr = "10.0.0.7:8401"
	addr, err := c.RPCAddr()
	require.NoError(t, err)
	require.Equal(t, "10.0.0.7:8400", addr)
}
