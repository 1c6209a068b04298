package redis

import "time"

// Config addresses a single node, sentinel or cluster deployment; the client
// kind follows from the number of addresses.
type Config struct {
	Addrs       []string
	Namespace   string
	PoolSize    int
	Password    string
	DialTimeout time.Duration
}
