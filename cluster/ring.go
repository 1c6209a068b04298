package cluster

import (
	"sort"
	"sync"

	"github.com/buraksezer/consistent"
	"github.com/mohitkumar/pollster/logger"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"
)

type hasher struct {
}

func NewHasher() *hasher {
	return &hasher{}
}

func (h hasher) Sum64(data []byte) uint64 {
	return murmur3.Sum64(data)
}

type RingConfig struct {
	PartitionCount int
}

// Ring decides which node schedules which trigger. Remote members are staged
// and only take partitions on the next RefreshCluster, so a flapping member
// does not reshuffle ownership on every gossip event.
type Ring struct {
	RingConfig
	hring     *consistent.Consistent
	nodes     map[string]Node
	temp      map[string]Node
	localNode Node
	mu        sync.RWMutex
}

type Node struct {
	name string
	addr string
}

func (n Node) String() string {
	return n.name
}

func (n Node) Addr() string {
	return n.addr
}

func NewRing(c RingConfig) *Ring {
	if c.PartitionCount <= 0 {
		c.PartitionCount = 271
	}
	cfg := consistent.Config{
		PartitionCount:    c.PartitionCount,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            NewHasher(),
	}
	return &Ring{
		RingConfig: c,
		hring:      consistent.New(nil, cfg),
		nodes:      make(map[string]Node),
		temp:       make(map[string]Node),
	}
}

func (r *Ring) Join(name, addr string, isLocal bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[name]; ok {
		return nil
	}
	node := Node{
		name: name,
		addr: addr,
	}
	if isLocal {
		logger.Info("adding member to cluster", zap.String("node", name), zap.String("address", addr))
		r.localNode = node
		r.nodes[name] = node
		r.hring.Add(node)
	} else {
		r.temp[name] = node
	}
	return nil
}

func (r *Ring) Leave(name string) error {
	logger.Info("removing member from cluster", zap.String("node", name))
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.temp, name)
	if _, ok := r.nodes[name]; !ok {
		return nil
	}
	delete(r.nodes, name)
	r.hring.Remove(name)
	return nil
}

func (r *Ring) GetPartition(key string) int {
	return r.hring.FindPartitionID([]byte(key))
}

// Owns reports whether the local node is responsible for key.
func (r *Ring) Owns(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner := r.hring.LocateKey([]byte(key))
	if owner == nil {
		return false
	}
	return owner.String() == r.localNode.name
}

func (r *Ring) GetPartitions() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	partitions := make([]int, 0)
	for i := 0; i < r.PartitionCount; i++ {
		owner := r.hring.GetPartitionOwner(i)
		if owner != nil && owner.String() == r.localNode.name {
			partitions = append(partitions, i)
		}
	}
	return partitions
}

func (r *Ring) Nodes() []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	nodes := make([]Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].name < nodes[j].name })
	return nodes
}

func (r *Ring) RefreshCluster() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, node := range r.temp {
		logger.Info("adding member to cluster", zap.String("node", name), zap.String("address", node.addr))
		r.nodes[name] = node
		r.hring.Add(node)
	}
	for k := range r.temp {
		delete(r.temp, k)
	}
}
