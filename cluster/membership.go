package cluster

import (
	"net"

	"github.com/hashicorp/serf/serf"
	"github.com/mohitkumar/pollster/logger"
	"go.uber.org/zap"
)

const RPC_ADDR_TAG = "rpc_addr"

type Config struct {
	NodeName       string
	BindAddr       string
	RPCAddr        string
	Tags           map[string]string
	StartJoinAddrs []string
}

// Handler is told about nodes entering and leaving the gossip pool. The
// local node is reported once, with isLocal set, before any remote node.
type Handler interface {
	Join(name, addr string, isLocal bool) error
	Leave(name string) error
}

type Member struct {
	Name    string
	RPCAddr string
	Status  string
}

type Membership struct {
	Config
	handler Handler
	serf    *serf.Serf
	events  chan serf.Event
	logger  *zap.Logger
}

func New(handler Handler, config Config) (*Membership, error) {
	m := &Membership{
		Config:  config,
		handler: handler,
		logger:  logger.L().Named("membership"),
	}
	if err := handler.Join(config.NodeName, config.RPCAddr, true); err != nil {
		return nil, err
	}
	if err := m.setupSerf(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Membership) setupSerf() error {
	addr, err := net.ResolveTCPAddr("tcp", m.BindAddr)
	if err != nil {
		return err
	}
	conf := serf.DefaultConfig()
	conf.Init()
	conf.MemberlistConfig.BindAddr = addr.IP.String()
	conf.MemberlistConfig.BindPort = addr.Port
	m.events = make(chan serf.Event)
	conf.EventCh = m.events
	conf.NodeName = m.NodeName
	if conf.Tags == nil {
		conf.Tags = make(map[string]string)
	}
	for k, v := range m.Tags {
		conf.Tags[k] = v
	}
	conf.Tags[RPC_ADDR_TAG] = m.RPCAddr
	m.serf, err = serf.Create(conf)
	if err != nil {
		return err
	}
	go m.eventHandler()
	if len(m.StartJoinAddrs) > 0 {
		if _, err := m.serf.Join(m.StartJoinAddrs, true); err != nil {
			return err
		}
	}
	return nil
}

func (m *Membership) eventHandler() {
	for e := range m.events {
		me, ok := e.(serf.MemberEvent)
		if !ok {
			continue
		}
		for _, member := range me.Members {
			local := m.isLocal(member)
			switch me.EventType() {
			case serf.EventMemberJoin, serf.EventMemberUpdate:
				if local {
					continue
				}
				if err := m.handler.Join(member.Name, member.Tags[RPC_ADDR_TAG], false); err != nil {
					m.logError(err, "failed to join", member)
				}
			case serf.EventMemberLeave, serf.EventMemberFailed:
				if local {
					return
				}
				if err := m.handler.Leave(member.Name); err != nil {
					m.logError(err, "failed to leave", member)
				}
			}
		}
	}
}

func (m *Membership) isLocal(member serf.Member) bool {
	return m.serf.LocalMember().Name == member.Name
}

func (m *Membership) GetLocalMember() string {
	return m.serf.LocalMember().Name
}

func (m *Membership) Members() []Member {
	members := m.serf.Members()
	out := make([]Member, 0, len(members))
	for _, member := range members {
		out = append(out, Member{
			Name:    member.Name,
			RPCAddr: member.Tags[RPC_ADDR_TAG],
			Status:  member.Status.String(),
		})
	}
	return out
}

// Leave announces departure and stops gossip.
func (m *Membership) Leave() error {
	if err := m.serf.Leave(); err != nil {
		return err
	}
	return m.serf.Shutdown()
}

func (m *Membership) logError(err error, msg string, member serf.Member) {
	m.logger.Error(
		msg,
		zap.Error(err),
		zap.String("name", member.Name),
		zap.String(RPC_ADDR_TAG, member.Tags[RPC_ADDR_TAG]),
	)
}
