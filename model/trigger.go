package model

type StrategyType string

const STRATEGY_TIME StrategyType = "TIME"
const STRATEGY_COUNT StrategyType = "COUNT"
const STRATEGY_LAST_ITEM StrategyType = "LAST_ITEM"

type BootstrapPolicy string

const BOOTSTRAP_FROM_NOW BootstrapPolicy = "FROM_NOW"
const BOOTSTRAP_FROM_LATEST BootstrapPolicy = "FROM_LATEST"
const BOOTSTRAP_EMIT_ALL BootstrapPolicy = "EMIT_ALL"

type TriggerType string

const TRIGGER_TYPE_POLLING TriggerType = "POLLING"
const TRIGGER_TYPE_WEBHOOK TriggerType = "WEBHOOK"

// TriggerDefinition binds a flow to a connector and the way its events are
// detected.
type TriggerDefinition struct {
	Name            string            `json:"name" yaml:"name"`
	ProjectId       string            `json:"projectId" yaml:"projectId"`
	FlowId          string            `json:"flowId" yaml:"flowId"`
	Type            TriggerType       `json:"type" yaml:"type"`
	Connector       string            `json:"connector" yaml:"connector"`
	Strategy        StrategyType      `json:"strategy" yaml:"strategy"`
	Bootstrap       BootstrapPolicy   `json:"bootstrap" yaml:"bootstrap"`
	IntervalSeconds int               `json:"intervalSeconds" yaml:"intervalSeconds"`
	TimeoutSeconds  int               `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	Props           map[string]any    `json:"props" yaml:"props"`
	Handshake       *HandshakeConfig  `json:"handshake,omitempty" yaml:"handshake,omitempty"`
	Redelivery      *RedeliveryConfig `json:"redelivery,omitempty" yaml:"redelivery,omitempty"`
}

func (t TriggerDefinition) Scope() Scope {
	return FlowScope(t.ProjectId, t.FlowId)
}

type HandshakeStrategy string

const HANDSHAKE_NONE HandshakeStrategy = "NONE"
const HANDSHAKE_QUERY_PRESENT HandshakeStrategy = "QUERY_PRESENT"
const HANDSHAKE_HEADER_PRESENT HandshakeStrategy = "HEADER_PRESENT"
const HANDSHAKE_BODY_PARAM_PRESENT HandshakeStrategy = "BODY_PARAM_PRESENT"

// HandshakeConfig describes how a provider verifies a webhook endpoint.
// ParamName marks a request as a handshake; TokenParam and ChallengeParam are
// read from the same location.
type HandshakeConfig struct {
	Strategy       HandshakeStrategy `json:"strategy" yaml:"strategy"`
	ParamName      string            `json:"paramName" yaml:"paramName"`
	TokenParam     string            `json:"tokenParam" yaml:"tokenParam"`
	ChallengeParam string            `json:"challengeParam" yaml:"challengeParam"`
	Secret         string            `json:"secret" yaml:"secret"`
}

// RedeliveryConfig enables watermark filtering of webhook events whose
// provider may deliver the same event more than once.
// IdPath names the event identity; without it the body itself is the
// identity of events sharing one timestamp.
type RedeliveryConfig struct {
	TimestampPath string `json:"timestampPath" yaml:"timestampPath"`
	IdPath        string `json:"idPath,omitempty" yaml:"idPath,omitempty"`
}
