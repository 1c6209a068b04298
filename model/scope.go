package model

import "fmt"

type ScopeKind string

const SCOPE_PROJECT ScopeKind = "PROJECT"
const SCOPE_FLOW ScopeKind = "FLOW"
const SCOPE_RUN ScopeKind = "RUN"

// Scope addresses a slice of the state store. RunId is only read for RUN scope.
type Scope struct {
	Kind      ScopeKind `json:"kind"`
	ProjectId string    `json:"projectId"`
	FlowId    string    `json:"flowId,omitempty"`
	RunId     string    `json:"runId,omitempty"`
}

func ProjectScope(projectId string) Scope {
	return Scope{Kind: SCOPE_PROJECT, ProjectId: projectId}
}

func FlowScope(projectId string, flowId string) Scope {
	return Scope{Kind: SCOPE_FLOW, ProjectId: projectId, FlowId: flowId}
}

func RunScope(projectId string, flowId string, runId string) Scope {
	return Scope{Kind: SCOPE_RUN, ProjectId: projectId, FlowId: flowId, RunId: runId}
}

// Flow narrows any scope that names a flow to its FLOW scope.
func (s Scope) Flow() Scope {
	return FlowScope(s.ProjectId, s.FlowId)
}

func (s Scope) Validate() error {
	if len(s.ProjectId) == 0 {
		return fmt.Errorf("scope %s: project id can not be empty", s.Kind)
	}
	switch s.Kind {
	case SCOPE_PROJECT:
		return nil
	case SCOPE_FLOW:
		if len(s.FlowId) == 0 {
			return fmt.Errorf("scope FLOW: flow id can not be empty")
		}
		return nil
	case SCOPE_RUN:
		if len(s.FlowId) == 0 || len(s.RunId) == 0 {
			return fmt.Errorf("scope RUN: flow id and run id can not be empty")
		}
		return nil
	}
	return fmt.Errorf("invalid scope kind %q", s.Kind)
}

func (s Scope) String() string {
	switch s.Kind {
	case SCOPE_PROJECT:
		return fmt.Sprintf("project=%s", s.ProjectId)
	case SCOPE_RUN:
		return fmt.Sprintf("project=%s flow=%s run=%s", s.ProjectId, s.FlowId, s.RunId)
	}
	return fmt.Sprintf("project=%s flow=%s", s.ProjectId, s.FlowId)
}
