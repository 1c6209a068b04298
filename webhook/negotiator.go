package webhook

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/util"
)

// Request is the part of an inbound webhook call the negotiator looks at.
type Request struct {
	Method      string
	Query       url.Values
	Header      http.Header
	ContentType string
	Body        []byte
}

type Response struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

const FORBIDDEN_BODY = "forbidden"

// Negotiator answers provider verification calls. It keeps no state; each
// request is classified on its own.
type Negotiator struct {
	conf model.HandshakeConfig
}

func NewNegotiator(conf *model.HandshakeConfig) (*Negotiator, error) {
	if conf == nil {
		return &Negotiator{conf: model.HandshakeConfig{Strategy: model.HANDSHAKE_NONE}}, nil
	}
	switch conf.Strategy {
	case model.HANDSHAKE_NONE, "":
		return &Negotiator{conf: model.HandshakeConfig{Strategy: model.HANDSHAKE_NONE}}, nil
	case model.HANDSHAKE_QUERY_PRESENT, model.HANDSHAKE_HEADER_PRESENT, model.HANDSHAKE_BODY_PARAM_PRESENT:
	default:
		return nil, fmt.Errorf("invalid handshake strategy %q", conf.Strategy)
	}
	if conf.ParamName == "" || conf.TokenParam == "" || conf.ChallengeParam == "" {
		return nil, fmt.Errorf("handshake %s needs paramName, tokenParam and challengeParam", conf.Strategy)
	}
	if conf.Secret == "" {
		return nil, fmt.Errorf("handshake %s needs a secret", conf.Strategy)
	}
	return &Negotiator{conf: *conf}, nil
}

// Negotiate returns the handshake response and true when req is a handshake.
// Any other request is an event and is left to the caller.
func (n *Negotiator) Negotiate(req Request) (Response, bool) {
	params, ok := n.params(req)
	if !ok {
		return Response{}, false
	}
	if _, present := params[n.conf.ParamName]; !present {
		return Response{}, false
	}
	token := params[n.conf.TokenParam]
	if token != n.conf.Secret {
		return textResponse(http.StatusForbidden, []byte(FORBIDDEN_BODY)), true
	}
	return textResponse(http.StatusOK, []byte(params[n.conf.ChallengeParam])), true
}

func (n *Negotiator) params(req Request) (map[string]string, bool) {
	switch n.conf.Strategy {
	case model.HANDSHAKE_QUERY_PRESENT:
		return firstValues(req.Query), true
	case model.HANDSHAKE_HEADER_PRESENT:
		out := map[string]string{}
		for _, name := range []string{n.conf.ParamName, n.conf.TokenParam, n.conf.ChallengeParam} {
			if values := req.Header.Values(name); len(values) > 0 {
				out[name] = values[0]
			}
		}
		return out, true
	case model.HANDSHAKE_BODY_PARAM_PRESENT:
		return bodyParams(req)
	}
	return nil, false
}

func firstValues(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// bodyParams reads top level fields of a form or JSON object body.
func bodyParams(req Request) (map[string]string, bool) {
	mediaType, _, _ := mime.ParseMediaType(req.ContentType)
	if mediaType == "application/x-www-form-urlencoded" {
		values, err := url.ParseQuery(string(req.Body))
		if err != nil {
			return nil, false
		}
		return firstValues(values), true
	}
	var fields map[string]any
	if err := json.Unmarshal(req.Body, &fields); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if v == nil {
			out[k] = ""
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = util.FormatValue(v)
	}
	return out, true
}

func textResponse(status int, body []byte) Response {
	return Response{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "text/plain"},
	}
}
