package httppoll

import (
	"fmt"

	"github.com/mohitkumar/pollster/model"
)

const SORT_KEY_EPOCH_MILLIS = "epochMillis"
const SORT_KEY_EPOCH_SECONDS = "epochSeconds"
const SORT_KEY_RFC3339 = "rfc3339"

type Config struct {
	Url                string
	Method             string
	Headers            map[string]string
	Body               map[string]any
	ItemsPath          string
	IdPath             string
	SortKeyPath        string
	SortKeyFormat      string
	SortKeyScript      string
	Reverse            bool
	SubscribeUrl       string
	SubscriptionIdPath string
	UnsubscribeUrl     string
}

func configFromProps(def model.TriggerDefinition) (Config, error) {
	props := def.Props
	conf := Config{
		Url:                stringProp(props, "url"),
		Method:             stringProp(props, "method"),
		Headers:            map[string]string{},
		ItemsPath:          stringProp(props, "itemsPath"),
		IdPath:             stringProp(props, "idPath"),
		SortKeyPath:        stringProp(props, "sortKeyPath"),
		SortKeyFormat:      stringProp(props, "sortKeyFormat"),
		SortKeyScript:      stringProp(props, "sortKeyScript"),
		SubscribeUrl:       stringProp(props, "subscribeUrl"),
		SubscriptionIdPath: stringProp(props, "subscriptionIdPath"),
		UnsubscribeUrl:     stringProp(props, "unsubscribeUrl"),
	}
	if reverse, ok := props["reverse"].(bool); ok {
		conf.Reverse = reverse
	}
	if headers, ok := props["headers"].(map[string]any); ok {
		for k, v := range headers {
			conf.Headers[k] = fmt.Sprint(v)
		}
	}
	if body, ok := props["body"].(map[string]any); ok {
		conf.Body = body
	}
	if conf.Method == "" {
		conf.Method = "GET"
	}
	if conf.ItemsPath == "" {
		conf.ItemsPath = "$"
	}
	if conf.SortKeyFormat == "" {
		conf.SortKeyFormat = SORT_KEY_EPOCH_MILLIS
	}
	if conf.SubscriptionIdPath == "" {
		conf.SubscriptionIdPath = "$.id"
	}
	return conf, conf.validate(def)
}

func (c Config) validate(def model.TriggerDefinition) error {
	if c.Url == "" {
		return fmt.Errorf("trigger %s: url can not be empty", def.Name)
	}
	switch def.Strategy {
	case model.STRATEGY_TIME, "":
		if c.SortKeyPath == "" && c.SortKeyScript == "" {
			return fmt.Errorf("trigger %s: time strategy needs sortKeyPath or sortKeyScript", def.Name)
		}
	case model.STRATEGY_LAST_ITEM:
		if c.IdPath == "" {
			return fmt.Errorf("trigger %s: last item strategy needs idPath", def.Name)
		}
	}
	switch c.SortKeyFormat {
	case SORT_KEY_EPOCH_MILLIS, SORT_KEY_EPOCH_SECONDS, SORT_KEY_RFC3339:
	default:
		return fmt.Errorf("trigger %s: invalid sortKeyFormat %q", def.Name, c.SortKeyFormat)
	}
	return nil
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
