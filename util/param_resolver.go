package util

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenPattern = regexp.MustCompile("{(.*?)}")

// ResolveString replaces every {$.path} token in template with the value the
// json path selects from data. Unresolvable tokens become empty strings.
func ResolveString(template string, data map[string]any) string {
	return resolve(template, data, func(s string) string { return s })
}

// ResolveURL is ResolveString with every substituted value query escaped, so
// values holding '&', '#' or spaces stay inside their parameter.
func ResolveURL(template string, data map[string]any) string {
	return resolve(template, data, url.QueryEscape)
}

func resolve(template string, data map[string]any, escape func(string) string) string {
	tokenMap := make(map[string]string)
	for _, token := range tokenPattern.FindAllString(template, -1) {
		tmatch := strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}")
		if !strings.HasPrefix(tmatch, "$") {
			continue
		}
		value, err := jsonpath.JsonPathLookup(data, tmatch)
		if err != nil || value == nil {
			tokenMap[token] = ""
			continue
		}
		tokenMap[token] = escape(FormatValue(value))
	}
	out := template
	for t, tv := range tokenMap {
		out = strings.ReplaceAll(out, t, tv)
	}
	return out
}

// ResolveParams resolves tokens in every string found in params, recursing
// into nested maps and lists.
func ResolveParams(params map[string]any, data map[string]any) map[string]any {
	output := make(map[string]any, len(params))
	for k, v := range params {
		output[k] = resolveValue(v, data)
	}
	return output
}

func resolveValue(v any, data map[string]any) any {
	switch val := v.(type) {
	case map[string]any:
		return ResolveParams(val, data)
	case string:
		return ResolveString(val, data)
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, resolveValue(item, data))
		}
		return out
	default:
		return v
	}
}

// FormatValue renders a decoded JSON value, printing integral numbers without
// an exponent.
func FormatValue(v any) string {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
	case int64:
		return fmt.Sprintf("%d", val)
	}
	return fmt.Sprintf("%v", v)
}
