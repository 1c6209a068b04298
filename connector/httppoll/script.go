package httppoll

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
)

// evalSortKey runs expression with the item bound to $ and returns the
// number it evaluates to.
func evalSortKey(expression string, item any) (float64, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return 0, err
	}
	vm := goja.New()
	if _, err := vm.RunString(fmt.Sprintf("var $ = %s;\n", data)); err != nil {
		return 0, fmt.Errorf("error executing javascript %w", err)
	}
	val, err := vm.RunString(expression)
	if err != nil {
		return 0, fmt.Errorf("error executing javascript %w", err)
	}
	switch v := val.Export().(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	}
	return 0, fmt.Errorf("sort key script returned %v, not a number", val.Export())
}
