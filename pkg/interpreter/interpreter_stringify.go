package interpreter

import (
	"strconv"

	"rinha/interpreter-go/pkg/runtime"
)

// FormatValue renders a value the way print writes it.
func FormatValue(val runtime.Value) string {
	return valueToString(val)
}

func valueToString(val runtime.Value) string {
	switch v := val.(type) {
	case runtime.IntValue:
		return strconv.FormatInt(v.Val, 10)
	case runtime.StrValue:
		return v.Val
	case runtime.BoolValue:
		if v.Val {
			return "true"
		}
		return "false"
	case runtime.TupleValue:
		return "[tuple]"
	case *runtime.FunctionValue:
		return "[function]"
	case runtime.VoidValue:
		return "[void]"
	default:
		return "[void]"
	}
}
