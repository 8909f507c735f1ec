package attributes

import (
	"cmp"
	"fmt"
	"os"
	"reflect"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/mrzor/tasktree/internal/config"
	"github.com/mrzor/tasktree/internal/tasktree"
	"go.opentelemetry.io/otel/attribute"
)

// Evaluator handles compilation and evaluation of custom attribute expressions.
type Evaluator struct {
	customAttrs   []config.CustomAttribute
	compiledExprs []*vm.Program
}

// NewEvaluator creates a new attribute evaluator.
// It pre-compiles all custom attribute expressions for efficiency.
func NewEvaluator(customAttrs []config.CustomAttribute) (*Evaluator, error) {
	compiledExprs := make([]*vm.Program, len(customAttrs))
	for i, attr := range customAttrs {
		program, err := expr.Compile(attr.Expression, expr.Env(taskEnvPrototype))
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression for attribute %q: %w", attr.Name, err)
		}
		compiledExprs[i] = program
	}

	return &Evaluator{
		customAttrs:   customAttrs,
		compiledExprs: compiledExprs,
	}, nil
}

// EvaluateCustomAttributes evaluates custom attribute expressions for one task.
// An expression that fails at runtime is reported and skipped.
func (e *Evaluator) EvaluateCustomAttributes(task *tasktree.Node) ([]attribute.KeyValue, error) {
	if len(e.customAttrs) == 0 {
		return nil, nil
	}

	if task == nil || task.Event == nil {
		return nil, nil
	}

	env := taskEnv(task)

	var attrs []attribute.KeyValue
	for i, customAttr := range e.customAttrs {
		output, err := expr.Run(e.compiledExprs[i], env)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to evaluate expression for attribute %q on %q: %v\n",
				customAttr.Name, task.Event.Name, err)
			continue
		}

		// Maps expand into one attribute per key with dot notation, in key order
		outputValue := reflect.ValueOf(output)
		if outputValue.Kind() == reflect.Map {
			keys := outputValue.MapKeys()
			keyStrs := make([]string, len(keys))
			for j, key := range keys {
				keyStrs[j] = fmt.Sprintf("%v", key.Interface())
			}
			order := make([]int, len(keys))
			for j := range order {
				order[j] = j
			}
			slices.SortFunc(order, func(a, b int) int { return cmp.Compare(keyStrs[a], keyStrs[b]) })

			for _, j := range order {
				attrName := customAttr.Name + "." + sanitizeAttributeName(keyStrs[j])
				value := outputValue.MapIndex(keys[j]).Interface()
				attrs = append(attrs, attribute.String(attrName, fmt.Sprint(value)))
			}
			continue
		}

		attrs = append(attrs, toAttribute(customAttr.Name, output))
	}

	return attrs, nil
}

// toAttribute keeps numbers and booleans typed so backends can aggregate them.
func toAttribute(name string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case bool:
		return attribute.Bool(name, v)
	case int:
		return attribute.Int(name, v)
	case int64:
		return attribute.Int64(name, v)
	case float64:
		return attribute.Float64(name, v)
	case []string:
		return attribute.StringSlice(name, v)
	default:
		return attribute.String(name, fmt.Sprint(value))
	}
}

// sanitizeAttributeName replaces non-alphanumeric characters with underscores.
// This ensures attribute names are safe for OpenTelemetry.
func sanitizeAttributeName(name string) string {
	result := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result[i] = c
		} else {
			result[i] = '_'
		}
	}
	return string(result)
}
