// Package mcptool binds a strongly-typed Go handler to the uniform
// {name, description, schema, invoke} shape the MCP dispatcher drives.
// Grounded on the teacher's server/tool.go (Tool, ToolHandler,
// registerTool) and on the go-sdk reference's generics-based
// TypedToolHandler[In, Out] pattern.
package mcptool

import (
	"context"
	"fmt"
	"reflect"

	"github.com/localrivet/mcpadapt/schema"
	"github.com/localrivet/mcpadapt/value"
)

// Handler is the native function an adapter wraps. P must be a struct type
// (the parameter grammar's top-level requirement, §4.2.1); R is the success
// payload, encoded back to a Value on return. Unlike P, R is not required to
// be a struct — a bare scalar or string return (e.g. "echo" returning a
// plain string) encodes just as well (§4.2.4, §8 scenario 3).
type Handler[P any, R any] func(ctx context.Context, params P) (R, error)

// ToolDescriptor is the uniform object the registry and dispatcher operate
// on. Schema is derived once at NewTool time and never recomputed.
//
// Invoke's signature is (Value, isError bool) rather than the spec's bare
// Value-in Value-out shape: the dispatcher needs to know, out of band,
// whether to set the MCP content envelope's isError to true (see
// SPEC_FULL.md §4.3 — the isError:true redesign). The underlying Value
// returned on an error path is still exactly the "<message>" string text
// the original design describes; only the flag is new.
type ToolDescriptor struct {
	Name        string
	Description string
	Schema      value.Value

	invoke func(ctx context.Context, arg value.Value) (result value.Value, isError bool)
}

// Invoke runs the tool's handler against a wire-shaped argument Value. It
// never panics: every failure mode described in §4.3 is turned into a
// Value-encoded message instead.
func (d *ToolDescriptor) Invoke(ctx context.Context, arg value.Value) (value.Value, bool) {
	return d.invoke(ctx, arg)
}

// NewTool builds a ToolDescriptor per §4.3's build_tool. It fails the build
// (returns an error instead of a descriptor) unless P is a struct and R can
// be encoded — the Go equivalent of §4.3 step 1's compile-time signature
// check, since Go generics can't reject a non-struct P at compile time on
// their own.
func NewTool[P any, R any](name, description string, handler Handler[P, R]) (*ToolDescriptor, error) {
	var zeroP P
	pt := reflect.TypeOf(zeroP)
	if pt == nil || pt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("mcptool: tool %q: parameter type must be a struct", name)
	}

	paramSchema, err := schema.Of[P]()
	if err != nil {
		return nil, fmt.Errorf("mcptool: tool %q: %w", name, err)
	}

	var zeroR R
	if _, err := schema.Encode(zeroR); err != nil {
		return nil, fmt.Errorf("mcptool: tool %q: return type: %w", name, err)
	}

	invoke := func(ctx context.Context, arg value.Value) (out value.Value, failed bool) {
		defer func() {
			if r := recover(); r != nil {
				out, failed = value.String(fmt.Sprintf("Function call failed: %v", r)), true
			}
		}()

		if !arg.IsObject() {
			return value.String("Arguments must be an object"), true
		}

		params, derr := schema.Decode[P](arg)
		if derr != nil {
			return value.String(fmt.Sprintf("Invalid parameters: %s", derr.String())), true
		}

		result, err := handler(ctx, params)
		if err != nil {
			return value.String(fmt.Sprintf("Function call failed: %s", err.Error())), true
		}

		encoded, err := schema.Encode(result)
		if err != nil {
			// Unreachable in practice: R's shape was validated at
			// registration. Treated the same as a handler failure.
			return value.String(fmt.Sprintf("Function call failed: %s", err.Error())), true
		}
		return encoded, false
	}

	return &ToolDescriptor{
		Name:        name,
		Description: description,
		Schema:      paramSchema,
		invoke:      invoke,
	}, nil
}

// MustTool panics instead of returning a build-time error, for package-init
// style registration where a bad tool definition should fail loudly and
// immediately — the same Must-pattern template.Must and the teacher's own
// registerTool validation use.
func MustTool[P any, R any](name, description string, handler Handler[P, R]) *ToolDescriptor {
	d, err := NewTool[P, R](name, description, handler)
	if err != nil {
		panic(err)
	}
	return d
}
