package capability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// CompileSchema compiles an action's parameter schema into a JSON schema
// validator. Compilation is deterministic, so callers cache the result per
// component/action.
func CompileSchema(action ActionDescriptor) (*jsonschema.Schema, error) {
	props := make(map[string]any, len(action.Parameters))
	required := make([]any, 0, len(action.Parameters))

	for _, name := range action.parameterNames() {
		spec := action.Parameters[name]
		prop := map[string]any{}
		if spec.Type != "" && spec.Type != "any" {
			prop["type"] = spec.Type
		}
		if spec.Description != "" {
			prop["description"] = spec.Description
		}
		props[name] = prop
		if spec.Required {
			required = append(required, name)
		}
	}

	doc := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	// Round-trip through JSON so the compiler sees decoded-JSON values only.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema for %s.%s: %w", action.Component, action.Name, err)
	}
	decoded, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding schema for %s.%s: %w", action.Component, action.Name, err)
	}

	url := fmt.Sprintf("caprun:///%s/%s.schema.json", action.Component, action.Name)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, decoded); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return compiled, nil
}

// BindArgs merges positional and keyword arguments into one keyword map,
// applying declared defaults. Positional arguments bind in the action's
// declared parameter order.
func BindArgs(action ActionDescriptor, args []any, kwargs map[string]any) (map[string]any, error) {
	order := action.parameterNames()
	if len(args) > len(order) {
		return nil, fmt.Errorf("%w: action %q takes at most %d positional arguments, got %d",
			ErrValidation, action.Name, len(order), len(args))
	}

	bound := make(map[string]any, len(order))
	for k, v := range kwargs {
		if _, known := action.Parameters[k]; !known {
			return nil, fmt.Errorf("%w: action %q has no parameter %q", ErrValidation, action.Name, k)
		}
		bound[k] = v
	}
	for i, v := range args {
		name := order[i]
		if _, dup := bound[name]; dup {
			return nil, fmt.Errorf("%w: parameter %q given both positionally and by name", ErrValidation, name)
		}
		bound[name] = v
	}
	for name, spec := range action.Parameters {
		if _, set := bound[name]; !set && spec.Default != nil {
			bound[name] = spec.Default
		}
	}
	return bound, nil
}

// ValidateArgs checks bound keyword arguments against a compiled schema.
// Runs before any external call is made.
func ValidateArgs(compiled *jsonschema.Schema, bound map[string]any) error {
	// Normalize to decoded-JSON values (ints become float64 and so on).
	raw, err := json.Marshal(bound)
	if err != nil {
		return fmt.Errorf("%w: arguments are not JSON-serializable: %v", ErrValidation, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := compiled.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// parameterNames returns parameter names in binding order: the declared
// Order first, then any remaining parameters in sorted order for stability.
func (a ActionDescriptor) parameterNames() []string {
	names := make([]string, 0, len(a.Parameters))
	seen := make(map[string]bool, len(a.Parameters))
	for _, n := range a.Order {
		if _, ok := a.Parameters[n]; ok && !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}
	rest := make([]string, 0, len(a.Parameters))
	for n := range a.Parameters {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}
