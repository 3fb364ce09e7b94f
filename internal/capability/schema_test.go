package capability

import (
	"errors"
	"testing"
)

func sayAction() ActionDescriptor {
	return ActionDescriptor{
		Name:      "say",
		Component: "e1",
		Parameters: ParameterSchema{
			"text":   {Type: "string", Required: true},
			"repeat": {Type: "integer", Default: 1},
		},
		Order: []string{"text", "repeat"},
	}
}

func TestBindArgsPositional(t *testing.T) {
	bound, err := BindArgs(sayAction(), []any{"hi", 3}, nil)
	if err != nil {
		t.Fatalf("BindArgs failed: %v", err)
	}
	if bound["text"] != "hi" {
		t.Errorf("text = %v, want hi", bound["text"])
	}
	if bound["repeat"] != 3 {
		t.Errorf("repeat = %v, want 3", bound["repeat"])
	}
}

func TestBindArgsDefault(t *testing.T) {
	bound, err := BindArgs(sayAction(), nil, map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("BindArgs failed: %v", err)
	}
	if bound["repeat"] != 1 {
		t.Errorf("repeat default = %v, want 1", bound["repeat"])
	}
}

func TestBindArgsErrors(t *testing.T) {
	tests := []struct {
		name   string
		args   []any
		kwargs map[string]any
	}{
		{"too many positional", []any{"a", 1, "extra"}, nil},
		{"duplicate assignment", []any{"hi"}, map[string]any{"text": "there"}},
		{"unknown parameter", nil, map[string]any{"volume": 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BindArgs(sayAction(), tt.args, tt.kwargs)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestValidateArgs(t *testing.T) {
	action := sayAction()
	compiled, err := CompileSchema(action)
	if err != nil {
		t.Fatalf("CompileSchema failed: %v", err)
	}

	// Valid arguments pass.
	bound, err := BindArgs(action, []any{"hi"}, nil)
	if err != nil {
		t.Fatalf("BindArgs failed: %v", err)
	}
	if err := ValidateArgs(compiled, bound); err != nil {
		t.Fatalf("ValidateArgs rejected valid args: %v", err)
	}

	// Missing required parameter fails.
	if err := ValidateArgs(compiled, map[string]any{"repeat": 2}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing required: got %v, want ErrValidation", err)
	}

	// Type mismatch fails.
	if err := ValidateArgs(compiled, map[string]any{"text": 42}); !errors.Is(err, ErrValidation) {
		t.Errorf("type mismatch: got %v, want ErrValidation", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{ErrValidation, KindValidation},
		{ErrNotFound, KindNotFound},
		{ErrDuplicateName, KindDuplicateName},
		{ErrUnknownType, KindUnknownType},
		{ErrIncompatibleCapability, KindIncompatibleCapability},
		{ErrAuthentication, KindAuthentication},
		{ErrRateLimitExceeded, KindRateLimitExceeded},
		{ErrTransientFailure, KindTransientFailure},
		{ErrTimeout, KindTimeout},
		{errors.New("anything else"), KindInternal},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
