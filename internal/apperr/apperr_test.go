package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"not found", NotFound("enrollment %q", "e1"), KindNotFound},
		{"wrapped not found", fmt.Errorf("update node: %w", NotFound("node %q", "n1")), KindNotFound},
		{"conflict", Conflict("assessment already completed"), KindConflict},
		{"invalid", Invalid("no nodes available for assessment"), KindInvalidRequest},
		{"external", External("generate assessment", errors.New("timeout")), KindExternalService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExternal_KeepsCause(t *testing.T) {
	err := External("evaluate assessment", context.DeadlineExceeded)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("External() should keep the cause reachable")
	}
	if !errors.Is(err, ErrExternalService) {
		t.Error("External() should mark the error as external")
	}
}

func TestExternal_Nil(t *testing.T) {
	if err := External("noop", nil); err != nil {
		t.Errorf("External(nil) = %v, want nil", err)
	}
}

func TestExternal_NoDoubleWrap(t *testing.T) {
	inner := External("provider", errors.New("503"))
	outer := External("generate roadmap", inner)

	if got := outer.Error(); got != "generate roadmap: provider: external service failure: 503" {
		t.Errorf("Error() = %q", got)
	}
}

func TestKind_String(t *testing.T) {
	if KindConflict.String() != "conflict" {
		t.Errorf("String() = %q, want conflict", KindConflict.String())
	}
	if Kind(99).String() != "unknown" {
		t.Errorf("String() = %q, want unknown", Kind(99).String())
	}
}
