package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("duplicate key")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad %s", "title"), KindValidation},
		{"wrapped conflict", fmt.Errorf("create: %w", Wrap(KindConflict, cause, "email taken")), KindConflict},
		{"plain", cause, KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("KindOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("row locked")
	err := Internal(cause, "complete attempt")
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if Message(err) != "complete attempt" {
		t.Fatalf("message = %q", Message(err))
	}
	if Message(cause) != "internal server error" {
		t.Fatalf("unclassified message leaked: %q", Message(cause))
	}
}
