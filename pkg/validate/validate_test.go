package validate

import (
	"strings"
	"testing"
)

type sample struct {
	Name  string `binding:"required,min=3,max=5"`
	Email string `binding:"required,email"`
	Kind  string `binding:"oneof=a b"`
	Order int    `binding:"min=0"`
}

func TestStruct(t *testing.T) {
	if err := Struct(sample{Name: "abcd", Email: "a@b.co", Kind: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := Struct(sample{Name: "ab", Email: "nope", Kind: "c", Order: -1})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"Name must be at least 3", "Email must be a valid email", "Kind must be one of [a b]", "Order must be at least 0"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
