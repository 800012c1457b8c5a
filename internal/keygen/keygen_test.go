package keygen

import "testing"

func TestNewKeyIsValidAndUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		key := NewKey()
		if !Valid(key) {
			t.Fatalf("generated key %q is not valid", key)
		}
		if len(key) > 25 {
			t.Fatalf("generated key %q longer than 25 chars", key)
		}
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate key %q", key)
		}
		seen[key] = struct{}{}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"abc123", true},
		{"", false},
		{"ABC", false},
		{"a/b", false},
		{"a.b", false},
		{"a b", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.key); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
