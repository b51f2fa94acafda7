package token

import "testing"

func TestNewLengthAndCharset(t *testing.T) {
	for _, n := range []int{1, 8, 15, 16, 64} {
		s, err := New(n)
		if err != nil {
			t.Fatalf("New(%d): %v", n, err)
		}
		if len(s) != n {
			t.Fatalf("New(%d): got length %d (%q)", n, len(s), s)
		}
		for _, r := range s {
			if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
				t.Fatalf("New(%d): unexpected character %q in %q", n, r, s)
			}
		}
	}
}

func TestNewZeroAndNegative(t *testing.T) {
	for _, n := range []int{0, -4} {
		s, err := New(n)
		if err != nil || s != "" {
			t.Fatalf("New(%d): got %q err %v, want empty", n, s, err)
		}
	}
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		s, err := New(16)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate token %q after %d draws", s, i)
		}
		seen[s] = struct{}{}
	}
}
