// Package sha256 includes tests for the SHA-256 hasher adapter.
package sha256

import (
	"fmt"
	"regexp"
	"testing"
)

var keyPattern = regexp.MustCompile(`^[0-9a-z]{12}$`)

// TestDeriveKeyShape checks length, alphabet and determinism over varied inputs.
func TestDeriveKeyShape(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://example.com",
		"https://example.com/",
		"http://localhost:8080/path?q=1#frag",
		"a",
		"日本語のページ",
		"",
	}
	h := New()
	for _, in := range inputs {
		key := DeriveKey(in)
		if !keyPattern.MatchString(key) {
			t.Fatalf("DeriveKey(%q) = %q, want 12 chars of [0-9a-z]", in, key)
		}
		if again := h.Key(in); again != key {
			t.Fatalf("DeriveKey(%q) not deterministic: %q vs %q", in, key, again)
		}
	}
}

// TestDeriveKeyKnownValue pins the encoding so keys stay stable across releases.
func TestDeriveKeyKnownValue(t *testing.T) {
	t.Parallel()

	// sha256("hello world") read as a base-16 integer and printed in base 36.
	if got := DeriveKey("hello world"); got != "4m9htaja79as" {
		t.Fatalf("unexpected key %q", got)
	}
}

// TestDeriveKeyDistinct is a statistical collision check over a sample set.
func TestDeriveKeyDistinct(t *testing.T) {
	t.Parallel()

	seen := make(map[string]string, 5000)
	for i := 0; i < 5000; i++ {
		url := fmt.Sprintf("https://example%d.com/page/%d", i%97, i)
		key := DeriveKey(url)
		if prev, ok := seen[key]; ok {
			t.Fatalf("collision between %q and %q on %q", prev, url, key)
		}
		seen[key] = url
	}
}
