package backup

import (
	"strings"
	"testing"
)

func TestGenerateShape(t *testing.T) {
	codes, err := Generate(8, 8)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(codes) != 8 {
		t.Fatalf("expected 8 codes, got %d", len(codes))
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		if len(code) != 8 {
			t.Fatalf("expected 8-char code, got %q", code)
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("expected uppercase code, got %q", code)
		}
		for i := 0; i < len(code); i++ {
			c := code[i]
			if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')) {
				t.Fatalf("expected hex alphabet, got %q", code)
			}
		}
		if seen[code] {
			t.Fatalf("duplicate code generated: %q", code)
		}
		seen[code] = true
	}
}

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ab12cd34", "AB12CD34"},
		{"AB12-CD34", "AB12CD34"},
		{"  ab12 cd34\t", "AB12CD34"},
		{"a_b!1#2", "AB12"},
		{"----", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Canonicalize(tc.in); got != tc.want {
			t.Fatalf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMatch(t *testing.T) {
	stored := []string{"AB12CD34", "00FF00FF", "DEADBEEF"}

	idx, ok := Match(stored, "00ff-00ff")
	if !ok || idx != 1 {
		t.Fatalf("expected match at index 1, got idx=%d ok=%v", idx, ok)
	}

	if _, ok := Match(stored, "AB12CD3"); ok {
		t.Fatal("prefix must not match")
	}
	if _, ok := Match(stored, "AB12CD34FF"); ok {
		t.Fatal("longer input must not match")
	}
	if _, ok := Match(stored, ""); ok {
		t.Fatal("empty input must not match")
	}
	if _, ok := Match(nil, "AB12CD34"); ok {
		t.Fatal("empty set must not match")
	}
}
