package textutil

import "testing"

func TestFoldEqual(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Tip-Nick", "tip-nick", true},
		{"  NZ-042 ", "nz-042", true},
		{"STRASSE", "strasse", true},
		{"Missing Tip", "missing-tip", false},
	}
	for _, tc := range cases {
		if got := FoldEqual(tc.a, tc.b); got != tc.want {
			t.Fatalf("FoldEqual(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFoldSetDropsEmpty(t *testing.T) {
	set := FoldSet([]string{"Tip-Nick", "", "  ", "TIP-NICK", "Scalloped"})
	if len(set) != 2 {
		t.Fatalf("expected 2 categories, got %v", set)
	}
	if _, ok := set["tip-nick"]; !ok {
		t.Fatalf("expected folded tip-nick in %v", set)
	}
}

func TestDisplayCategory(t *testing.T) {
	if got := DisplayCategory("missing tip"); got != "Missing Tip" {
		t.Fatalf("DisplayCategory = %q", got)
	}
	if got := DisplayCategory(" "); got != "Unknown" {
		t.Fatalf("DisplayCategory(blank) = %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"NZ/042: left":  "NZ-042- left",
		"what?":         "what",
		"  ":            "unknown",
		"..":            "unknown",
		"fin<1>|trace*": "fin1trace-",
	}
	for input, want := range tests {
		if got := SanitizeFileName(input); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}
