package textmatch

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation to space", "jane@example.com", "jane example com"},
		{"collapse whitespace", "Max   Mustermann\n\tBerlin", "max mustermann berlin"},
		{"keeps hyphens", "Anna-Lena", "anna-lena"},
		{"keeps umlauts", "Müller-Lüdenscheidt", "müller-lüdenscheidt"},
		{"trims", "  Hello World  ", "hello world"},
		{"empty", "", ""},
		{"only punctuation", "!!!???", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Max Mustermann",
		"  Invoice #123, contact jane@example.com  ",
		"Straße 42, 10115 Berlin",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio("max mustermann", "max mustermann"); got != 100 {
		t.Errorf("identical strings should score 100, got %d", got)
	}
	if got := Ratio("max mustermann", "qqqqqqqqqq"); got > 20 {
		t.Errorf("unrelated strings should score low, got %d", got)
	}
	// Symmetry.
	a, b := "mustermann", "musterman"
	if Ratio(a, b) != Ratio(b, a) {
		t.Errorf("Ratio not symmetric: %d vs %d", Ratio(a, b), Ratio(b, a))
	}
}

func TestEquivalent(t *testing.T) {
	if !Equivalent("max mustermann", "max musterman") {
		t.Error("near-identical strings should be equivalent")
	}
	if Equivalent("max mustermann", "erika musterfrau") {
		t.Error("different names should not be equivalent")
	}
}

func TestContainsFuzzy(t *testing.T) {
	page := Normalize("Invoice #123, contact jane@example.com for details")

	if !ContainsFuzzy(page, Normalize("jane@example.com")) {
		t.Error("expected fuzzy containment for text present on page")
	}
	if ContainsFuzzy(page, Normalize("nonexistent@nowhere.com")) {
		t.Error("expected no fuzzy containment for absent text")
	}
	if ContainsFuzzy(page, "") {
		t.Error("empty needle should never match")
	}
}

func TestContainsFuzzyNeedleLongerThanHaystack(t *testing.T) {
	if ContainsFuzzy("short", "a much longer needle than the haystack") {
		t.Error("long needle should not match short haystack")
	}
}

func TestContainsFuzzyMultibyteText(t *testing.T) {
	// Windows align on rune boundaries, so umlauts in the page text do
	// not shift the comparison span.
	if !ContainsFuzzy("straße in köln", "köln") {
		t.Error("expected exact containment in umlaut text")
	}
	if !ContainsFuzzy("herr mustermänn aus köln", "mustermann") {
		t.Error("expected fuzzy containment across an umlaut substitution")
	}
	if ContainsFuzzy("völlig anderer text", "mustermann") {
		t.Error("expected no containment in unrelated umlaut text")
	}
}
