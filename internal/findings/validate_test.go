package findings

import "testing"

func TestValidateKeepsTextPresentOnPage(t *testing.T) {
	page := "Invoice #123, contact jane@example.com"
	in := []Finding{
		{Text: "jane@example.com", Type: CategoryEmails},
		{Text: "nonexistent@nowhere.com", Type: CategoryEmails},
	}
	out := Validate(in, page, nil)
	if len(out) != 1 {
		t.Fatalf("expected 1 validated finding, got %d", len(out))
	}
	if out[0].Text != "jane@example.com" {
		t.Errorf("wrong finding kept: %q", out[0].Text)
	}
}

func TestValidateToleratesSmallOCRNoise(t *testing.T) {
	// One character off: similarity stays above the threshold.
	page := "Kontakt: Max Musterrnann, Berlin"
	in := []Finding{{Text: "Max Mustermann", Type: CategoryNames}}
	out := Validate(in, page, nil)
	if len(out) != 1 {
		t.Fatalf("fuzzy validation should keep the noisy match, got %d findings", len(out))
	}
}

func TestValidateEmptyPageDropsEverything(t *testing.T) {
	in := []Finding{{Text: "Max Mustermann", Type: CategoryNames}}
	if out := Validate(in, "", nil); len(out) != 0 {
		t.Errorf("nothing can be validated against an empty page, got %v", out)
	}
}
