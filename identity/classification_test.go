package identity

import "testing"

func TestClassificationOrdering(t *testing.T) {
	order := []Classification{
		ClassificationOpen,
		ClassificationRestricted,
		ClassificationConfidential,
		ClassificationSecret,
	}
	for i := 1; i < len(order); i++ {
		if order[i].Level() <= order[i-1].Level() {
			t.Fatalf("%s must rank above %s", order[i], order[i-1])
		}
		if !order[i].AtLeast(order[i-1]) || order[i-1].AtLeast(order[i]) {
			t.Fatalf("AtLeast inconsistent for %s/%s", order[i-1], order[i])
		}
	}
	if Classification("TOP").Valid() {
		t.Fatal("unknown level must be invalid")
	}
}

func TestMostRestrictive(t *testing.T) {
	if got := MostRestrictive(); got != ClassificationOpen {
		t.Fatalf("expected OPEN for empty input, got %s", got)
	}
	got := MostRestrictive(ClassificationRestricted, "", ClassificationSecret, ClassificationOpen, "BOGUS")
	if got != ClassificationSecret {
		t.Fatalf("expected SECRET, got %s", got)
	}
}

func TestParseClassification(t *testing.T) {
	c, err := ParseClassification("  confidential ")
	if err != nil || c != ClassificationConfidential {
		t.Fatalf("unexpected parse result %q %v", c, err)
	}
	if _, err := ParseClassification("internal"); err != ErrUnknownClassification {
		t.Fatalf("expected ErrUnknownClassification, got %v", err)
	}
}
