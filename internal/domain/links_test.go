package domain

import (
	"reflect"
	"testing"
)

func TestExtractLinks(t *testing.T) {
	text := `Met with [[Alice]] and [[alice|Al]] about [[Projects/Atlas#Scope]].
See [atlas](Projects/Atlas.md) and [site](https://example.com).
![[diagram.canvas]] [[#Local heading]] [[Atlas^block]]`

	got := ExtractLinks(text)
	want := map[string]int{
		"alice":          2,
		"projects/atlas": 2,
		"diagram":        1,
		"atlas":          1,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractLinks() = %v, want %v", got, want)
	}
}

func TestTargetKeys(t *testing.T) {
	if got := TargetKeys("Projects/Atlas.md"); !reflect.DeepEqual(got, []string{"projects/atlas", "atlas"}) {
		t.Errorf("unexpected keys %v", got)
	}
	if got := TargetKeys("Atlas.md"); !reflect.DeepEqual(got, []string{"atlas"}) {
		t.Errorf("unexpected keys %v", got)
	}
}

func TestReferencingLines(t *testing.T) {
	text := "- call with [[Atlas]]\n- lunch\n  - follow up [[Projects/Atlas|the project]]"
	got := ReferencingLines(text, "Projects/Atlas.md")
	want := []string{"- call with [[Atlas]]", "- follow up [[Projects/Atlas|the project]]"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDocumentKindOf(t *testing.T) {
	tests := map[string]DocumentKind{
		"a.md":            DocumentMarkdown,
		"Boards/x.canvas": DocumentCanvas,
		"img.png":         DocumentUnknown,
	}
	for p, want := range tests {
		if got := DocumentKindOf(p); got != want {
			t.Errorf("DocumentKindOf(%q) = %v, want %v", p, got, want)
		}
	}
}
