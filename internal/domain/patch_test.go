package domain

import (
	"strings"
	"testing"
)

const sampleNote = `# Reading log

Some prose before.

` + "```backlink-heatmap" + `
id: heat-1
path: Books/Dune.md
year: 2024
path: Books/Emma.md
` + "```" + `

` + "```backlink-heatmap" + `
id: heat-2
year: 2023
` + "```" + `

Trailing prose.
`

func TestLocateBlocks_ByIDOnly(t *testing.T) {
	refs := LocateBlocks(sampleNote, "backlink-heatmap", "heat-2")
	if len(refs) != 1 {
		t.Fatalf("expected 1 match, got %d", len(refs))
	}
	if refs[0].Start != 11 || refs[0].End != 14 {
		t.Errorf("unexpected range [%d,%d]", refs[0].Start, refs[0].End)
	}

	if got := LocateBlocks(sampleNote, "backlink-counter", "heat-2"); len(got) != 0 {
		t.Errorf("kind must match, got %d", len(got))
	}
	if got := LocateBlocks(sampleNote, "backlink-heatmap", ""); len(got) != 0 {
		t.Errorf("empty id must never match, got %d", len(got))
	}
}

func TestPatchProperty_ReplacesAllLinesOnce(t *testing.T) {
	got, n := PatchProperty(sampleNote, "backlink-heatmap", "heat-1", "path", []string{"Books/Ulysses.md"})
	if n != 1 {
		t.Fatalf("expected 1 block patched, got %d", n)
	}

	want := strings.Replace(sampleNote,
		"path: Books/Dune.md\nyear: 2024\npath: Books/Emma.md\n",
		"path: Books/Ulysses.md\nyear: 2024\n", 1)
	if got != want {
		t.Errorf("unexpected patch result:\n%s", got)
	}
	if strings.Count(got, "path:") != 1 {
		t.Errorf("expected exactly one path line, got %d", strings.Count(got, "path:"))
	}
}

func TestPatchProperty_InsertsBeforeFenceWhenAbsent(t *testing.T) {
	got, n := PatchProperty(sampleNote, "backlink-heatmap", "heat-2", "path", []string{"A.md", "B.md"})
	if n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
	if !strings.Contains(got, "id: heat-2\nyear: 2023\npath: A.md\npath: B.md\n```") {
		t.Errorf("values not inserted before closing fence:\n%s", got)
	}
	if !strings.HasPrefix(got, "# Reading log\n\nSome prose before.\n") || !strings.HasSuffix(got, "Trailing prose.\n") {
		t.Error("surrounding prose was modified")
	}
}

func TestPatchProperty_NoChangeIsIdempotent(t *testing.T) {
	got, n := PatchProperty(sampleNote, "backlink-heatmap", "heat-2", "year", []string{"2023"})
	if n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
	if got != sampleNote {
		t.Errorf("patch with unchanged value altered the text:\n%s", got)
	}
}

func TestPatchProperty_MissingBlockLeavesTextUntouched(t *testing.T) {
	got, n := PatchProperty(sampleNote, "backlink-heatmap", "missing", "year", []string{"2020"})
	if n != 0 || got != sampleNote {
		t.Errorf("expected untouched text and 0, got %d", n)
	}
}

func TestPatchProperty_EmptyValuesRemove(t *testing.T) {
	got, _ := PatchProperty(sampleNote, "backlink-heatmap", "heat-1", "path", nil)
	if strings.Contains(got, "Books/") {
		t.Errorf("expected path lines removed:\n%s", got)
	}
}

func TestPatchProperty_DuplicatesAllUpdated(t *testing.T) {
	block := "```backlink-counter\nid: dup\nperiod: today\n```\n"
	text := block + "\nbetween\n\n" + block

	got, n := PatchProperty(text, "backlink-counter", "dup", "period", []string{"this-week"})

	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
	if strings.Count(got, "period: this-week") != 2 || strings.Contains(got, "today") {
		t.Errorf("not every duplicate was updated:\n%s", got)
	}
	if !strings.Contains(got, "\nbetween\n") {
		t.Error("text between blocks lost")
	}
}

func TestPatchProperty_KeepsCRLF(t *testing.T) {
	text := "```backlink-counter\r\nid: crlf\r\nperiod: today\r\n```\r\n"
	got, _ := PatchProperty(text, "backlink-counter", "crlf", "period", []string{"this-year"})
	if got != "```backlink-counter\r\nid: crlf\r\nperiod: this-year\r\n```\r\n" {
		t.Errorf("line endings not preserved: %q", got)
	}
}

func TestInsertBlock(t *testing.T) {
	cfg := &CounterConfig{ID: "new", Period: PeriodToday}

	got := InsertBlock("# Note\n", cfg)

	want := "# Note\n\n```backlink-counter\nid: new\nperiod: today\n```\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if refs := LocateBlocks(got, "backlink-counter", "new"); len(refs) != 1 {
		t.Errorf("inserted block not locatable")
	}
}
