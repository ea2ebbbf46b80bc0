package tui

import (
	"testing"

	"linkcal/internal/adapters/tui/views"
	"linkcal/internal/application/analysis"
	"linkcal/internal/application/configsync"
)

func TestEvents_KeepsLatestAnalysis(t *testing.T) {
	e := NewEvents()

	for year := 2000; year < 2040; year++ {
		e.Refreshed(configsync.Refreshed{Analysis: &analysis.Analysis{Year: year}})
	}

	got, ok := e.wait().(eventMsg)
	if !ok {
		t.Fatal("expected an event")
	}
	msg, ok := got.msg.(views.AnalysisMsg)
	if !ok || msg.Analysis.Year != 2039 {
		t.Errorf("expected the newest analysis, got %+v", got.msg)
	}

	select {
	case m := <-e.latest:
		t.Errorf("stale analysis left behind: %+v", m)
	default:
	}
}

func TestEvents_NoticesAreNotDisplacedByAnalyses(t *testing.T) {
	e := NewEvents()

	e.Notify("2 duplicates updated")
	for i := 0; i < 20; i++ {
		e.Refreshed(configsync.Refreshed{Analysis: &analysis.Analysis{Year: 2025}})
	}

	var notices, analyses int
	for i := 0; i < 2; i++ {
		switch e.wait().(eventMsg).msg.(type) {
		case views.NoticeMsg:
			notices++
		case views.AnalysisMsg:
			analyses++
		}
	}
	if notices != 1 || analyses != 1 {
		t.Errorf("got %d notices and %d analyses, want 1 and 1", notices, analyses)
	}
}
