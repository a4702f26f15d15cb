package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nconklindev/csvrange/internal/session"
	"github.com/nconklindev/csvrange/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

func people() *types.Table {
	return &types.Table{
		Header: []string{"name", "age"},
		Rows:   [][]string{{"Ann", "30"}, {"Bo", "25"}, {"Cy", "40"}},
	}
}

func newTestModel(loader session.LoaderFunc) Model {
	return InitialModel(Options{
		Dir:    ".",
		Range:  types.Range{Start: 1, End: 3},
		Loader: loader,
	})
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// loaded drives a selection through to a delivered parse result.
func loaded(t *testing.T, m Model, path string, table *types.Table, err error) Model {
	t.Helper()
	m, _ = m.selectFile(path)
	return update(t, m, fileLoadedMsg{gen: m.session.Generation(), table: table, err: err})
}

func TestInitialModel(t *testing.T) {
	m := newTestModel(nil)

	if m.state != stateFilePicker {
		t.Errorf("expected file picker state, got %v", m.state)
	}
	if !strings.Contains(m.viewport.View(), session.PromptText) {
		t.Errorf("expected prompt text in output, got %q", m.viewport.View())
	}
	if m.startInput.Value() != "1" || m.endInput.Value() != "3" {
		t.Errorf("unexpected input values %q, %q", m.startInput.Value(), m.endInput.Value())
	}
}

func TestInitialModel_WithPath(t *testing.T) {
	m := InitialModel(Options{Dir: ".", Path: "people.csv", Range: types.Range{Start: 1, End: 3}})

	if m.state != stateViewer {
		t.Errorf("expected viewer state, got %v", m.state)
	}
	if m.Init() == nil {
		t.Error("expected init command")
	}
}

func TestFileLoaded_ShowsTable(t *testing.T) {
	m := loaded(t, newTestModel(nil), "people.csv", people(), nil)

	if m.loading {
		t.Error("expected loading to finish")
	}
	if m.session.Display() != session.DisplayTable {
		t.Fatalf("expected table display, got %v", m.session.Display())
	}

	out := m.viewport.View()
	for _, want := range []string{"Bo", "Cy"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Ann") {
		t.Errorf("offset 1 should skip the first data row:\n%s", out)
	}
}

func TestFileLoaded_Error(t *testing.T) {
	m := loaded(t, newTestModel(nil), "broken.csv", nil, errors.New("bad csv"))

	if m.session.Display() != session.DisplayPrompt {
		t.Errorf("expected prompt display, got %v", m.session.Display())
	}
	if !strings.Contains(m.View(), "bad csv") {
		t.Errorf("expected error in view:\n%s", m.View())
	}
}

func TestFileLoaded_StaleDropped(t *testing.T) {
	m := newTestModel(nil)

	m, _ = m.selectFile("first.csv")
	stale := m.session.Generation()
	m, _ = m.selectFile("second.csv")

	m = update(t, m, fileLoadedMsg{gen: stale, table: people()})

	if !m.loading {
		t.Error("stale result should not finish the current load")
	}
	if _, ok := m.session.Table(); ok {
		t.Error("stale result should not be memoized")
	}
}

func TestSelectFile_ClearsPreviousOutput(t *testing.T) {
	m := loaded(t, newTestModel(nil), "people.csv", people(), nil)

	m, _ = m.selectFile("other.csv")

	if !strings.Contains(m.viewport.View(), session.PromptText) {
		t.Errorf("expected prompt after new selection, got %q", m.viewport.View())
	}
}

func TestSelectFile_CancelsPrevious(t *testing.T) {
	m := newTestModel(nil)

	m, _ = m.selectFile("first.csv")
	first := m.cancel
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.cancel = func() {
		first()
		cancel()
	}

	m, _ = m.selectFile("second.csv")

	if ctx.Err() == nil {
		t.Error("expected previous parse to be cancelled")
	}
	m.cancel()
}

func TestRangeKeys(t *testing.T) {
	m := loaded(t, newTestModel(nil), "people.csv", people(), nil)

	// End field: "3" + "0" -> "30", start stays 1
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, runes("0"))
	if got := m.session.Range(); got != (types.Range{Start: 1, End: 30}) {
		t.Errorf("unexpected range %v", got)
	}

	// Start field: "1" + "2" -> 12, still below the end
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = update(t, m, runes("2"))
	if got := m.session.Range(); got != (types.Range{Start: 12, End: 30}) {
		t.Errorf("unexpected range %v", got)
	}
	if m.session.Display() != session.DisplayTable {
		t.Errorf("expected table display, got %v", m.session.Display())
	}
}

func TestRangeKeys_WithoutFileShowsPlaceholder(t *testing.T) {
	m := newTestModel(nil)
	m.state = stateViewer

	m = update(t, m, runes("2"))

	if m.session.Display() != session.DisplayPlaceholder {
		t.Errorf("expected placeholder display, got %v", m.session.Display())
	}
	if !strings.Contains(m.viewport.View(), session.PlaceholderText) {
		t.Errorf("expected placeholder text, got %q", m.viewport.View())
	}
}

func TestRangeKeys_IgnoresLetters(t *testing.T) {
	m := newTestModel(nil)
	m.state = stateViewer

	m = update(t, m, runes("x"))

	if m.startInput.Value() != "1" {
		t.Errorf("expected letters to be ignored, got %q", m.startInput.Value())
	}
}

func TestOpenPicker(t *testing.T) {
	m := loaded(t, newTestModel(nil), "people.csv", people(), nil)

	m = update(t, m, runes("o"))
	if m.state != stateFilePicker {
		t.Fatalf("expected file picker state, got %v", m.state)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != stateViewer {
		t.Errorf("expected esc to return to viewer, got %v", m.state)
	}
	if _, ok := m.session.Table(); !ok {
		t.Error("opening the picker should keep the parsed table")
	}
}

func TestWaitForProgress(t *testing.T) {
	progressChan := make(chan float64, 1)
	resultChan := make(chan fileLoadedMsg, 1)

	progressChan <- 0.5
	if msg := waitForProgress(3, progressChan, resultChan)(); msg != (progressMsg{gen: 3, percent: 0.5}) {
		t.Errorf("unexpected msg %#v", msg)
	}

	resultChan <- fileLoadedMsg{gen: 3}
	close(progressChan)
	close(resultChan)

	msg, ok := waitForProgress(3, progressChan, resultChan)().(fileLoadedMsg)
	if !ok || msg.gen != 3 {
		t.Errorf("expected result msg, got %#v", msg)
	}
}

func TestViewFilePicker(t *testing.T) {
	out := newTestModel(nil).viewFilePicker()

	if !strings.Contains(out, "Choose CSV to upload") {
		t.Errorf("expected upload subtitle in view:\n%s", out)
	}
	if strings.Contains(out, "github.com") {
		t.Errorf("unexpected link in view:\n%s", out)
	}
}
