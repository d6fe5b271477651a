package output

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p, deviceColors: map[string]string{}}
	require.NoError(t, w.Write(sample("gps1", 0, 2)))
	require.Len(t, p.msgs, 2)
	if _, ok := p.msgs[0].(logMsg); !ok {
		t.Fatalf("expected logMsg, got %T", p.msgs[0])
	}
	if _, ok := p.msgs[1].(rowMsg); !ok {
		t.Fatalf("expected rowMsg, got %T", p.msgs[1])
	}
	w.SetStatus("done")
	if _, ok := p.msgs[2].(statusMsg); !ok {
		t.Fatalf("expected statusMsg, got %T", p.msgs[2])
	}
}

func TestTUIModelCountsRows(t *testing.T) {
	m := newTUIModel([]string{"gps1", "gps2"})
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = mi.(tuiModel)
	for i := 0; i < 3; i++ {
		mi, _ = m.Update(rowMsg{sample("gps2", i, 1)})
		m = mi.(tuiModel)
	}
	mi, _ = m.Update(rowMsg{sample("other", 9, 1)})
	m = mi.(tuiModel)

	assert.Equal(t, 4, m.total)
	rows := m.table.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "gps2", rows[1][1])
	assert.Equal(t, "3", rows[1][2])
	assert.Equal(t, "-", rows[2][0])
	assert.Contains(t, m.View(), "4 seconds selected")
}

func TestTUIWrapToggle(t *testing.T) {
	m := newTUIModel(nil)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 20})
	m = mi.(tuiModel)
	mi, _ = m.Update(logMsg{line: "one two three four five six"})
	m = mi.(tuiModel)
	lines := strings.Split(m.vp.View(), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Empty(t, strings.TrimSpace(lines[1]))

	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	assert.True(t, m.wrap)
	lines = strings.Split(m.vp.View(), "\n")
	assert.NotEmpty(t, strings.TrimSpace(lines[1]))
}

func TestTUIQuit(t *testing.T) {
	m := newTUIModel(nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}
