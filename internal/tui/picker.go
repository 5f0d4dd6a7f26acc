package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/icco/videoseq/internal/resource"
	"github.com/icco/videoseq/internal/sequencer"
)

const listTimeout = 10 * time.Second

var errNoClipSource = errors.New("no clip source configured")

type clipsMsg struct {
	names []string
	err   error
}

// pickerModel chooses the media file for a new instrument.
type pickerModel struct {
	names   []string
	cursor  int
	loading bool
	message string
}

func (p *pickerModel) load(msg clipsMsg) {
	p.loading = false
	p.names = msg.names
	p.cursor = 0
	p.message = ""
	if msg.err != nil {
		p.message = fmt.Sprintf("Error listing clips: %v", msg.err)
	}
}

func (m Model) listClips() tea.Cmd {
	lister := m.opts.Clips
	return func() tea.Msg {
		if lister == nil {
			return clipsMsg{err: errNoClipSource}
		}
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		names, err := lister.ListClips(ctx)
		return clipsMsg{names: names, err: err}
	}
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := &m.picker

	switch msg.String() {
	case keyUp, "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case keyDown, "j":
		if p.cursor < len(p.names)-1 {
			p.cursor++
		}
	case "r":
		p.loading = true
		return m, m.listClips()
	case "esc", "q":
		m.mode = sequencerMode
	case "enter":
		if len(p.names) == 0 {
			return m, nil
		}
		m.addInstrument(p.names[p.cursor])
		m.mode = sequencerMode
	}

	return m, nil
}

// addInstrument creates an instrument for the named clip. With a local clips
// directory the file is registered as its source, otherwise the instrument
// borrows the clip server path.
func (m *Model) addInstrument(filename string) {
	var source sequencer.MediaHandle
	url := ""
	if m.opts.ClipsDir != "" {
		source = resource.FileHandle{Path: filepath.Join(m.opts.ClipsDir, filename)}
	} else {
		url = resource.ClipURL(filename)
	}

	inst, err := m.seq.AddInstrument(resource.BaseName(filename), source, url)
	switch {
	case errors.Is(err, sequencer.ErrGridFull):
		m.editor.message = "Grid is full: grow it with r or c first"
	case err != nil:
		m.logger.Warn("add instrument failed", "clip", filename, "error", err)
		m.editor.message = fmt.Sprintf("Error: %v", err)
	default:
		m.editor.cursorInst = len(m.seq.Project().Instruments) - 1
		m.editor.message = fmt.Sprintf("Added %s", inst.Name)
	}
}

func (m Model) viewPicker() string {
	p := m.picker
	var b strings.Builder

	b.WriteString(titleStyle.Render("Add Instrument") + "\n\n")
	switch {
	case p.loading:
		b.WriteString("Loading clips...\n")
	case len(p.names) == 0 && p.message == "":
		b.WriteString("No clips found.\n")
	}
	for i, name := range p.names {
		if i == p.cursor {
			b.WriteString(selectedStyle.Render("> "+name) + "\n")
		} else {
			b.WriteString("  " + name + "\n")
		}
	}

	b.WriteString("\n")
	if p.message != "" {
		b.WriteString(errorStyle.Render(p.message) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("↑/k: up • ↓/j: down • enter: add • r: refresh • q/esc: cancel"))

	return b.String()
}
