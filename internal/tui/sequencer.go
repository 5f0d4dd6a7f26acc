package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/icco/videoseq/internal/project"
	"github.com/icco/videoseq/internal/sequencer"
)

const (
	bpmStep         = 5
	defaultClipLen  = 4
	cellWidth       = 14
	labelWidth      = 10
	defaultTimeline = 64
	beatsPerBar     = 4
)

// editorModel is the cursor and status of the sequencer view. Project data
// lives in the sequencer itself.
type editorModel struct {
	cursorInst int
	cursorBeat int
	clipLen    float64
	message    string
}

func newEditor(message string) editorModel {
	return editorModel{clipLen: defaultClipLen, message: message}
}

func instrumentAt(p sequencer.ProjectState, i int) (sequencer.Instrument, bool) {
	if i < 0 || i >= len(p.Instruments) {
		return sequencer.Instrument{}, false
	}
	return p.Instruments[i], true
}

// clipAt finds the clip of instrumentID covering beat.
func clipAt(p sequencer.ProjectState, instrumentID string, beat int) (sequencer.Clip, bool) {
	return lo.Find(p.Clips, func(c sequencer.Clip) bool {
		return c.InstrumentID == instrumentID && c.ActiveAt(float64(beat))
	})
}

func (m Model) updateSequencer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := &m.editor
	p := m.seq.Project()
	selected, hasSelected := instrumentAt(p, e.cursorInst)

	switch msg.String() {
	case keyUp, "k":
		if e.cursorInst > 0 {
			e.cursorInst--
		}
	case keyDown, "j":
		if e.cursorInst < len(p.Instruments)-1 {
			e.cursorInst++
		}
	case keyLeft, "h":
		if e.cursorBeat > 0 {
			e.cursorBeat--
		}
	case keyRight, "l":
		if e.cursorBeat < int(p.TotalBeats)-1 {
			e.cursorBeat++
		}
	case " ":
		if p.IsPlaying {
			m.seq.Pause()
			m.driver.Advance(0)
			return m, nil
		}
		m.seq.Play()
		return m, m.startTicking()
	case "s":
		m.seq.Stop()
		m.driver.Advance(0)
	case "t":
		m.seq.SetCurrentTime(float64(e.cursorBeat))
	case "+", "=":
		m.seq.SetBPM(p.BPM + bpmStep)
	case "-", "_":
		m.seq.SetBPM(p.BPM - bpmStep)
	case "L":
		m.seq.ToggleLoopMode()
	case "r":
		m.resizeGrid(p.GridSize.Rows+1, p.GridSize.Cols)
	case "R":
		m.resizeGrid(p.GridSize.Rows-1, p.GridSize.Cols)
	case "c":
		m.resizeGrid(p.GridSize.Rows, p.GridSize.Cols+1)
	case "C":
		m.resizeGrid(p.GridSize.Rows, p.GridSize.Cols-1)
	case "a":
		m.mode = pickerMode
		m.picker = pickerModel{loading: true}
		return m, m.listClips()
	case "x":
		if !hasSelected {
			return m, nil
		}
		m.seq.RemoveInstrument(selected.ID)
		e.cursorInst = max(min(e.cursorInst, len(p.Instruments)-2), 0)
		e.message = fmt.Sprintf("Removed %s", selected.Name)
	case "enter":
		if !hasSelected {
			e.message = "Add an instrument first (a)"
			return m, nil
		}
		if _, ok := clipAt(p, selected.ID, e.cursorBeat); ok {
			return m, nil
		}
		m.seq.AddClip(selected.ID, float64(e.cursorBeat), e.clipLen, e.cursorInst)
	case "d":
		if !hasSelected {
			return m, nil
		}
		if c, ok := clipAt(p, selected.ID, e.cursorBeat); ok {
			m.seq.RemoveClip(c.ID)
		}
	case "[", "]":
		delta := 1.0
		if msg.String() == "[" {
			delta = -1
		}
		if hasSelected {
			if c, ok := clipAt(p, selected.ID, e.cursorBeat); ok {
				d := math.Max(1, c.Duration+delta)
				m.seq.UpdateClip(c.ID, sequencer.ClipPatch{Duration: &d})
				return m, nil
			}
		}
		e.clipLen = math.Max(1, e.clipLen+delta)
	case "e":
		m.export()
	}

	return m, nil
}

func (m *Model) resizeGrid(rows, cols int) {
	err := m.seq.SetGridSize(rows, cols)
	switch {
	case err == nil:
		m.editor.message = fmt.Sprintf("Grid %dx%d", rows, cols)
	case errors.Is(err, sequencer.ErrGridOrphan):
		m.editor.message = "Cannot shrink grid: an instrument would fall outside it"
	default:
		m.editor.message = fmt.Sprintf("Error: %v", err)
	}
}

func (m *Model) export() {
	if m.opts.Downloader == nil {
		m.editor.message = "Export is not configured"
		return
	}
	name, err := project.Save(context.Background(), m.seq, m.opts.Downloader, m.opts.Now())
	if err != nil {
		m.logger.Warn("export failed", "error", err)
		m.editor.message = fmt.Sprintf("Error: %v", err)
		return
	}
	m.editor.message = fmt.Sprintf("Saved %s", name)
}

func (m Model) viewSequencer() string {
	p := m.seq.Project()
	pb := m.seq.Playback()
	e := m.editor

	var b strings.Builder
	b.WriteString(titleStyle.Render("VIDEOSEQ") + "\n\n")

	state := dimStyle.Render("■ Stopped")
	if p.IsPlaying {
		state = projectStyle.Bold(true).Render("▶ Playing")
	}
	loop := "off"
	if p.LoopMode {
		loop = "on"
	}
	b.WriteString(fmt.Sprintf("BPM: %g  Beat: %.2f/%g  %s  Loop: %s  Grid: %dx%d  Clip length: %g\n\n",
		p.BPM, p.CurrentTime, p.TotalBeats, state, loop, p.GridSize.Rows, p.GridSize.Cols, e.clipLen))

	active := map[string]bool{}
	for _, c := range p.Clips {
		if pb.IsActive(c.ID) {
			active[c.InstrumentID] = true
		}
	}
	b.WriteString(m.renderGrid(p, active))
	b.WriteString("\n")
	b.WriteString(m.renderTimeline(p))

	b.WriteString("\n")
	if e.message != "" {
		b.WriteString(errorStyle.Render(e.message) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("↑↓←→ or hjkl: move • enter: add clip • d: delete clip • [/]: clip length • a: add instrument • x: remove instrument"))
	b.WriteString("\n" + helpStyle.Render("space: play/pause • s: stop • t: jump to cursor • +/-: tempo • L: loop • r/R c/C: grid rows/cols • e: export • q: back"))

	return b.String()
}

// renderGrid draws the instrument grid. Cells with a clip playing light up
// in their instrument's color.
func (m Model) renderGrid(p sequencer.ProjectState, active map[string]bool) string {
	byCell := lo.KeyBy(p.Instruments, func(i sequencer.Instrument) int { return i.GridPosition })
	selected, _ := instrumentAt(p, m.editor.cursorInst)

	var b strings.Builder
	for r := 0; r < p.GridSize.Rows; r++ {
		for c := 0; c < p.GridSize.Cols; c++ {
			style := lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center)
			inst, ok := byCell[r*p.GridSize.Cols+c]
			if !ok {
				b.WriteString(style.Inherit(dimStyle).Render("·"))
				continue
			}
			color := lipgloss.Color(inst.Color)
			if active[inst.ID] {
				style = style.Background(color).Foreground(lipgloss.Color("#000000")).Bold(true)
			} else {
				style = style.Foreground(color)
			}
			if inst.ID == selected.ID {
				style = style.Underline(true)
			}
			b.WriteString(style.Render(truncate(inst.Name, cellWidth-2)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// timelineWindow returns the first beat and span of the visible timeline.
func (m Model) timelineWindow(total int) (int, int) {
	span := defaultTimeline
	if m.width > labelWidth+beatsPerBar {
		span = m.width - labelWidth - 1
	}
	span = max(min(span, total), 1)
	start := (m.editor.cursorBeat / span) * span
	return start, min(span, total-start)
}

func (m Model) renderTimeline(p sequencer.ProjectState) string {
	total := int(math.Ceil(p.TotalBeats))
	start, span := m.timelineWindow(total)
	head := int(p.CurrentTime)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-*s", labelWidth, "Beat"))
	for i := start; i < start+span; i++ {
		switch {
		case i == head:
			b.WriteString(projectStyle.Render("▼"))
		case i%beatsPerBar == 0:
			b.WriteString("|")
		default:
			b.WriteString(dimStyle.Render("."))
		}
	}
	b.WriteString("\n")

	if len(p.Instruments) == 0 {
		b.WriteString(dimStyle.Render("No instruments. Press a to add one.") + "\n")
		return b.String()
	}

	for idx, inst := range p.Instruments {
		label := fmt.Sprintf("%-*s", labelWidth, truncate(inst.Name, labelWidth-1))
		if idx == m.editor.cursorInst {
			label = selectedStyle.Render(label)
		}
		b.WriteString(label)

		clips := lo.Filter(p.Clips, func(c sequencer.Clip, _ int) bool { return c.InstrumentID == inst.ID })
		for beat := start; beat < start+span; beat++ {
			covered := lo.ContainsBy(clips, func(c sequencer.Clip) bool {
				return c.StartTime < float64(beat+1) && c.End() > float64(beat)
			})
			cell := "·"
			style := dimStyle
			if covered {
				cell = "█"
				style = lipgloss.NewStyle().Foreground(lipgloss.Color(inst.Color))
			}
			if idx == m.editor.cursorInst && beat == m.editor.cursorBeat {
				style = style.Background(lipgloss.Color("#7D56F4"))
			}
			b.WriteString(style.Render(cell))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
