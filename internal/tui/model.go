// Package tui is the terminal front end: a project browser and a sequencer
// editor built on bubbletea.
package tui

import (
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/icco/videoseq/internal/project"
	"github.com/icco/videoseq/internal/sequencer"
	"github.com/icco/videoseq/internal/transport"
)

type viewMode int

const (
	browserMode viewMode = iota
	sequencerMode
	pickerMode
)

const (
	keyUp    = "up"
	keyDown  = "down"
	keyLeft  = "left"
	keyRight = "right"
)

// frameInterval is how often the transport advances while playing.
const frameInterval = 40 * time.Millisecond

type tickMsg time.Time

type changeMsg sequencer.Change

// Beeper sounds the beats the transport crosses.
type Beeper interface {
	Beat(beat int)
}

// ClipSink follows clips entering and leaving playback.
type ClipSink interface {
	ClipStart(c sequencer.Clip)
	ClipStop(c sequencer.Clip)
}

type Options struct {
	Sequencer *sequencer.Sequencer
	Importer  project.Importer
	// Clips lists the media offered when adding an instrument.
	Clips project.ClipLister
	// ClipsDir, when set, makes new instruments carry a file handle so the
	// resource registry mints their locator. Otherwise they point at the
	// clip server path.
	ClipsDir   string
	Downloader project.Downloader
	StartDir   string
	Metronome  Beeper
	Sink       ClipSink
	Logger     *slog.Logger
	Now        func() time.Time
}

type Model struct {
	opts    Options
	seq     *sequencer.Sequencer
	driver  *transport.Driver
	logger  *slog.Logger
	changes <-chan sequencer.Change
	cancel  func()

	mode    viewMode
	browser fileBrowserModel
	editor  editorModel
	picker  pickerModel

	ticking  bool
	lastTick time.Time
	width    int
	height   int
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	dirStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAFF")).
			Bold(true)

	projectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444"))
)

// New builds the model and subscribes it to opts.Sequencer. Call Close when
// the program exits.
func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StartDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			opts.StartDir = home
		} else {
			opts.StartDir = "."
		}
	}

	driver := transport.New(opts.Sequencer, opts.Logger)
	if opts.Metronome != nil {
		driver.OnBeat = opts.Metronome.Beat
	}
	if opts.Sink != nil {
		driver.OnClipStart = opts.Sink.ClipStart
		driver.OnClipStop = opts.Sink.ClipStop
	}

	changes, cancel := opts.Sequencer.Subscribe()
	m := Model{
		opts:    opts,
		seq:     opts.Sequencer,
		driver:  driver,
		logger:  opts.Logger.With("component", "tui"),
		changes: changes,
		cancel:  cancel,
		mode:    browserMode,
		browser: fileBrowserModel{currentDir: opts.StartDir},
	}
	m.browser.loadFiles()
	return m
}

// Close drops the sequencer subscription.
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m Model) waitForChange() tea.Cmd {
	ch := m.changes
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return changeMsg(c)
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// startTicking begins the frame loop unless it is already running.
func (m *Model) startTicking() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	m.lastTick = m.opts.Now()
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case changeMsg:
		return m, m.waitForChange()

	case tickMsg:
		now := time.Time(msg)
		m.driver.Advance(now.Sub(m.lastTick))
		m.lastTick = now
		if m.seq.Project().IsPlaying {
			return m, m.tick()
		}
		m.ticking = false
		return m, nil

	case clipsMsg:
		m.picker.load(msg)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.seq.Pause()
			m.driver.Advance(0)
			return m, tea.Quit
		case "q":
			switch m.mode {
			case browserMode:
				return m, tea.Quit
			case sequencerMode:
				m.seq.Stop()
				m.driver.Advance(0)
				m.mode = browserMode
				m.browser.loadFiles()
				return m, nil
			}
		}

		switch m.mode {
		case browserMode:
			return m.updateFileBrowser(msg)
		case sequencerMode:
			return m.updateSequencer(msg)
		case pickerMode:
			return m.updatePicker(msg)
		}
	}

	return m, nil
}

func (m Model) View() string {
	switch m.mode {
	case browserMode:
		return m.viewFileBrowser()
	case sequencerMode:
		return m.viewSequencer()
	case pickerMode:
		return m.viewPicker()
	default:
		return "Unknown mode"
	}
}
