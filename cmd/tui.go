package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/icco/videoseq/internal/audio"
	"github.com/icco/videoseq/internal/midisync"
	"github.com/icco/videoseq/internal/project"
	"github.com/icco/videoseq/internal/resource"
	"github.com/icco/videoseq/internal/sequencer"
	"github.com/icco/videoseq/internal/tui"
)

var (
	tuiDir       string
	tuiMIDIPort  string
	tuiVirtual   string
	tuiMetronome bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive sequencer",
	Long: `Start the sequencer with an interactive TUI interface.

Pick a saved project or start a new one, add instruments from the clip
library and arrange clips on the timeline. Playback can click a metronome
and play clips as notes on a MIDI output.

Example:
  videoseq tui --dir ~/shows --midi-port "IAC Driver Bus 1"
`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiDir, "dir", "d", "", "directory to browse for projects (default from config)")
	tuiCmd.Flags().StringVar(&tuiMIDIPort, "midi-port", "", "MIDI output that plays clips as notes")
	tuiCmd.Flags().StringVar(&tuiVirtual, "virtual", "", "create a virtual MIDI output with this name instead of opening a port")
	tuiCmd.Flags().BoolVar(&tuiMetronome, "metronome", false, "click on every beat")
	rootCmd.AddCommand(tuiCmd)
}

// clipLister lists from the configured clip server, or straight from the
// clips directory when no server is set.
func clipLister() project.ClipLister {
	if cfg.ServerURL != "" {
		return resource.NewHTTPLister(cfg.ServerURL)
	}
	return resource.DirLister{Dir: cfg.ClipsDir}
}

func runTUI(cmd *cobra.Command, args []string) error {
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	defer logFile.Close()
	logger := newLogger(logFile, "videoseq")

	registry := resource.NewRegistry(logger)
	seq := sequencer.New(sequencer.Options{Resources: registry, Logger: logger})
	lookup := func(id string) (sequencer.Instrument, bool) {
		return seq.Project().Instrument(id)
	}

	lister := clipLister()
	opts := tui.Options{
		Sequencer:  seq,
		Importer:   project.Importer{Lister: lister, Logger: logger},
		Clips:      lister,
		Downloader: &resource.FileDownloader{Dir: cfg.ExportDir},
		StartDir:   cfg.ProjectsDir,
		Logger:     logger,
	}
	if cmd.Flags().Changed("dir") {
		opts.StartDir = tuiDir
	}
	if cfg.ServerURL == "" {
		opts.ClipsDir, err = filepath.Abs(cfg.ClipsDir)
		if err != nil {
			return fmt.Errorf("error resolving clips directory: %w", err)
		}
	}

	if tuiMetronome || cfg.Metronome {
		metronome, err := audio.NewMetronome(4)
		if err != nil {
			return fmt.Errorf("failed to initialize audio: %w", err)
		}
		defer metronome.Close()
		opts.Metronome = metronome
	}

	port := cfg.MIDIPort
	if cmd.Flags().Changed("midi-port") {
		port = tuiMIDIPort
	}
	sink, closeSink, err := openSink(port, tuiVirtual, lookup, logger)
	if err != nil {
		return err
	}
	defer closeSink()
	if sink != nil {
		opts.Sink = sink
	}

	m := tui.New(opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	logger.Info("session ended", "outstanding_locators", registry.Outstanding())
	return nil
}

// openSink opens the MIDI output playback should follow, if any. The
// returned func closes it.
func openSink(port, virtual string, lookup func(string) (sequencer.Instrument, bool), logger *slog.Logger) (*midisync.PortSink, func(), error) {
	switch {
	case virtual != "":
		return openVirtualSink(virtual, lookup, logger)
	case port != "":
		sink, err := midisync.OpenPort(port, lookup)
		if err != nil {
			return nil, nil, fmt.Errorf("%w (available: %v)", err, midisync.OutPorts())
		}
		logger.Info("midi output connected", "port", port)
		return sink, func() { _ = sink.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}
