package cmd

import (
	"fmt"
	"log/slog"

	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/icco/videoseq/internal/midisync"
	"github.com/icco/videoseq/internal/sequencer"
)

// openVirtualSink creates a virtual MIDI output named name. Other music
// software sees it as an input and receives one note per playing clip.
func openVirtualSink(name string, lookup func(string) (sequencer.Instrument, bool), logger *slog.Logger) (*midisync.PortSink, func(), error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize MIDI driver: %w", err)
	}

	out, err := driver.OpenVirtualOut(name)
	if err != nil {
		driver.Close()
		return nil, nil, fmt.Errorf("failed to create virtual MIDI port: %w", err)
	}

	sink, err := midisync.OpenOut(out, lookup)
	if err != nil {
		driver.Close()
		return nil, nil, err
	}
	logger.Info("virtual midi output created", "name", name)

	return sink, func() {
		_ = sink.Close()
		driver.Close()
	}, nil
}
