package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/icco/videoseq/internal/project"
	"github.com/icco/videoseq/internal/tempo"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <project>",
	Short: "Print the contents of a saved project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}
		writeInspect(cmd.OutOrStdout(), doc)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

// readDocument loads a JSON or YAML project file.
func readDocument(path string) (project.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return project.Document{}, fmt.Errorf("error reading project: %w", err)
	}
	doc, err := project.Decode(data)
	if err != nil {
		return project.Document{}, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return doc, nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func writeInspect(w io.Writer, doc project.Document) {
	summary := newTable(w)
	summary.AppendRows([]table.Row{
		{"Version", doc.Version},
		{"BPM", doc.BPM},
		{"Length", fmt.Sprintf("%g beats (%.2fs)", doc.TotalBeats, tempo.BeatsToSeconds(doc.TotalBeats, doc.BPM))},
		{"Grid", fmt.Sprintf("%dx%d", doc.GridSize.Rows, doc.GridSize.Cols)},
	})
	summary.Render()

	names := lo.SliceToMap(doc.Instruments, func(i project.Instrument) (string, string) {
		return i.ID, i.Name
	})

	inst := newTable(w)
	inst.AppendHeader(table.Row{"Cell", "Name", "Color", "Clips", "ID"})
	for _, i := range doc.Instruments {
		clips := lo.CountBy(doc.Clips, func(c project.Clip) bool { return c.InstrumentID == i.ID })
		inst.AppendRow(table.Row{i.GridPosition, i.Name, i.Color, clips, text.FgHiBlack.Sprint(i.ID)})
	}
	inst.SortBy([]table.SortBy{{Name: "Cell", Mode: table.AscNumeric}})
	inst.Render()

	clips := newTable(w)
	clips.AppendHeader(table.Row{"Start", "End", "Track", "Instrument", "ID"})
	for _, c := range doc.Clips {
		name, ok := names[c.InstrumentID]
		if !ok {
			name = text.FgHiRed.Sprint("missing " + c.InstrumentID)
		}
		clips.AppendRow(table.Row{c.StartTime, c.StartTime + c.Duration, c.TrackIndex, name, text.FgHiBlack.Sprint(c.ID)})
	}
	clips.SortBy([]table.SortBy{{Name: "Start", Mode: table.AscNumeric}, {Name: "Track", Mode: table.AscNumeric}})
	clips.Render()
}
