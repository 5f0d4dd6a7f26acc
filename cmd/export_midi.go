package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/icco/videoseq/internal/midisync"
)

var exportMIDICmd = &cobra.Command{
	Use:   "export-midi <project> <out.mid>",
	Short: "Write a project timeline as a Standard MIDI File",
	Long: `Write a project timeline as a Standard MIDI File.

Each instrument becomes a track and each clip a note: the grid cell picks the
note, starting at C2 for the first cell.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}

		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("error creating %s: %w", args[1], err)
		}
		if err := midisync.WriteSMF(doc, f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("error writing %s: %w", args[1], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d tracks to %s\n", len(doc.Instruments)+1, args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportMIDICmd)
}
