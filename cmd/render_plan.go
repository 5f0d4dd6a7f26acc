package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/icco/videoseq/internal/project"
	"github.com/icco/videoseq/internal/render"
	"github.com/icco/videoseq/internal/sequencer"
)

var (
	planWidth  int
	planHeight int
	planJSON   bool
)

var renderPlanCmd = &cobra.Command{
	Use:   "render-plan <project>",
	Short: "Show where and when each clip appears in a rendered video",
	Long: `Show where and when each clip appears in a rendered video.

The project is imported against the clip library first, so only clips whose
instrument matches a media file are placed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}

		logger := newLogger(os.Stderr, "render")
		seq := sequencer.New(sequencer.Options{Logger: logger})
		im := project.Importer{Lister: clipLister(), Logger: logger}
		if err := im.ImportDocument(cmd.Context(), seq, doc); err != nil {
			return err
		}

		plan := render.NewPlan(seq.Project(), planWidth, planHeight)
		if planJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}
		writePlan(cmd.OutOrStdout(), plan)
		return nil
	},
}

func init() {
	renderPlanCmd.Flags().IntVar(&planWidth, "width", render.DefaultWidth, "canvas width in pixels")
	renderPlanCmd.Flags().IntVar(&planHeight, "height", render.DefaultHeight, "canvas height in pixels")
	renderPlanCmd.Flags().BoolVar(&planJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(renderPlanCmd)
}

func writePlan(w io.Writer, plan render.Plan) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%dx%d, %.2fs", plan.Width, plan.Height, plan.Duration))
	t.AppendHeader(table.Row{"Start", "Duration", "Instrument", "Cell", "Track", "Source"})
	for _, p := range plan.Placements {
		t.AppendRow(table.Row{
			fmt.Sprintf("%.3f", p.Start),
			fmt.Sprintf("%.3f", p.Duration),
			p.Instrument,
			fmt.Sprintf("%dx%d+%d+%d", p.Cell.W, p.Cell.H, p.Cell.X, p.Cell.Y),
			p.Track,
			p.Source,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Skipped", plan.Skipped})
	t.Render()
}
