package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/forevershiningA/memorial/pkg/design"
	"github.com/forevershiningA/memorial/pkg/geom"
	"github.com/forevershiningA/memorial/pkg/pipeline"
	"github.com/forevershiningA/memorial/pkg/placement"
)

// layoutCommand creates the layout command, which prints element placements.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		opts      renderOpts
		asJSON    bool
		noProfile bool
	)

	cmd := &cobra.Command{
		Use:   "layout <design.json|id>",
		Short: "Place a design's inscriptions and motifs",
		Long: `Layout resolves a design's coordinate mode, fits it to the display frame and
positions every inscription and motif, snapping elements near the top edge
to the headstone silhouette.

Placements print as a table, or as JSON with --json or a .json --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			po := opts.pipelineOptions()
			po.SkipProfile = noProfile
			res, err := c.render(cmd.Context(), args[0], po)
			if err != nil {
				return err
			}
			if asJSON || strings.HasSuffix(opts.output, ".json") {
				return writeLayoutJSON(opts.output, res)
			}
			printLayout(res)
			return nil
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&noProfile, "no-profile", false, "skip silhouette snapping")

	return cmd
}

func writeLayoutJSON(path string, res *pipeline.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if err := writeOutput(path, append(data, '\n')); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}
	if path != "" && path != "-" {
		printSuccess("Wrote layout for %s", res.DesignID)
		printFile(path)
	}
	return nil
}

func printLayout(res *pipeline.Result) {
	printKeyValue("Design", res.DesignID)
	printKeyValue("Mode", res.ModeName)
	printKeyValue("Frame", formatSize(res.Framing.Frame))
	printKeyValue("Scale", geom.FormatNumber(res.Framing.Scale))
	printNewline()

	fmt.Println(placementTable(res.Placements).Render())
	printStats(res.Stats)
}

func placementTable(ps []placement.Placement) *table.Table {
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		name := p.Label
		if p.Kind == design.KindMotif {
			name = p.Asset
		}
		size := geom.FormatNumber(p.Height)
		if p.Width > 0 {
			size = geom.FormatNumber(p.Width) + "×" + size
		}
		snap := ""
		if p.Snapped {
			snap = "✓"
		}
		rows = append(rows, []string{
			fmt.Sprint(p.Index),
			string(p.Kind),
			truncate(name, 28),
			geom.FormatNumber(p.Left) + ", " + geom.FormatNumber(p.Top),
			size,
			snap,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Kind", "Content", "Position", "Size", "Snap").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 5 {
				return lipgloss.NewStyle().Foreground(colorGreen)
			}
			if col == 0 || col == 1 {
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return lipgloss.NewStyle()
		})
}

func formatSize(s geom.Size) string {
	return geom.FormatNumber(s.W) + "×" + geom.FormatNumber(s.H)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// runLayout prints placements for a design; used by browse.
func (c *CLI) runLayout(ctx context.Context, arg string) error {
	res, err := c.render(ctx, arg, pipeline.Options{})
	if err != nil {
		return err
	}
	printLayout(res)
	return nil
}
