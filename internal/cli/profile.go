package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/geom"
	"github.com/forevershiningA/memorial/pkg/silhouette"
)

// sparkWidth is the number of glyphs in the printed edge preview.
const sparkWidth = 60

// profileCommand creates the profile command, which exports the headstone's
// top-edge silhouette.
func (c *CLI) profileCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "profile <design.json|id>",
		Short: "Export a design's top-edge silhouette profile",
		Long: `Profile rasterizes the sanitized headstone scene at frame size and records
the first shape row of every column. With --output the profile is written
as JSON; otherwise a summary and an edge preview are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.render(cmd.Context(), args[0], opts.pipelineOptions())
			if err != nil {
				return err
			}
			if res.Profile == nil {
				return errors.New(errors.ErrCodeAssetUnavailable, "design %s has no shape to profile", res.DesignID)
			}
			if opts.output != "" {
				data, err := json.Marshal(res.Profile)
				if err != nil {
					return err
				}
				if err := writeOutput(opts.output, data); err != nil {
					return fmt.Errorf("write profile: %w", err)
				}
				printSuccess("Wrote profile for %s", res.DesignID)
				printFile(opts.output)
				return nil
			}
			printProfile(res.Profile)
			return nil
		},
	}

	opts.addFlags(cmd)

	return cmd
}

func printProfile(p *silhouette.Profile) {
	peak, col := float64(p.Height), 0
	for x, y := range p.TopY {
		if y < peak {
			peak, col = y, x
		}
	}
	printKeyValue("Columns", StyleNumber.Render(fmt.Sprint(p.Width)))
	printKeyValue("Rows", StyleNumber.Render(fmt.Sprint(p.Height)))
	printKeyValue("Peak", fmt.Sprintf("row %s at column %d", geom.FormatNumber(peak), col))
	if !p.Valid() {
		printWarning("Profile is empty")
		return
	}
	printNewline()
	fmt.Println("  " + StyleHighlight.Render(sparkline(p, sparkWidth)))
}

// sparkline draws the top edge with block glyphs; taller glyphs are higher
// stone.
func sparkline(p *silhouette.Profile, width int) string {
	glyphs := []rune("▁▂▃▄▅▆▇█")
	if width <= 0 || p.Width == 0 || p.Height == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		col := int((float64(i) + 0.5) * float64(p.Width) / float64(width))
		h := 1 - p.Sample(float64(col))/float64(p.Height)
		level := int(h * float64(len(glyphs)))
		switch {
		case level < 0:
			level = 0
		case level >= len(glyphs):
			level = len(glyphs) - 1
		}
		b.WriteRune(glyphs[level])
	}
	return b.String()
}
