package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/pipeline"
)

// renderOpts holds the flags shared by the commands that run the pipeline.
type renderOpts struct {
	output    string  // output file; stdout when empty
	viewport  float64 // display viewport width in pixels
	finish    string  // "textured", "flat", or empty for the design's own
	sanitized bool    // write the effect-free scene used for profiling
	inline    bool    // embed assets as data URIs
}

func (o *renderOpts) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().Float64Var(&o.viewport, "viewport", pipeline.DefaultViewportWidth, "display viewport width in pixels")
	cmd.Flags().StringVar(&o.finish, "finish", "", "override the design's finish: textured, flat")
}

func (o *renderOpts) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		ViewportWidth: o.viewport,
		Finish:        o.finish,
		InlineAssets:  o.inline,
	}
}

// renderCommand creates the render command, which writes the scene SVG.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <design.json|id>",
		Short: "Render a design's headstone scene to SVG",
		Long: `Render composes the headstone scene of a saved design: the shape filled
with its texture, the base slab, and the viewBox fitted to the display frame.

The argument is a design file or an ID in the --designs directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.sanitized, "sanitized", false, "write the sanitized scene used for profiling")
	cmd.Flags().BoolVar(&opts.inline, "inline", false, "embed textures as data URIs")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, arg string, opts renderOpts) error {
	po := opts.pipelineOptions()
	po.SkipProfile = true
	res, err := c.render(ctx, arg, po)
	if err != nil {
		return err
	}

	svg := res.Scene.SVG
	if opts.sanitized {
		svg = res.Scene.Sanitized
	}
	if err := writeOutput(opts.output, svg); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	if opts.output != "" {
		printSuccess("Rendered %s", res.DesignID)
		printFile(opts.output)
		printStats(res.Stats)
		if res.Scene.Fallback != "" {
			printWarning("Fallback scene: %s", res.Scene.Fallback)
		}
	}
	return nil
}

// render loads the design named by arg and runs it through the pipeline.
func (c *CLI) render(ctx context.Context, arg string, opts pipeline.Options) (*pipeline.Result, error) {
	entry, err := c.loadDesign(ctx, arg)
	if err != nil {
		return nil, err
	}
	if opts.DesignID == "" {
		opts.DesignID = entry.ID
	}
	if errors.ValidateDesignID(opts.DesignID) != nil {
		opts.DesignID = "design"
	}

	runner, err := c.newRunner()
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	prog := newProgress(designLogger(ctx, opts.DesignID))
	res, err := runner.Render(ctx, entry.Record, entry.Screenshot, opts)
	if err != nil {
		return nil, err
	}
	prog.done("Rendered",
		"elements", res.Stats.Elements,
		"snapped", res.Stats.Snapped,
		"shaped", res.Stats.Shaped)
	return res, nil
}
