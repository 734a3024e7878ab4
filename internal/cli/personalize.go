package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/geom"
	"github.com/forevershiningA/memorial/pkg/personalize"
	"github.com/forevershiningA/memorial/pkg/pipeline"
)

// personalizeOpts holds the flags of the personalize command.
type personalizeOpts struct {
	output string
	crop   string
	format string
	color  string
	spec   personalize.CropSpec
}

// personalizeCommand creates the personalize command, which turns a photo
// into a cropped, masked product image.
func (c *CLI) personalizeCommand() *cobra.Command {
	var opts personalizeOpts

	cmd := &cobra.Command{
		Use:   "personalize <photo>",
		Short: "Crop, mask and encode a photo for a product",
		Long: `Personalize crops, rotates, flips and scales a photo, applies an optional
color treatment and shape mask, and encodes the result. When --product is
set the physical size of the chosen variant is reported.

Crop values are percentages of the source image: --crop x,y,width,height.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.parse(); err != nil {
				return err
			}
			return c.runPersonalize(cmd.Context(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file (default: <photo>-personalized.<format>)")
	f.StringVar(&opts.crop, "crop", "", "crop rectangle in percent: x,y,width,height")
	f.Float64Var(&opts.spec.Rotation, "rotate", 0, "clockwise rotation in degrees")
	f.BoolVar(&opts.spec.FlipX, "flip-x", false, "mirror horizontally")
	f.BoolVar(&opts.spec.FlipY, "flip-y", false, "mirror vertically")
	f.Float64Var(&opts.spec.Scale, "scale", 100, "scale in percent")
	f.StringVar(&opts.color, "color", string(personalize.FullColor), "color treatment: color, bw, sepia")
	f.StringVar(&opts.spec.Mask, "mask", "", "mask shape name (see catalog)")
	f.StringVar(&opts.format, "format", string(personalize.PNG), "output format: png, webp")
	f.StringVar(&opts.spec.Product, "product", "", "product type for physical sizing")
	f.IntVar(&opts.spec.Variant, "variant", 0, "product size variant index")

	return cmd
}

func (o *personalizeOpts) parse() error {
	color, err := personalize.ParseColorMode(o.color)
	if err != nil {
		return err
	}
	format, err := personalize.ParseFormat(o.format)
	if err != nil {
		return err
	}
	o.spec.Color, o.spec.Format = color, format
	if o.crop == "" {
		return nil
	}
	r, err := parseCrop(o.crop)
	if err != nil {
		return err
	}
	o.spec.X, o.spec.Y, o.spec.Width, o.spec.Height = r.X, r.Y, r.W, r.H
	return nil
}

// parseCrop parses "x,y,width,height".
func parseCrop(s string) (geom.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geom.Rect{}, errors.New(errors.ErrCodeInvalidCrop, "crop must be x,y,width,height: %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Rect{}, errors.Wrap(errors.ErrCodeInvalidCrop, err, "crop value %q", p)
		}
		v[i] = f
	}
	return geom.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

func (c *CLI) runPersonalize(ctx context.Context, photo string, opts personalizeOpts) error {
	name := filepath.Base(photo)
	spinner := newSpinnerWithContext(ctx, "Reading "+name+"...")
	spinner.Start()

	data, err := os.ReadFile(photo)
	if err != nil {
		spinner.Stop()
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "read photo %s", photo)
	}
	runner, err := c.newRunner()
	if err != nil {
		spinner.Stop()
		return err
	}
	defer runner.Close()

	spinner.Update(personalizeStatus(name, opts.spec))
	prog := newProgress(loggerFromContext(ctx))
	asset, err := runner.Personalize(ctx, pipeline.PersonalizeRequest{Image: data, Spec: opts.spec})
	if err != nil {
		spinner.StopWithError("Personalization failed")
		return err
	}
	spinner.Stop()
	prog.done("Personalized", "photo", name, "masked", asset.Masked, "format", asset.Format)

	out := opts.output
	if out == "" {
		stem := strings.TrimSuffix(photo, filepath.Ext(photo))
		out = stem + "-personalized." + string(asset.Format)
	}
	if err := writeOutput(out, asset.Data); err != nil {
		return fmt.Errorf("write asset: %w", err)
	}

	printSuccess("Personalized %s", filepath.Base(photo))
	printFile(out)
	printKeyValue("Pixels", fmt.Sprintf("%d×%d", asset.Width, asset.Height))
	if asset.WidthMM > 0 {
		printKeyValue("Physical", fmt.Sprintf("%s×%s mm", geom.FormatNumber(asset.WidthMM), geom.FormatNumber(asset.HeightMM)))
	}
	if opts.spec.Mask != "" && !asset.Masked {
		printWarning("Mask %q unavailable, image left unmasked", opts.spec.Mask)
	}
	return nil
}

// personalizeStatus describes the compositing step for the spinner.
func personalizeStatus(name string, spec personalize.CropSpec) string {
	msg := "Compositing " + name
	if spec.Mask != "" {
		msg += " into " + spec.Mask + " mask"
	}
	return msg + "..."
}
