package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/adjoint/pkg/pipeline"
	"github.com/matzehuels/adjoint/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string  // output file path; "-" writes to stdout
	format   string  // dot, svg, pdf or png
	detailed bool    // show IDs and, with inputs, forward values
	inputs   string  // comma-separated input vector for detailed labels
	scale    float64 // PNG scale factor
	noCache  bool
}

// renderCommand creates the render command for drawing node-link diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a graph as a node-link diagram",
		Example: `  adjoint render graph.json
  adjoint render graph.json -f png --scale 3 -o graph@3x.png
  adjoint render graph.json --detailed --inputs 1,2 -f dot -o -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") && c.Config.Render.Format != "" {
				opts.format = c.Config.Render.Format
			}
			if !cmd.Flags().Changed("detailed") {
				opts.detailed = opts.detailed || c.Config.Render.Detailed
			}
			if opts.format == "" {
				opts.format = formatFromPath(opts.output)
			}
			f, err := render.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			opts.format = f
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: input name with the format's extension, - for stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: svg (default), dot, pdf, png")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label nodes with IDs and forward values")
	cmd.Flags().StringVarP(&opts.inputs, "inputs", "i", "", "input values for detailed labels (comma-separated)")
	cmd.Flags().Float64Var(&opts.scale, "scale", pipeline.DefaultScale, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input string, opts renderOpts) error {
	ctx := cmd.Context()

	ropts := pipeline.RenderOptions{Format: opts.format, Detailed: opts.detailed, Scale: opts.scale}
	if opts.inputs != "" {
		v, err := parseInputs(opts.inputs)
		if err != nil {
			return err
		}
		ropts.Inputs = v
	} else if opts.detailed {
		ropts.Inputs = []float64{}
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	g, err := runner.Load(ctx, input)
	if err != nil {
		return err
	}

	var spin *Spinner
	if opts.format != render.FormatDOT && opts.output != "-" {
		spin = newSpinnerWithContext(ctx, cmd.ErrOrStderr(), "Rendering "+opts.format)
		spin.Start()
	}
	data, cached, err := runner.RenderWithCacheInfo(ctx, g, ropts)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}

	if opts.output == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	path := opts.output
	if path == "" {
		path = strings.TrimSuffix(input, filepath.Ext(input)) + "." + opts.format
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Rendered %s", opts.format)
	printFile(out, path)
	printCacheStatus(out, cached)
	return nil
}

// formatFromPath guesses the format from an output file extension.
func formatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, f := range render.Formats {
		if ext == f {
			return f
		}
	}
	return pipeline.DefaultFormat
}
