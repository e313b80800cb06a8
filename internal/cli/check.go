package cli

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/matzehuels/adjoint/pkg/codegen"
	"github.com/matzehuels/adjoint/pkg/fuzz"
)

// checkOpts holds the command-line flags for the check command.
type checkOpts struct {
	seed   int64
	trials int
	tol    float64
	step   float64
	inputs string
	gen    fuzz.Options
}

// maxCheckMagnitude skips points where finite differences lose too many
// digits to serve as a reference.
const maxCheckMagnitude = 1e4

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	var opts checkOpts

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Compare analytic gradients with finite differences",
		Long: `Compare reverse-mode gradients with central finite differences.

With a file, the graph is checked at --inputs (or its sample values). Without
one, --trials random graphs built only from differentiable operators are
checked. The command fails when the worst relative error exceeds --tol.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				opts.seed = c.Config.Fuzz.Seed
			}
			if !cmd.Flags().Changed("inputs-count") {
				opts.gen.Inputs = c.Config.Fuzz.Inputs
			}
			if !cmd.Flags().Changed("ops") {
				opts.gen.Ops = c.Config.Fuzz.Ops
			}
			if len(args) == 1 {
				return c.runCheckFile(cmd, args[0], opts)
			}
			return c.runCheckRandom(cmd, opts)
		},
	}

	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "base random seed")
	cmd.Flags().IntVarP(&opts.trials, "trials", "n", 50, "random graphs to check")
	cmd.Flags().Float64Var(&opts.tol, "tol", 1e-4, "maximum relative error")
	cmd.Flags().Float64Var(&opts.step, "step", fuzz.DefaultStep, "finite-difference step")
	cmd.Flags().StringVarP(&opts.inputs, "inputs", "i", "", "input values when checking a file (comma-separated)")
	cmd.Flags().IntVar(&opts.gen.Inputs, "inputs-count", 0, "inputs per random graph")
	cmd.Flags().IntVar(&opts.gen.Ops, "ops", 0, "operations per random graph")

	return cmd
}

func (c *CLI) runCheckFile(cmd *cobra.Command, path string, opts checkOpts) error {
	ctx := cmd.Context()
	var inputs []float64
	if opts.inputs != "" {
		v, err := parseInputs(opts.inputs)
		if err != nil {
			return err
		}
		inputs = v
	}

	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return err
	}
	defer runner.Close()

	g, err := runner.Load(ctx, path)
	if err != nil {
		return err
	}
	ev := runner.Compile(ctx, g)
	if inputs == nil {
		inputs = make([]float64, ev.NumInputs())
		for _, id := range g.X.Inputs() {
			n := g.X.Node(id)
			inputs[n.Index] = n.Value
		}
	}

	worst := fuzz.CheckGradient(ev, inputs, opts.step)
	return reportCheck(cmd, worst, opts.tol, 1)
}

func (c *CLI) runCheckRandom(cmd *cobra.Command, opts checkOpts) error {
	logger := loggerFromContext(cmd.Context())
	if opts.trials <= 0 {
		return fmt.Errorf("--trials must be positive")
	}
	opts.gen.Smooth = true

	worst, checked := 0.0, 0
	for k := range opts.trials {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		p := fuzz.Generate(rand.New(rand.NewSource(opts.seed+int64(k))), opts.gen)
		ev := codegen.Compile(p.Extract())
		if v := ev.Eval(p.Inputs).Primary; math.IsNaN(v) || math.Abs(v) > maxCheckMagnitude {
			logger.Debug("skipping trial", "trial", k, "primary", v)
			continue
		}
		e := fuzz.CheckGradient(ev, p.Inputs, opts.step)
		if e > opts.tol {
			logger.Warn("gradient mismatch", "trial", k, "seed", opts.seed+int64(k), "error", e)
		}
		worst = max(worst, e)
		checked++
	}
	if skipped := opts.trials - checked; skipped > 0 {
		printWarning(cmd.OutOrStdout(), "%d of %d graphs skipped (non-finite or large primary)", skipped, opts.trials)
	}
	return reportCheck(cmd, worst, opts.tol, checked)
}

func reportCheck(cmd *cobra.Command, worst, tol float64, checked int) error {
	out := cmd.OutOrStdout()
	if worst > tol {
		printError(out, "worst relative error %s exceeds %s", fmtFloat(worst), fmtFloat(tol))
		return fmt.Errorf("gradient check failed")
	}
	printSuccess(out, "%d graphs checked", checked)
	printDetail(out, "worst relative error %s", fmtFloat(worst))
	return nil
}
