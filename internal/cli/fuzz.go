package cli

import (
	"fmt"
	"io/fs"
	"math/rand"
	"path/filepath"
	"slices"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/adjoint/pkg/codegen"
	"github.com/matzehuels/adjoint/pkg/fuzz"
	pkgio "github.com/matzehuels/adjoint/pkg/io"
)

// fuzzOpts holds the command-line flags for the fuzz command.
type fuzzOpts struct {
	count   int
	seed    int64
	gen     fuzz.Options
	out     string
	workers int
}

// fuzzCommand creates the fuzz command for writing random fixtures.
func (c *CLI) fuzzCommand() *cobra.Command {
	var opts fuzzOpts

	cmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Generate random graphs with their expected outputs",
		Long: `Generate random expression graphs and write each one as a fixture directory
holding graph.json and outputs.json. Fixtures let another engine check that it
evaluates and differentiates the same graphs identically.

Every run gets its own directory under --out named by a fresh run ID.
Fixture k of a run is generated from seed+k, so runs are reproducible.`,
		Example: `  adjoint fuzz --count 100 --seed 7 --out fixtures
  adjoint fuzz verify fixtures/5d0c…`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyFuzzConfig(cmd, &opts)
			return c.runFuzz(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "number of fixtures (default from config, 10)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "base random seed (default from config, 1)")
	cmd.Flags().IntVar(&opts.gen.Inputs, "inputs", 0, "inputs per graph")
	cmd.Flags().IntVar(&opts.gen.Ops, "ops", 0, "operations per graph")
	cmd.Flags().IntVar(&opts.gen.Secondary, "secondary", 0, "secondary outputs per graph")
	cmd.Flags().BoolVar(&opts.gen.Smooth, "smooth", false, "use only differentiable operators")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "fixtures", "output directory")
	cmd.Flags().IntVar(&opts.workers, "workers", 8, "concurrent fixture writers")

	cmd.AddCommand(c.fuzzVerifyCommand())
	return cmd
}

// applyFuzzConfig fills flags left at their zero value from the config file.
func (c *CLI) applyFuzzConfig(cmd *cobra.Command, opts *fuzzOpts) {
	cfg := c.Config.Fuzz
	if !cmd.Flags().Changed("count") {
		opts.count = cfg.Count
	}
	if !cmd.Flags().Changed("seed") {
		opts.seed = cfg.Seed
	}
	if !cmd.Flags().Changed("inputs") {
		opts.gen.Inputs = cfg.Inputs
	}
	if !cmd.Flags().Changed("ops") {
		opts.gen.Ops = cfg.Ops
	}
	if !cmd.Flags().Changed("secondary") {
		opts.gen.Secondary = cfg.Secondary
	}
}

func (c *CLI) runFuzz(cmd *cobra.Command, opts fuzzOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	if opts.count <= 0 {
		return fmt.Errorf("--count must be positive")
	}

	runID := uuid.New().String()
	runDir := filepath.Join(opts.out, runID)
	logger.Info("generating fixtures", "run", runID, "count", opts.count, "seed", opts.seed)
	prog := newProgress(logger)
	spin := newSpinnerWithContext(ctx, cmd.ErrOrStderr(), fmt.Sprintf("Writing fixtures 0/%d", opts.count))
	spin.Start()
	defer spin.Stop()
	var written atomic.Int64

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, opts.workers))
	for k := range opts.count {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(opts.seed + int64(k)))
			p := fuzz.Generate(rng, opts.gen)
			x := p.Extract()
			outputs := fuzz.Record(x, codegen.Compile(x), p.Inputs)

			dir := filepath.Join(runDir, strconv.Itoa(k))
			if err := fuzz.WriteFixture(dir, x, outputs); err != nil {
				return fmt.Errorf("fixture %d: %w", k, err)
			}
			logger.Debug("wrote fixture", "run", runID, "index", k, "nodes", x.Len())
			spin.SetMessage(fmt.Sprintf("Writing fixtures %d/%d", written.Add(1), opts.count))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	spin.Stop()
	prog.done(fmt.Sprintf("Wrote %d fixtures", opts.count))

	out := cmd.OutOrStdout()
	printSuccess(out, "Generated %d fixtures", opts.count)
	printFile(out, runDir)
	return nil
}

// fuzzVerifyCommand re-evaluates existing fixtures and compares the results
// with their recorded outputs.
func (c *CLI) fuzzVerifyCommand() *cobra.Command {
	var tol float64
	var workers int

	cmd := &cobra.Command{
		Use:   "verify [dir]",
		Short: "Re-evaluate fixtures and compare with their recorded outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := fixtureDirs(args[0])
			if err != nil {
				return err
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no fixtures under %s", args[0])
			}

			var failed atomic.Int64
			out := cmd.OutOrStdout()
			eg, ctx := errgroup.WithContext(cmd.Context())
			eg.SetLimit(max(1, workers))
			results := make([]error, len(dirs))
			for i, dir := range dirs {
				eg.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					results[i] = verifyFixture(dir, tol)
					if results[i] != nil {
						failed.Add(1)
					}
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}

			for i, err := range results {
				if err != nil {
					printError(out, "%s: %v", dirs[i], err)
				}
			}
			if n := failed.Load(); n > 0 {
				return fmt.Errorf("%d of %d fixtures differ", n, len(dirs))
			}
			printSuccess(out, "%d fixtures match", len(dirs))
			return nil
		},
	}

	cmd.Flags().Float64Var(&tol, "tol", 0, "relative tolerance (0 requires identical values)")
	cmd.Flags().IntVar(&workers, "workers", 8, "concurrent verifications")
	return cmd
}

// fixtureDirs lists every directory under root that holds a graph file.
func fixtureDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == fuzz.GraphFile {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	slices.Sort(dirs)
	return dirs, nil
}

func verifyFixture(dir string, tol float64) error {
	x, err := pkgio.ImportJSON(filepath.Join(dir, fuzz.GraphFile))
	if err != nil {
		return err
	}
	want, err := fuzz.ReadOutputs(filepath.Join(dir, fuzz.OutputsFile))
	if err != nil {
		return err
	}

	// Fixtures are recorded at the graph's sample values. Inputs the
	// extraction dropped still have a (zero) gradient entry.
	inputs := make([]float64, max(len(want.Gradient), x.NumInputs()))
	for _, id := range x.Inputs() {
		n := x.Node(id)
		inputs[n.Index] = n.Value
	}
	got := fuzz.Record(x, codegen.Compile(x), inputs)
	return fuzz.Compare(want, got, tol)
}
