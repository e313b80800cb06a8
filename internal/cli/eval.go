package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/adjoint/pkg/codegen"
	"github.com/matzehuels/adjoint/pkg/errors"
	pkgio "github.com/matzehuels/adjoint/pkg/io"
	"github.com/matzehuels/adjoint/pkg/pipeline"
)

// evalOpts holds the command-line flags for the eval command.
type evalOpts struct {
	inputs     string // comma-separated input vector
	inputsFile string // JSON vector or list of vectors
	noCache    bool
	asJSON     bool
	workers    int
}

// evalCommand creates the eval command.
func (c *CLI) evalCommand() *cobra.Command {
	var opts evalOpts

	cmd := &cobra.Command{
		Use:   "eval [file]",
		Short: "Evaluate a graph and its gradient",
		Long: `Evaluate the primary output of a graph, its gradient with respect to every
input and the secondary outputs.

Inputs not supplied use the sample values stored in the graph. An inputs file
holding a list of vectors evaluates all of them concurrently and prints one
JSON result per line.`,
		Example: `  adjoint eval graph.json --inputs 1,2.5,-3
  adjoint eval graph.json --inputs NaN,Inf --json
  adjoint eval graph.json --inputs-file points.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.inputs != "" && opts.inputsFile != "" {
				return fmt.Errorf("--inputs and --inputs-file are mutually exclusive")
			}
			return c.runEval(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.inputs, "inputs", "i", "", "comma-separated input values (NaN, Inf and -Inf allowed)")
	cmd.Flags().StringVar(&opts.inputsFile, "inputs-file", "", "JSON file with an input vector or a list of vectors")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print results as JSON")
	cmd.Flags().IntVar(&opts.workers, "workers", pipeline.DefaultWorkers, "concurrent evaluations for batch input")

	return cmd
}

func (c *CLI) runEval(cmd *cobra.Command, path string, opts evalOpts) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var batch [][]float64
	var single []float64
	switch {
	case opts.inputsFile != "":
		vecs, isBatch, err := readInputsFile(opts.inputsFile)
		if err != nil {
			return err
		}
		if isBatch {
			batch = vecs
		} else {
			single = vecs[0]
		}
	case opts.inputs != "":
		v, err := parseInputs(opts.inputs)
		if err != nil {
			return err
		}
		single = v
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	g, err := runner.Load(ctx, path)
	if err != nil {
		return err
	}

	if batch != nil {
		prog := newProgress(loggerFromContext(ctx))
		results, err := runner.EvalBatch(ctx, g, batch, opts.workers)
		if err != nil {
			return err
		}
		for _, res := range results {
			data, err := pkgio.EncodeResult(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		}
		prog.done(fmt.Sprintf("Evaluated %d input vectors", len(results)))
		return nil
	}

	res, cached, err := runner.EvalWithCacheInfo(ctx, g, single)
	if err != nil {
		return err
	}
	if opts.asJSON {
		data, err := pkgio.EncodeResult(res)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	printResult(out, res, cached)
	return nil
}

func printResult(w io.Writer, res codegen.Result, cached bool) {
	printKeyValue(w, "primary", styleNumber.Render(fmtFloat(res.Primary)))
	printKeyValue(w, "gradient", fmtVector(res.Gradient))
	if len(res.Secondary) > 0 {
		printKeyValue(w, "secondary", fmtVector(res.Secondary))
	}
	printCacheStatus(w, cached)
}

// parseInputs parses "1, 2.5, NaN" into a vector. strconv spellings of
// infinities ("Inf", "+Inf", "-Inf", "Infinity") are accepted.
func parseInputs(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	out := make([]float64, 0, len(fields))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "input %d: %q is not a number", i, f)
		}
		out = append(out, v)
	}
	if err := errors.ValidateInputs(out); err != nil {
		return nil, err
	}
	return out, nil
}

// readInputsFile reads either one vector ([1, 2]) or a list of vectors
// ([[1, 2], [3, 4]]). Non-finite values use the interchange spellings
// ("NaN", "Infinity", "-Infinity"). The bool result reports a list.
func readInputsFile(path string) ([][]float64, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode %s", path)
	}
	if len(items) == 0 || !bytes.HasPrefix(bytes.TrimSpace(items[0]), []byte("[")) {
		var vec []pkgio.Number
		if err := json.Unmarshal(data, &vec); err != nil {
			return nil, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode %s", path)
		}
		return [][]float64{numbers(vec)}, false, nil
	}

	out := make([][]float64, len(items))
	for i, item := range items {
		var vec []pkgio.Number
		if err := json.Unmarshal(item, &vec); err != nil {
			return nil, false, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode %s: vector %d", path, i)
		}
		out[i] = numbers(vec)
	}
	return out, true, nil
}

func numbers(ns []pkgio.Number) []float64 {
	out := make([]float64, len(ns))
	for i, n := range ns {
		out[i] = float64(n)
	}
	return out
}
