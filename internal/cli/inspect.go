package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/adjoint/pkg/ad"
	pkgio "github.com/matzehuels/adjoint/pkg/io"
)

// graphSummary is the --json output of inspect.
type graphSummary struct {
	Path         string         `json:"path"`
	Hash         string         `json:"hash"`
	Nodes        int            `json:"nodes"`
	Edges        int            `json:"edges"`
	Inputs       int            `json:"inputs"`
	Secondary    int            `json:"secondary"`
	Primary      string         `json:"primary"`
	Instructions int            `json:"instructions"`
	Kinds        map[string]int `json:"kinds"`
}

func summarize(x *ad.Extracted) graphSummary {
	s := graphSummary{
		Nodes:     x.Len(),
		Edges:     len(x.Edges()),
		Inputs:    x.NumInputs(),
		Secondary: len(x.Secondary()),
		Primary:   pkgio.NodeName(int(x.Primary())) + " (" + x.Node(x.Primary()).Label() + ")",
		Kinds:     make(map[string]int),
	}
	for _, n := range x.Nodes() {
		s.Kinds[n.Kind.String()]++
	}
	return s
}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var program, asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Summarize a graph and print its compiled program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, true)
			if err != nil {
				return err
			}
			defer runner.Close()

			g, err := runner.Load(ctx, args[0])
			if err != nil {
				return err
			}
			ev := runner.Compile(ctx, g)

			s := summarize(g.X)
			s.Path, s.Hash, s.Instructions = g.Path, g.Hash, ev.Len()

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}

			printTitle(out, s.Path)
			printKeyValue(out, "hash", s.Hash)
			printKeyValue(out, "nodes", strconv.Itoa(s.Nodes))
			printKeyValue(out, "edges", strconv.Itoa(s.Edges))
			printKeyValue(out, "inputs", strconv.Itoa(s.Inputs))
			printKeyValue(out, "secondary", strconv.Itoa(s.Secondary))
			printKeyValue(out, "primary", s.Primary)
			for _, k := range []ad.Kind{ad.KindConst, ad.KindInput, ad.KindUnary, ad.KindBinary, ad.KindTernary, ad.KindNary, ad.KindDebug} {
				if n := s.Kinds[k.String()]; n > 0 {
					printDetail(out, "%-8s %d", k, n)
				}
			}
			if program {
				fmt.Fprintln(out)
				fmt.Fprint(out, ev.Program())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&program, "program", false, "print the compiled forward program")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")

	return cmd
}
