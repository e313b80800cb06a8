package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/adjoint/pkg/cache"
	"github.com/matzehuels/adjoint/pkg/errors"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or empty the result cache",
		Long: `The result cache holds evaluation results and rendered diagrams keyed by
graph hash. The file backend lives under $XDG_CACHE_HOME/adjoint.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached entry",
			Args:  cobra.NoArgs,
			RunE:  c.runCacheClear,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the cache directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				dir, err := c.cacheDir()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dir)
				return nil
			},
		},
	)
	return cmd
}

func (c *CLI) runCacheClear(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if c.Config.Cache.Backend == backendRedis {
		return errors.New(errors.ErrCodeUnsupported, "cache clear works on the file backend only; redis entries expire by ttl")
	}

	dir, err := c.cacheDir()
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		printInfo(out, "Nothing cached yet")
		return nil
	}

	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return err
	}
	n, err := fc.Clear(cmd.Context())
	if err != nil {
		return err
	}
	printSuccess(out, "Removed %d entries", n)
	printDetail(out, "%s", dir)
	return nil
}
