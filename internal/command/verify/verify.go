package verify

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/keshon/bvctree/internal/command"
	"github.com/keshon/bvctree/internal/hash"
	"github.com/keshon/bvctree/internal/middleware"
	"github.com/keshon/bvctree/internal/repo"
)

type Command struct {
	cleanup bool
	verbose bool
	jobs    int
}

func (c *Command) Name() string      { return "verify" }
func (c *Command) Short() string     { return "V" }
func (c *Command) Aliases() []string { return []string{"scan", "check"} }
func (c *Command) Usage() string     { return "verify [options] [tree|bookmark]..." }
func (c *Command) Brief() string     { return "Check that every object reachable from trees is intact" }
func (c *Command) Help() string {
	return `Read every object reachable from the given trees, or from all
bookmarks when none are given, and check it against its id.

An object is Missing when the store does not have it and Damaged when it
cannot be decoded or its content no longer hashes to its id.

Options:
  -v, --verbose     List failed objects with the paths they appear at.
      --cleanup     Remove temp files left by interrupted writes first.
  -j, --jobs=<n>    Objects checked concurrently.
`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "list failed objects")
	fs.BoolVar(&c.cleanup, "cleanup", false, "remove leftover temp files first")
	fs.IntVarP(&c.jobs, "jobs", "j", 0, "objects checked concurrently")
}

func (c *Command) Run(ctx *command.Context) error {
	r := ctx.Repo
	w := ctx.Stdout

	if c.cleanup {
		n, err := r.CleanupTemp()
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		fmt.Fprintf(w, "Removed %d temp file(s).\n", n)
	}

	roots, err := c.roots(ctx, r)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		fmt.Fprintln(w, "No bookmarks to verify.")
		return nil
	}

	jobs := c.jobs
	if jobs <= 0 {
		jobs = r.Config.Concurrency
	}
	total, err := r.CountReachable(ctx.Ctx, roots)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Checking %d object(s) reachable from %d root(s).\n", total, len(roots))

	out, errCh := r.Verify(ctx.Ctx, roots, jobs)

	fmt.Fprint(w, "\033[90mLegend:\033[0m \033[32m█\033[0m OK   \033[31m█\033[0m Missing   \033[33m█\033[0m Damaged\n\n")

	start := time.Now()
	count, okCount, missingCount, damagedCount := 0, 0, 0, 0
	var failed []repo.ObjectCheck

	for out != nil || errCh != nil {
		select {
		case oc, ok := <-out:
			if !ok {
				out = nil
				continue
			}
			switch oc.Status {
			case repo.OK:
				fmt.Fprint(w, "\033[32m█\033[0m")
				okCount++
			case repo.Missing:
				fmt.Fprint(w, "\033[31m█\033[0m")
				missingCount++
				failed = append(failed, oc)
			case repo.Damaged:
				fmt.Fprint(w, "\033[33m█\033[0m")
				damagedCount++
				failed = append(failed, oc)
			}
			count++
			if count%100 == 0 {
				fmt.Fprintf(w, "  %d\n", count)
			}

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return err
			}
		}
	}

	if count%100 != 0 {
		fmt.Fprintf(w, "  %d\n", count)
	}

	fmt.Fprintf(w, "\nScan complete in %s.\n", time.Since(start).Truncate(time.Millisecond))
	fmt.Fprintf(w, "Objects OK: \033[32m%d\033[0m   Missing: \033[31m%d\033[0m   Damaged: \033[33m%d\033[0m\n",
		okCount, missingCount, damagedCount)

	if c.verbose && len(failed) > 0 {
		fmt.Fprintln(w, "\nFailed objects:")
		for _, oc := range failed {
			fmt.Fprintf(w, "%-7s %s %s  paths: %v", oc.Status, oc.Kind, oc.ID, oc.Paths)
			if oc.Err != nil {
				fmt.Fprintf(w, "  (%v)", oc.Err)
			}
			fmt.Fprintln(w)
		}
	}

	if missingCount+damagedCount > 0 {
		return fmt.Errorf("%d of %d objects failed verification", missingCount+damagedCount, count)
	}
	return nil
}

func (c *Command) roots(ctx *command.Context, r *repo.Repository) ([]hash.ID, error) {
	if len(ctx.Args) > 0 {
		roots := make([]hash.ID, 0, len(ctx.Args))
		for _, spec := range ctx.Args {
			id, err := r.Resolve(ctx.Ctx, spec)
			if err != nil {
				return nil, err
			}
			roots = append(roots, id)
		}
		return roots, nil
	}
	marks, err := r.ListBookmarks()
	if err != nil {
		return nil, err
	}
	roots := make([]hash.ID, 0, len(marks))
	for _, b := range marks {
		roots = append(roots, b.Target)
	}
	return roots, nil
}

func init() {
	command.RegisterCommand(
		command.ApplyMiddlewares(
			&Command{},
			middleware.WithRepository(),
			middleware.WithDebugArgs(),
		),
	)
}
