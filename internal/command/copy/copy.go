package copycmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/keshon/bvctree/internal/command"
	"github.com/keshon/bvctree/internal/middleware"
)

type Command struct {
	bookmark string
}

func (c *Command) Name() string      { return "copy" }
func (c *Command) Short() string     { return "C" }
func (c *Command) Aliases() []string { return []string{"cp", "push"} }
func (c *Command) Usage() string     { return "copy [-b <name>] <destination> <tree>" }
func (c *Command) Brief() string     { return "Copy a tree and everything it references to another repository" }
func (c *Command) Help() string {
	return `Copy a tree and every object reachable from it into another
repository. Objects already present in the destination are skipped, and
a subtree already present is not descended. Both repositories must use
the same hash algorithm; backends and compression may differ.

Options:
  -b, --bookmark=<name>   Point a bookmark in the destination at the tree.

Examples:
  bvctree copy ../mirror main
  bvctree copy -b main /backup/repo main
`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.bookmark, "bookmark", "b", "", "bookmark to set in the destination")
}

func (c *Command) Run(ctx *command.Context) error {
	if len(ctx.Args) != 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	src := ctx.Repo
	id, err := src.Resolve(ctx.Ctx, ctx.Args[1])
	if err != nil {
		return err
	}

	dst, err := middleware.OpenRepository(ctx, ctx.Args[0], prometheus.WrapRegistererWithPrefix("dest_", ctx.Registry))
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	defer dst.Close()

	if dst.Paths.Root == src.Paths.Root {
		return fmt.Errorf("source and destination are the same repository")
	}

	stats, err := src.CopyTree(ctx.Ctx, dst, id)
	if err != nil {
		return err
	}
	if c.bookmark != "" {
		if err := dst.SetBookmark(c.bookmark, id); err != nil {
			return err
		}
	}
	fmt.Fprintf(ctx.Stdout, "%s copied %d, skipped %d\n", id, stats.Copied, stats.Skipped)
	return nil
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
