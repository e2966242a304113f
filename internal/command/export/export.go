package export

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/keshon/bvctree/internal/command"
	"github.com/keshon/bvctree/internal/middleware"
	"github.com/keshon/bvctree/internal/progress"
	"github.com/keshon/bvctree/internal/util"
	"github.com/keshon/bvctree/internal/worktree"
)

type Command struct {
	prune bool
	jobs  int
	quiet bool
}

func (c *Command) Name() string      { return "export" }
func (c *Command) Short() string     { return "E" }
func (c *Command) Aliases() []string { return []string{"checkout", "restore"} }
func (c *Command) Usage() string     { return "export [options] <tree> <directory>" }
func (c *Command) Brief() string     { return "Write a stored tree out to a local directory" }
func (c *Command) Help() string {
	return `Write the files of a tree into a local directory, creating it if
needed. Existing files at the same paths are replaced; other files are
left alone unless --prune is given.

Options:
      --prune       Remove files and directories the tree does not contain.
                    Paths matched by .bvctreeignore are kept.
  -j, --jobs=<n>    Files written concurrently.
  -q, --quiet       Do not print the summary line.

Examples:
  bvctree export main ./out
  bvctree export --prune main .
`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.prune, "prune", false, "remove paths the tree does not contain")
	fs.IntVarP(&c.jobs, "jobs", "j", 0, "files written concurrently")
	fs.BoolVarP(&c.quiet, "quiet", "q", false, "do not print the summary line")
}

func (c *Command) Run(ctx *command.Context) error {
	if len(ctx.Args) != 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	r := ctx.Repo
	id, err := r.Resolve(ctx.Ctx, ctx.Args[0])
	if err != nil {
		return err
	}

	jobs := c.jobs
	if jobs <= 0 {
		jobs = r.Config.Concurrency
	}
	opts := worktree.ExportOptions{Jobs: jobs, Prune: c.prune}
	var prog *progress.ProgressTracker
	if !c.quiet {
		prog = progress.NewProgress(ctx.Stderr, 0, "Exporting "+id.Short(), "files")
		opts.Progress = prog.Increment
	}
	stats, err := worktree.Export(ctx.Ctx, r, id, ctx.Args[1], opts)
	if prog != nil {
		prog.Finish()
	}
	if err != nil {
		return err
	}
	if !c.quiet {
		fmt.Fprintf(ctx.Stderr, "exported %d file(s), %s; removed %d\n", stats.Files, util.HumanBytes(stats.Bytes), stats.Removed)
	}
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
