package importcmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/keshon/bvctree/internal/command"
	"github.com/keshon/bvctree/internal/hash"
	"github.com/keshon/bvctree/internal/manifest"
	"github.com/keshon/bvctree/internal/middleware"
	"github.com/keshon/bvctree/internal/progress"
	"github.com/keshon/bvctree/internal/util"
	"github.com/keshon/bvctree/internal/worktree"
)

// progressThreshold is the file count above which a progress line is shown.
const progressThreshold = 16

type Command struct {
	parent   string
	prefix   string
	bookmark string
	jobs     int
	quiet    bool
}

func (c *Command) Name() string      { return "import" }
func (c *Command) Short() string     { return "I" }
func (c *Command) Aliases() []string { return []string{"snapshot"} }
func (c *Command) Usage() string     { return "import [options] <directory>" }
func (c *Command) Brief() string     { return "Store a local directory as a tree" }
func (c *Command) Help() string {
	return `Store every file below a local directory and save the directory
as a tree. Paths matching .bvctreeignore in that directory are skipped,
as are .bvctree and .bvctree-pointer. Empty directories are kept.

With --prefix the directory replaces the subtree at that path of the
parent tree instead of becoming the root.

Options:
  -p, --parent=<rev>      Parent tree, recorded as lineage.
      --prefix=<path>     Place the directory at this path of the parent.
  -b, --bookmark=<name>   Point a bookmark at the new tree.
  -j, --jobs=<n>          Files stored concurrently.
  -q, --quiet             Do not print the summary line.

Examples:
  bvctree import -p main -b main .
  bvctree import -p main --prefix vendor/lib ../lib
`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.parent, "parent", "p", "", "parent tree")
	fs.StringVar(&c.prefix, "prefix", "", "place the directory at this path")
	fs.StringVarP(&c.bookmark, "bookmark", "b", "", "point a bookmark at the new tree")
	fs.IntVarP(&c.jobs, "jobs", "j", 0, "files stored concurrently")
	fs.BoolVarP(&c.quiet, "quiet", "q", false, "do not print the summary line")
}

func (c *Command) Run(ctx *command.Context) error {
	if len(ctx.Args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	dir := ctx.Args[0]
	r := ctx.Repo

	prefix, err := manifest.ParsePath(c.prefix)
	if err != nil {
		return fmt.Errorf("--prefix: %w", err)
	}
	var parent hash.ID
	if c.parent != "" {
		if parent, err = r.Resolve(ctx.Ctx, c.parent); err != nil {
			return err
		}
	}

	ig, err := worktree.LoadIgnore(dir)
	if err != nil {
		return err
	}
	listing, err := worktree.Scan(dir, ig)
	if err != nil {
		return err
	}

	jobs := c.jobs
	if jobs <= 0 {
		jobs = r.Config.Concurrency
	}
	opts := worktree.ImportOptions{Jobs: jobs}
	var prog *progress.ProgressTracker
	if len(listing.Files) > progressThreshold {
		prog = progress.NewProgress(ctx.Stderr, len(listing.Files), "Importing", "files")
		opts.Progress = prog.Increment
	}
	tree, stats, err := worktree.Import(ctx.Ctx, r, listing, opts)
	if prog != nil {
		prog.Finish()
	}
	if err != nil {
		return err
	}

	var m *manifest.RootManifest
	if prefix.IsRoot() {
		if m, err = r.NewManifest(ctx.Ctx, "", ""); err != nil {
			return err
		}
		tree.P1 = parent
		m.SetRoot(tree)
	} else {
		if m, err = r.NewManifest(ctx.Ctx, parent, ""); err != nil {
			return err
		}
		if e, ok := manifest.Lookup(m.Root(), prefix); ok {
			if old, ok := e.(*manifest.Tree); ok {
				tree.P1 = old.P1
			}
		}
		if err := m.InsertPath(prefix, tree); err != nil {
			return fmt.Errorf("insert at %s: %w", prefix, err)
		}
	}

	ref, err := m.Save(ctx.Ctx, ctx.Logger)
	if err != nil {
		return err
	}
	if c.bookmark != "" {
		if err := r.SetBookmark(c.bookmark, ref.ID); err != nil {
			return err
		}
	}
	fmt.Fprintln(ctx.Stdout, ref.ID)
	if !c.quiet {
		fmt.Fprintf(ctx.Stderr, "imported %d file(s), %s\n", stats.Files, util.HumanBytes(stats.Bytes))
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
