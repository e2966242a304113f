package put

import (
	"fmt"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

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
	typ   string
	jobs  int
	quiet bool
}

func (c *Command) Name() string      { return "put" }
func (c *Command) Short() string     { return "p" }
func (c *Command) Aliases() []string { return []string{"store"} }
func (c *Command) Usage() string     { return "put [options] <file>..." }
func (c *Command) Brief() string     { return "Store files as blobs and print their ids" }
func (c *Command) Help() string {
	return `Store the content of local files in the object store.

For each file one line is printed:

  <id> <type tag> <path>

The type is detected from the file: a symlink stores its target, a file
with any execute bit is an executable, anything else is a plain file.

Options:
  -t, --type=<type>   Force the entry type: file, executable or symlink.
  -j, --jobs=<n>      Files stored concurrently (default: repository setting).
  -q, --quiet         Do not print the summary line.

Examples:
  bvctree put README.md
  bvctree put -t executable build/tool
`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.typ, "type", "t", "", "force the entry type")
	fs.IntVarP(&c.jobs, "jobs", "j", 0, "files stored concurrently")
	fs.BoolVarP(&c.quiet, "quiet", "q", false, "do not print the summary line")
}

type stored struct {
	id   hash.ID
	typ  manifest.Type
	size int64
}

func (c *Command) Run(ctx *command.Context) error {
	if len(ctx.Args) == 0 {
		return fmt.Errorf("no files given")
	}
	var forced manifest.Type
	if c.typ != "" {
		t, err := manifest.ParseType(c.typ)
		if err != nil {
			return err
		}
		if t == manifest.TypeTree {
			return fmt.Errorf("put stores leaves only; use mktree for trees")
		}
		forced = t
	}

	r := ctx.Repo
	jobs := c.jobs
	if jobs <= 0 {
		jobs = r.Config.Concurrency
	}

	var prog *progress.ProgressTracker
	if len(ctx.Args) > progressThreshold {
		prog = progress.NewProgress(ctx.Stderr, len(ctx.Args), "Storing", "files")
	}

	results := make([]stored, len(ctx.Args))
	g, gctx := errgroup.WithContext(ctx.Ctx)
	g.SetLimit(util.Workers(jobs))
	for i, path := range ctx.Args {
		g.Go(func() error {
			data, typ, err := worktree.ReadLeaf(path)
			if err != nil {
				return err
			}
			if forced != 0 {
				typ = forced
			}
			id, err := r.PutFile(gctx, data)
			if err != nil {
				return fmt.Errorf("store %s: %w", path, err)
			}
			results[i] = stored{id: id, typ: typ, size: int64(len(data))}
			if prog != nil {
				prog.Increment()
			}
			return nil
		})
	}
	err := g.Wait()
	if prog != nil {
		prog.Finish()
	}
	if err != nil {
		return err
	}

	var total int64
	for i, res := range results {
		fmt.Fprintf(ctx.Stdout, "%s %c %s\n", res.id, res.typ.Tag(), ctx.Args[i])
		total += res.size
	}
	if !c.quiet {
		fmt.Fprintf(ctx.Stderr, "stored %d file(s), %s\n", len(results), util.HumanBytes(total))
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
