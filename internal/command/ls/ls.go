package ls

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/keshon/bvctree/internal/command"
	"github.com/keshon/bvctree/internal/hash"
	"github.com/keshon/bvctree/internal/manifest"
	"github.com/keshon/bvctree/internal/middleware"
	"github.com/keshon/bvctree/internal/repo"
	"github.com/keshon/bvctree/internal/util"
)

type Command struct {
	recursive bool
	long      bool
}

func (c *Command) Name() string      { return "ls" }
func (c *Command) Short() string     { return "l" }
func (c *Command) Aliases() []string { return []string{"ls-tree", "list"} }
func (c *Command) Usage() string     { return "ls [-r] [-l] <tree> [path]" }
func (c *Command) Brief() string     { return "List the entries of a stored tree" }
func (c *Command) Help() string {
	return `List the entries of a stored tree, one per line:

  <type tag> <id> <name>

<tree> is a tree id or a bookmark. An optional path selects a directory
inside it.

Options:
  -r, --recursive   Descend into subtrees and print full paths.
  -l, --long        Also print the size of each leaf.

Examples:
  bvctree ls main
  bvctree ls -r main src
`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.recursive, "recursive", "r", false, "descend into subtrees")
	fs.BoolVarP(&c.long, "long", "l", false, "print leaf sizes")
}

func (c *Command) Run(ctx *command.Context) error {
	if len(ctx.Args) < 1 || len(ctx.Args) > 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	r := ctx.Repo
	id, err := r.Resolve(ctx.Ctx, ctx.Args[0])
	if err != nil {
		return err
	}
	var sub manifest.Path
	if len(ctx.Args) == 2 {
		if sub, err = manifest.ParsePath(ctx.Args[1]); err != nil {
			return err
		}
	}
	id, err = descend(ctx.Ctx, r, id, sub)
	if err != nil {
		return err
	}

	l := &lister{r: r, w: ctx.Stdout, recursive: c.recursive, long: c.long}
	return l.list(ctx.Ctx, id, "")
}

// descend follows path from the tree root and returns the tree it names.
func descend(ctx context.Context, r *repo.Repository, root hash.ID, path manifest.Path) (hash.ID, error) {
	id := root
	for i, name := range path {
		listing, err := load(ctx, r, id)
		if err != nil {
			return "", err
		}
		e, ok := listing.Lookup(name)
		if !ok {
			return "", fmt.Errorf("%s: no such entry", path[:i+1])
		}
		if e.Type != manifest.TypeTree {
			return "", fmt.Errorf("%s: %w", path[:i+1], manifest.ErrNotATree)
		}
		id = e.ID
	}
	return id, nil
}

func load(ctx context.Context, r *repo.Repository, id hash.ID) (manifest.Listing, error) {
	listing, ok, err := r.LoadTree(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &manifest.TreeMissingError{ID: id}
	}
	return listing, nil
}

type lister struct {
	r         *repo.Repository
	w         io.Writer
	recursive bool
	long      bool
}

func (l *lister) list(ctx context.Context, id hash.ID, prefix string) error {
	listing, err := load(ctx, l.r, id)
	if err != nil {
		return err
	}
	for _, e := range listing {
		name := prefix + string(e.Name)
		if l.recursive && e.Type == manifest.TypeTree {
			if err := l.list(ctx, e.ID, name+"/"); err != nil {
				return err
			}
			continue
		}
		if !l.long {
			fmt.Fprintf(l.w, "%c %s %s\n", e.Type.Tag(), e.ID, name)
			continue
		}
		size := "-"
		if e.Type != manifest.TypeTree {
			data, err := l.r.GetBlob(ctx, manifest.KindOf(e.Type), e.ID)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			size = util.HumanBytes(int64(len(data)))
		}
		fmt.Fprintf(l.w, "%c %s %10s %s\n", e.Type.Tag(), e.ID, size, name)
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
