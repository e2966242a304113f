package mktree

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/keshon/bvctree/internal/command"
	"github.com/keshon/bvctree/internal/hash"
	"github.com/keshon/bvctree/internal/manifest"
	"github.com/keshon/bvctree/internal/middleware"
	"github.com/keshon/bvctree/internal/repo"
)

type Command struct {
	parents  []string
	sets     []string
	dels     []string
	take     int
	bookmark string
	jobs     int
}

func (c *Command) Name() string      { return "mktree" }
func (c *Command) Short() string     { return "m" }
func (c *Command) Aliases() []string { return []string{"make-tree"} }
func (c *Command) Usage() string {
	return "mktree [-p <parent>]... [--del <path>]... [--set <path>=<type>:<id>]... [options]"
}
func (c *Command) Brief() string { return "Build a tree from parents and edits and print its id" }
func (c *Command) Help() string {
	return `Build a new tree from up to two parent trees plus a list of edits,
store every changed directory and print the id of the root.

Parents are tree ids or bookmark names. With no parent the tree starts
empty. With two parents the roots conflict and one side must be chosen
with --take; the saved root records both parents.

Edits run in order: removals first, then insertions. Intermediate
directories are created as needed.

Options:
  -p, --parent=<rev>            Parent tree (at most two).
      --set=<path>=<type>:<id>  Insert an entry. Type is f, x, l or t.
      --del=<path>              Remove an entry; missing paths are ignored.
      --take=<1|2>              Resolve a two-parent root by taking that side.
  -b, --bookmark=<name>         Point a bookmark at the new tree.
  -j, --jobs=<n>                Subtrees saved concurrently per directory.

Examples:
  bvctree mktree --set README=f:<id> --set src/main.go=f:<id>
  bvctree mktree -p main --del old --set bin/tool=x:<id> -b main
  bvctree mktree -p main -p topic --take 2 -b main
`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.StringArrayVarP(&c.parents, "parent", "p", nil, "parent tree (at most two)")
	fs.StringArrayVar(&c.sets, "set", nil, "insert <path>=<type>:<id>")
	fs.StringArrayVar(&c.dels, "del", nil, "remove a path")
	fs.IntVar(&c.take, "take", 0, "resolve a two-parent root by taking side 1 or 2")
	fs.StringVarP(&c.bookmark, "bookmark", "b", "", "point a bookmark at the new tree")
	fs.IntVarP(&c.jobs, "jobs", "j", 0, "subtrees saved concurrently per directory")
}

// edit is one parsed --set argument.
type edit struct {
	path  manifest.Path
	entry manifest.Entry
}

func (c *Command) Run(ctx *command.Context) error {
	if len(ctx.Args) > 0 {
		return fmt.Errorf("unexpected argument %q", ctx.Args[0])
	}
	if len(c.parents) > 2 {
		return fmt.Errorf("at most two parents, got %d", len(c.parents))
	}
	if c.take != 0 && c.take != 1 && c.take != 2 {
		return fmt.Errorf("--take must be 1 or 2")
	}
	r := ctx.Repo

	var ids [2]hash.ID
	for i, spec := range c.parents {
		id, err := r.Resolve(ctx.Ctx, spec)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	dels := make([]manifest.Path, 0, len(c.dels))
	for _, d := range c.dels {
		p, err := manifest.ParsePath(d)
		if err != nil {
			return fmt.Errorf("--del %q: %w", d, err)
		}
		dels = append(dels, p)
	}
	sets := make([]edit, 0, len(c.sets))
	for _, s := range c.sets {
		e, err := parseSet(ctx, r, s)
		if err != nil {
			return fmt.Errorf("--set %q: %w", s, err)
		}
		sets = append(sets, e)
	}

	m, err := r.NewManifest(ctx.Ctx, ids[0], ids[1])
	if err != nil {
		return err
	}
	if c.jobs > 0 {
		m.SetConcurrency(c.jobs)
	}

	if conflict, ok := m.Root().(*manifest.Conflict); ok {
		if c.take == 0 {
			return fmt.Errorf("parents %s and %s differ: choose a side with --take 1|2", ids[0].Short(), ids[1].Short())
		}
		side := conflict.Entries[c.take-1].(*manifest.Tree)
		side.Modified = true
		side.P1 = ids[c.take-1]
		side.P2 = ids[2-c.take]
		m.SetRoot(side)
	} else if c.take != 0 {
		return fmt.Errorf("--take needs two distinct parents")
	}

	for _, p := range dels {
		if _, err := m.RemovePath(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	for _, e := range sets {
		if err := m.InsertPath(e.path, e.entry); err != nil {
			return fmt.Errorf("insert %s: %w", e.path, err)
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
	return nil
}

// parseSet parses "<path>=<type>:<id>". A tree id must name a stored tree.
func parseSet(ctx *command.Context, r *repo.Repository, s string) (edit, error) {
	eq := strings.LastIndexByte(s, '=')
	if eq < 0 {
		return edit{}, fmt.Errorf("want <path>=<type>:<id>")
	}
	path, err := manifest.ParsePath(s[:eq])
	if err != nil {
		return edit{}, err
	}
	if path.IsRoot() {
		return edit{}, manifest.ErrEmptyPath
	}
	typName, idStr, ok := strings.Cut(s[eq+1:], ":")
	if !ok {
		return edit{}, fmt.Errorf("want <type>:<id> after '='")
	}
	typ, err := manifest.ParseType(typName)
	if err != nil {
		return edit{}, err
	}
	id, err := hash.Parse(idStr)
	if err != nil {
		return edit{}, err
	}

	if typ == manifest.TypeTree {
		// Loaded in full so later --set paths can edit below it.
		tree, err := manifest.ConvertExistingTree(ctx.Ctx, r, id)
		if err != nil {
			return edit{}, err
		}
		return edit{path: path, entry: tree}, nil
	}
	leaf, err := manifest.NewLeaf(id, typ)
	if err != nil {
		return edit{}, err
	}
	return edit{path: path, entry: leaf}, nil
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
