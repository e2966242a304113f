package cat

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/keshon/bvctree/internal/command"
	"github.com/keshon/bvctree/internal/hash"
	"github.com/keshon/bvctree/internal/manifest"
	"github.com/keshon/bvctree/internal/middleware"
)

type Command struct {
	kind    string
	parents bool
}

func (c *Command) Name() string      { return "cat" }
func (c *Command) Short() string     { return "c" }
func (c *Command) Aliases() []string { return []string{"cat-object", "show"} }
func (c *Command) Usage() string     { return "cat [-k file|tree] [-p] <id|bookmark>" }
func (c *Command) Brief() string     { return "Print the content of a stored object" }
func (c *Command) Help() string {
	return `Print a stored object. A file is written out verbatim. A tree is
printed as its listing, one "<type tag> <id> <name>" line per entry.

Without --kind a bookmark or the id of a stored tree is shown as a tree,
anything else as a file.

Options:
  -k, --kind=<kind>   Object kind: file or tree.
  -p, --parents       Print the recorded parents of a tree first.

Examples:
  bvctree cat <file id> > out.bin
  bvctree cat -p main
`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.kind, "kind", "k", "", "object kind: file or tree")
	fs.BoolVarP(&c.parents, "parents", "p", false, "print the recorded parents of a tree")
}

func (c *Command) Run(ctx *command.Context) error {
	if len(ctx.Args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	r := ctx.Repo
	spec := ctx.Args[0]

	var (
		kind manifest.Kind
		id   hash.ID
		err  error
	)
	switch c.kind {
	case "":
		if id, err = r.Resolve(ctx.Ctx, spec); err == nil {
			kind = manifest.KindTree
		} else if id, err = hash.Parse(spec); err == nil {
			kind = manifest.KindFile
		} else {
			return fmt.Errorf("%q is neither a bookmark nor an id", spec)
		}
	case string(manifest.KindTree):
		kind = manifest.KindTree
		if id, err = r.Resolve(ctx.Ctx, spec); err != nil {
			return err
		}
	case string(manifest.KindFile):
		kind = manifest.KindFile
		if id, err = hash.Parse(spec); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown kind %q", c.kind)
	}

	obj, err := r.GetObject(ctx.Ctx, kind, id)
	if err != nil {
		return err
	}
	if kind == manifest.KindFile {
		_, err := ctx.Stdout.Write(obj.Data)
		return err
	}

	listing, err := manifest.ParseRecord(obj.Data)
	if err != nil {
		return err
	}
	if c.parents {
		for _, p := range []hash.ID{obj.Parents.P1, obj.Parents.P2} {
			if !p.IsZero() {
				fmt.Fprintf(ctx.Stdout, "parent %s\n", p)
			}
		}
	}
	for _, e := range listing {
		fmt.Fprintf(ctx.Stdout, "%c %s %s\n", e.Type.Tag(), e.ID, e.Name)
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
