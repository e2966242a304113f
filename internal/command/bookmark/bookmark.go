package bookmark

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/keshon/bvctree/internal/command"
	"github.com/keshon/bvctree/internal/middleware"
)

type Command struct {
	delete bool
	create bool
}

func (c *Command) Name() string      { return "bookmark" }
func (c *Command) Short() string     { return "b" }
func (c *Command) Aliases() []string { return []string{"bookmarks", "bm"} }
func (c *Command) Usage() string     { return "bookmark [-c] [<name> <tree>] | -d <name>" }
func (c *Command) Brief() string     { return "List, set or delete bookmarks" }
func (c *Command) Help() string {
	return `Manage bookmarks, the named pointers to trees.

Usage:
  bookmark                 List bookmarks with their tree ids.
  bookmark <name>          Print the tree id of a bookmark.
  bookmark <name> <tree>   Point a bookmark at a tree id or another bookmark.
  bookmark -d <name>       Delete a bookmark.

Options:
  -c, --create   Fail if the bookmark already exists.
  -d, --delete   Delete the named bookmark.
`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.delete, "delete", "d", false, "delete the named bookmark")
	fs.BoolVarP(&c.create, "create", "c", false, "fail if the bookmark exists")
}

func (c *Command) Run(ctx *command.Context) error {
	r := ctx.Repo
	args := ctx.Args

	if c.delete {
		if len(args) != 1 {
			return fmt.Errorf("usage: bookmark -d <name>")
		}
		if err := r.DeleteBookmark(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stdout, "Deleted bookmark %s\n", args[0])
		return nil
	}

	switch len(args) {
	case 0:
		marks, err := r.ListBookmarks()
		if err != nil {
			return err
		}
		for _, b := range marks {
			fmt.Fprintf(ctx.Stdout, "%s %s\n", b.Target, b.Name)
		}
		return nil
	case 1:
		id, err := r.GetBookmark(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.Stdout, id)
		return nil
	case 2:
		id, err := r.Resolve(ctx.Ctx, args[1])
		if err != nil {
			return err
		}
		if c.create {
			err = r.CreateBookmark(args[0], id)
		} else {
			err = r.SetBookmark(args[0], id)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stdout, "%s %s\n", id, args[0])
		return nil
	default:
		return fmt.Errorf("usage: %s", c.Usage())
	}
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
