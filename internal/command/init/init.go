package initcmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/keshon/bvctree/internal/command"
	"github.com/keshon/bvctree/internal/config"
	"github.com/keshon/bvctree/internal/fs"
	"github.com/keshon/bvctree/internal/middleware"
	"github.com/keshon/bvctree/internal/repo"
)

type Command struct {
	quiet       bool
	hash        string
	backend     string
	compression string
	separateDir string
	bookmark    string
	noBookmark  bool
}

func (c *Command) Name() string      { return "init" }
func (c *Command) Short() string     { return "i" }
func (c *Command) Aliases() []string { return []string{"initialize"} }
func (c *Command) Usage() string     { return "init [options] [directory]" }
func (c *Command) Brief() string     { return "Initialize a new repository" }
func (c *Command) Help() string {
	return `Initialize a new repository in the given directory (default: the
current directory, or --repo when set).

Options:
  -q, --quiet                 Suppress normal output.
      --hash=<algo>           Hash algorithm: xxh3 or blake3 (default xxh3).
      --backend=<name>        Object store: file, badger or sqlite (default file).
      --compression=<codec>   Object compression: none, lz4 or zstd (default zstd).
      --separate-dir=<d>      Store repository data in a separate directory.
  -b, --bookmark=<name>       Bookmark the empty tree under this name (default main).
      --no-bookmark           Create no bookmark.

Examples:
  bvctree init
  bvctree init --backend=badger --hash=blake3
  bvctree init --separate-dir=/data/trees
  bvctree init -b trunk
`
}

func (c *Command) Subcommands() []command.Command { return nil }

func (c *Command) Flags(fs *pflag.FlagSet) {
	def := config.Default()
	fs.BoolVarP(&c.quiet, "quiet", "q", false, "suppress normal output")
	fs.StringVar(&c.hash, "hash", def.Hash, "hash algorithm")
	fs.StringVar(&c.backend, "backend", def.Store.Backend, "object store backend")
	fs.StringVar(&c.compression, "compression", def.Store.Compression, "object compression")
	fs.StringVar(&c.separateDir, "separate-dir", "", "store repository data in a separate directory")
	fs.StringVarP(&c.bookmark, "bookmark", "b", config.DefaultBookmark, "bookmark the empty tree under this name")
	fs.BoolVar(&c.noBookmark, "no-bookmark", false, "create no bookmark")
}

func (c *Command) Run(ctx *command.Context) error {
	target := "."
	switch {
	case len(ctx.Args) > 1:
		return fmt.Errorf("too many arguments")
	case len(ctx.Args) == 1:
		target = ctx.Args[0]
	case ctx.Global.RepoDir != "":
		target = ctx.Global.RepoDir
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.Hash = c.hash
	cfg.Store.Backend = c.backend
	cfg.Store.Compression = c.compression

	root := filepath.Join(target, config.RepoDir)
	if c.separateDir != "" {
		if root, err = filepath.Abs(c.separateDir); err != nil {
			return err
		}
	}

	r, err := repo.Init(root, cfg, repo.Options{
		FS:         ctx.FS,
		Logger:     ctx.Logger,
		Registerer: ctx.Registry,
	})
	if errors.Is(err, repo.ErrExist) {
		if !c.quiet {
			fmt.Fprintf(ctx.Stdout, "Reinitialized existing repository in %q\n", root)
		}
		return nil
	}
	if err != nil {
		return err
	}
	defer r.Close()

	if c.separateDir != "" {
		if err := ctx.FS.MkdirAll(target, 0o755); err != nil {
			return err
		}
		pointer := filepath.Join(target, config.RepoPointerFile)
		if err := fs.WriteFileAtomic(ctx.FS, pointer, []byte(root+"\n")); err != nil {
			return fmt.Errorf("write repository pointer: %w", err)
		}
	}

	if c.bookmark != "" && !c.noBookmark {
		id, err := r.EmptyTree(ctx.Ctx)
		if err != nil {
			return err
		}
		if err := r.CreateBookmark(c.bookmark, id); err != nil {
			return fmt.Errorf("create bookmark %q: %w", c.bookmark, err)
		}
	}

	if !c.quiet {
		fmt.Fprintf(ctx.Stdout, "Initialized empty repository in %q\n", root)
	}
	return nil
}

func init() {
	command.RegisterCommand(
		command.ApplyMiddlewares(
			&Command{},
			middleware.WithDebugArgs(),
		),
	)
}
