package command

import (
	"context"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/keshon/bvctree/internal/fs"
	"github.com/keshon/bvctree/internal/repo"
)

// Command represents a cli command
type Command interface {
	Name() string
	Short() string
	Aliases() []string
	Usage() string
	Brief() string
	Help() string
	Subcommands() []Command
	Flags(fs *pflag.FlagSet)
	Run(ctx *Context) error
}

// GlobalOptions are the flags accepted before the command name.
type GlobalOptions struct {
	RepoDir     string
	LogLevel    string
	MetricsFile string
}

// Context represents a cli context
type Context struct {
	Ctx    context.Context
	Args   []string
	Flags  *pflag.FlagSet
	Global GlobalOptions

	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	FS       fs.FS
	Registry *prometheus.Registry

	// Repo is set by middleware.WithRepository for commands that need an
	// opened repository.
	Repo *repo.Repository
}
