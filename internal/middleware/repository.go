package middleware

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/keshon/bvctree/internal/command"
	"github.com/keshon/bvctree/internal/config"
	"github.com/keshon/bvctree/internal/repo"
)

// WithRepository locates and opens the repository before the command runs
// and closes it afterwards.
func WithRepository() command.Middleware {
	return func(cmd command.Command) command.Command {
		return &command.WrappedCommand{
			Command: cmd,
			Wrap: func(ctx *command.Context) error {
				r, err := OpenRepository(ctx, ctx.Global.RepoDir, ctx.Registry)
				if err != nil {
					return err
				}
				defer func() {
					if err := r.Close(); err != nil {
						ctx.Logger.Warn("close repository", "root", r.Paths.Root, "error", err)
					}
				}()
				ctx.Repo = r
				return cmd.Run(ctx)
			},
		}
	}
}

// OpenRepository opens the repository found from dir, or from the working
// directory when dir is empty. Store metrics go to reg.
func OpenRepository(ctx *command.Context, dir string, reg prometheus.Registerer) (*repo.Repository, error) {
	if dir == "" {
		dir = "."
	}
	root, err := config.ResolveRepoDir(ctx.FS, dir)
	if err != nil {
		return nil, err
	}
	r, err := repo.Open(root, repo.Options{
		FS:         ctx.FS,
		Logger:     ctx.Logger,
		Registerer: reg,
	})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return r, nil
}
