package middleware

import (
	"github.com/keshon/bvctree/internal/command"
)

// WithDebugArgs logs the parsed arguments of every invocation at debug level.
func WithDebugArgs() command.Middleware {
	return func(cmd command.Command) command.Command {
		return &command.WrappedCommand{
			Command: cmd,
			Wrap: func(ctx *command.Context) error {
				ctx.Logger.Debug("run command", "command", cmd.Name(), "args", ctx.Args)
				return cmd.Run(ctx)
			},
		}
	}
}
