package command

// Middleware decorates a command, typically to prepare the context before
// Run or to clean up after it.
type Middleware func(Command) Command

// WrappedCommand replaces Run of the embedded command with Wrap. Every other
// method, Flags included, is the embedded command's.
type WrappedCommand struct {
	Command
	Wrap func(ctx *Context) error
}

func (w *WrappedCommand) Run(ctx *Context) error {
	if w.Wrap != nil {
		return w.Wrap(ctx)
	}
	return w.Command.Run(ctx)
}

// ApplyMiddlewares wraps cmd with each middleware in turn, so the last one
// given runs first.
func ApplyMiddlewares(cmd Command, mws ...Middleware) Command {
	for _, mw := range mws {
		cmd = mw(cmd)
	}
	return cmd
}
