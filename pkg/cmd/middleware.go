package cmd

// Middleware wraps a command, e.g. for logging or permission checks.
type Middleware func(Command) Command

// Apply applies middlewares so the first in the list runs outermost.
func Apply(c Command, mws ...Middleware) Command {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}
