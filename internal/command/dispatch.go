package command

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/keshon/tagwarden/pkg/cmd"
)

// Parse splits a message into command name and arguments when it starts
// with prefix.
func Parse(content, prefix string) (name string, args []string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// Dispatch runs the command registered under name and reports any error to
// the invoker. It reports whether a command was found. A panicking command
// is recovered and reported like any other failure.
func Dispatch(ctx context.Context, r *cmd.Registry, deps *Deps, mc *MessageContext, name string) bool {
	c := r.Get(name)
	if c == nil {
		return false
	}

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				deps.Logger().Error("command panicked", "command", c.Name(), "panic", p, "stack", string(debug.Stack()))
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return c.Run(ctx, &cmd.Invocation{Name: name, Args: mc.Args, Data: mc})
	}()
	Report(deps.Messenger, deps.Logger(), mc, c.Name(), err)
	return true
}
