// Package cmd is a transport-agnostic command core: a command has a name,
// a description and Run(ctx, invocation). Adapters decide how commands are
// triggered (chat prefix, CLI) and what they find in Invocation.Data.
package cmd

import "context"

// Invocation is what a runner hands to a command.
type Invocation struct {
	// Name is the name or alias the command was invoked by.
	Name string
	Args []string
	// Data is the adapter's own context, e.g. the chat event.
	Data any
}

// Command is identity plus execution.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Aliased is implemented by commands reachable under more than one name.
type Aliased interface {
	Aliases() []string
}
