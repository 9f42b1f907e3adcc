package cmd

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry stores commands by name and alias, case-insensitively. It does
// not dispatch; adapters look commands up and run them.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	names    map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		names:    make(map[string]Command),
	}
}

// Register adds c under its name and, for Aliased roots, its aliases.
// A name already taken by another command is an error.
func (r *Registry) Register(c Command) error {
	keys := []string{strings.ToLower(c.Name())}
	if a, ok := Root(c).(Aliased); ok {
		for _, alias := range a.Aliases() {
			keys = append(keys, strings.ToLower(alias))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		if _, taken := r.names[k]; taken {
			return fmt.Errorf("command name %q already registered", k)
		}
	}
	for _, k := range keys {
		r.names[k] = c
	}
	r.commands[keys[0]] = c
	return nil
}

// Get returns the command registered under name or alias, or nil.
func (r *Registry) Get(name string) Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[strings.ToLower(name)]
}

// GetAll returns every command once, sorted by name.
func (r *Registry) GetAll() []Command {
	r.mu.RLock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b Command) int { return strings.Compare(a.Name(), b.Name()) })
	return list
}
