package command

import (
	"sort"
	"sync"
)

var (
	regMu    sync.RWMutex
	registry = map[string]Command{}
)

// Register adds a command to the global registry, wrapping it with the
// given middlewares in order. Registering the same name twice replaces
// the earlier command.
func Register(cmd Command, mws ...Middleware) {
	for _, mw := range mws {
		cmd = mw(cmd)
	}
	regMu.Lock()
	registry[cmd.Name()] = cmd
	regMu.Unlock()
}

// Get returns the command registered under name.
func Get(name string) (Command, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	cmd, ok := registry[name]
	return cmd, ok
}

// All returns every registered command, sorted by name.
func All() []Command {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]Command, 0, len(registry))
	for _, cmd := range registry {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
