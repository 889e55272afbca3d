package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// CommandHandler executes one outbox message kind.
type CommandHandler func(ctx context.Context, payload json.RawMessage) error

// Dispatcher routes outbox messages to the handler registered for their kind.
type Dispatcher struct {
	cmdHandlers map[string]CommandHandler
	mu          sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		cmdHandlers: make(map[string]CommandHandler),
	}
}

func (d *Dispatcher) RegisterCommand(kind string, handler CommandHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmdHandlers[kind] = handler
}

// ErrUnknownCommand is returned for kinds without a handler.
type ErrUnknownCommand struct {
	Kind string
}

func (e ErrUnknownCommand) Error() string {
	return fmt.Sprintf("command handler %s not registered", e.Kind)
}

func (d *Dispatcher) ExecuteCommand(ctx context.Context, kind string, payload json.RawMessage) error {
	d.mu.RLock()
	handler, ok := d.cmdHandlers[kind]
	d.mu.RUnlock()
	if !ok {
		return ErrUnknownCommand{Kind: kind}
	}
	return handler(ctx, payload)
}

// Kinds lists registered kinds in sorted order.
func (d *Dispatcher) Kinds() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	kinds := make([]string, 0, len(d.cmdHandlers))
	for kind := range d.cmdHandlers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
