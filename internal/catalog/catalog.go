// Package catalog provides the tool registry and dependency resolution.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// ErrCycleDetected indicates a circular dependency in registered tools.
// Cycles are a configuration bug and fail hard, never silently dropped.
var ErrCycleDetected = errors.New("circular tool dependency detected")

// DuplicateToolError is returned when a tool name is registered twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// UnknownToolError is returned when a lookup misses. Callers resolving
// selections from natural-language extraction treat this as non-fatal.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Catalog is the in-memory registry of tool descriptors. Registration is
// append-only: descriptors are never mutated or removed once registered, so
// reads after startup need only the lock held during append.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]*models.ToolDescriptor
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		tools:    make(map[string]*models.ToolDescriptor),
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (c *Catalog) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		c.debugLog = fn
	}
}

// Register adds a descriptor to the catalog.
// Returns *DuplicateToolError if the name is taken.
func (c *Catalog) Register(d *models.ToolDescriptor) error {
	if d.Name == "" {
		return fmt.Errorf("tool descriptor has no name")
	}
	if !d.TokenCost.Valid() {
		return fmt.Errorf("tool %q: invalid token cost %q", d.Name, d.TokenCost)
	}
	if !d.ExecutionTime.Valid() {
		return fmt.Errorf("tool %q: invalid execution time %q", d.Name, d.ExecutionTime)
	}
	if d.Reliability < 0 || d.Reliability > 1 {
		return fmt.Errorf("tool %q: reliability %f out of range [0,1]", d.Name, d.Reliability)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[d.Name]; exists {
		return &DuplicateToolError{Name: d.Name}
	}
	c.tools[d.Name] = d
	c.debugLog("[catalog] registered tool %s (deps=%v)", d.Name, d.Dependencies)
	return nil
}

// Lookup returns the descriptor for the given name.
// Returns *UnknownToolError if the name is not registered.
func (c *Catalog) Lookup(name string) (*models.ToolDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return d, nil
}

// Has returns true if the name is registered.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tools[name]
	return ok
}

// Names returns all registered tool names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

// ByCapability returns the names of tools carrying the given capability tag,
// sorted for deterministic ordering.
func (c *Catalog) ByCapability(tag string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var names []string
	for name, d := range c.tools {
		if d.HasCapability(tag) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ByTrigger returns the names of tools whose auto-run triggers include the
// given request-type tag, sorted.
func (c *Catalog) ByTrigger(tag string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var names []string
	for name, d := range c.tools {
		for _, trigger := range d.AutoRunTriggers {
			if trigger == tag {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}
