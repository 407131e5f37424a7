package catalog

import (
	"fmt"
	"sort"
)

// Resolve expands the given tool names into their transitive dependency
// closure using breadth-first expansion. The result is sorted and
// de-duplicated. Resolving an already-closed set returns it unchanged.
//
// Unknown names in the input are skipped and logged rather than failing,
// since requested sets may originate from heuristic text parsing. A
// dependency edge to an unregistered tool, or a dependency cycle, is a
// configuration bug and returns an error.
func (c *Catalog) Resolve(names []string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	queue := make([]string, 0, len(names))

	for _, name := range names {
		if _, ok := c.tools[name]; !ok {
			c.debugLog("[catalog] resolve: skipping unknown tool %q", name)
			continue
		}
		if !seen[name] {
			seen[name] = true
			queue = append(queue, name)
		}
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		d := c.tools[name]
		for _, dep := range d.Dependencies {
			if _, ok := c.tools[dep]; !ok {
				return nil, fmt.Errorf("tool %q depends on unregistered tool %q", name, dep)
			}
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	closed := make([]string, 0, len(seen))
	for name := range seen {
		closed = append(closed, name)
	}
	sort.Strings(closed)

	if err := c.checkAcyclic(closed); err != nil {
		return nil, err
	}
	return closed, nil
}

// CheckAcyclic verifies the whole catalog is cycle-free. Called at startup
// after registration so a cyclic configuration fails fast.
func (c *Catalog) CheckAcyclic() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	return c.checkAcyclic(names)
}

// checkAcyclic runs a three-color depth-first search over the given names.
// Caller must hold at least the read lock.
func (c *Catalog) checkAcyclic(names []string) error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(names))

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case gray:
			return fmt.Errorf("%w: involving tool %q", ErrCycleDetected, name)
		case black:
			return nil
		}
		color[name] = gray
		d, ok := c.tools[name]
		if ok {
			for _, dep := range d.Dependencies {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[name] = black
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
