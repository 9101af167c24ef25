package clips

import (
	"fmt"
	"sort"
	"sync"
)

// Well-known clip identifiers used by the behavior controllers.
const (
	ClipWalk     = "walk"
	ClipIdleA    = "idle_01"
	ClipIdleB    = "idle_02"
	ClipGreeting = "standing_greeting"
)

// Catalog is a thread-safe collection of loaded clips keyed by name.
type Catalog struct {
	mu    sync.RWMutex
	clips map[string]*Clip
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{clips: make(map[string]*Clip)}
}

// LoadBuiltIn loads all embedded clips into the catalog.
func (c *Catalog) LoadBuiltIn() error {
	names, err := ListEmbedded()
	if err != nil {
		return err
	}

	for _, name := range names {
		clip, err := LoadEmbedded(name)
		if err != nil {
			return fmt.Errorf("failed to load clip %q: %w", name, err)
		}
		c.Register(clip)
	}
	return nil
}

// LoadCustomDir loads clips from a directory on disk.
func (c *Catalog) LoadCustomDir(dir string) error {
	loaded, err := LoadFromDirectory(dir)
	if err != nil {
		return err
	}
	for _, clip := range loaded {
		c.Register(clip)
	}
	return nil
}

// Register adds a clip, replacing any previous clip of the same name.
func (c *Catalog) Register(clip *Clip) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clips[clip.Name] = clip
}

// Get retrieves a clip by name.
func (c *Catalog) Get(name string) (*Clip, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clip, ok := c.clips[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return clip, nil
}

// List returns all registered clip names, sorted.
func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.clips))
	for name := range c.clips {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered clips.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clips)
}
