package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// toolFile is the on-disk YAML shape for extra tool descriptors.
type toolFile struct {
	Tools []models.ToolDescriptor `yaml:"tools"`
}

// LoadFile registers the descriptors from a single YAML file.
// Duplicate names are an error: files extend the catalog, never replace it.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tool file: %w", err)
	}

	var tf toolFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("parse tool file %s: %w", path, err)
	}

	for i := range tf.Tools {
		if err := c.Register(&tf.Tools[i]); err != nil {
			return fmt.Errorf("register tool from %s: %w", path, err)
		}
	}

	if err := c.CheckAcyclic(); err != nil {
		return fmt.Errorf("tool file %s: %w", path, err)
	}
	return nil
}

// LoadDir registers descriptors from every *.yaml file in dir, in sorted
// order so registration is deterministic. A missing directory is not an
// error: extra tool files are optional.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read tool dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := c.LoadFile(path); err != nil {
			return err
		}
	}
	return nil
}
