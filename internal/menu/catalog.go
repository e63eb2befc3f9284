// Package menu loads menu catalogs from YAML and imports them through the
// admin menu endpoints.
package menu

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/forms"
)

// Catalog is a YAML menu file:
//
//	items:
//	  - name: Pancakes
//	    description: Stack of three with maple syrup
//	    price: 7.5
//	    category: Breakfast
type Catalog struct {
	Items []api.MenuItemInput `yaml:"items"`
}

// LoadCatalog reads and validates a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(bytes.NewReader(data))
}

// ParseCatalog decodes and validates a catalog. Unknown fields are rejected
// so a typo like "catgory:" fails loudly instead of importing an item
// without a category.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var catalog Catalog
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&catalog); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid catalog: items list is required and must be non-empty")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateCatalog(&catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &catalog, nil
}

func validateCatalog(c *Catalog) error {
	if len(c.Items) == 0 {
		return fmt.Errorf("items list is required and must be non-empty")
	}

	seen := make(map[string]int, len(c.Items))
	for i, item := range c.Items {
		cleaned, err := forms.ValidateMenuItem(item)
		if err != nil {
			return fmt.Errorf("items[%d] (%s): %w", i, item.Name, err)
		}
		if prev, dup := seen[cleaned.Name]; dup {
			return fmt.Errorf("items[%d]: duplicate name %q (first at items[%d])", i, cleaned.Name, prev)
		}
		seen[cleaned.Name] = i
		c.Items[i] = cleaned
	}
	return nil
}
