package aer

import (
	"fmt"
	"sort"
	"strings"
)

// Metadata is the contract for dataset identity and display data.
type Metadata struct {
	ID          string
	Name        string
	Description string
}

// Factory constructs a ready-to-preload dataset instance.
type Factory func() (Dataset, error)

// Registry stores dataset factories by stable identifier.
type Registry struct {
	items map[string]entry
}

type entry struct {
	meta Metadata
	new  Factory
}

// NewRegistry creates an empty dataset registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]entry)}
}

// ValidateMetadata checks required metadata fields and id format.
func ValidateMetadata(meta Metadata) error {
	id := strings.TrimSpace(meta.ID)
	name := strings.TrimSpace(meta.Name)
	desc := strings.TrimSpace(meta.Description)
	if id == "" || name == "" || desc == "" {
		return fmt.Errorf("%w: id, name, and description are required", ErrInvalidMetadata)
	}
	if !isValidID(id) {
		return fmt.Errorf("%w: invalid id format %q", ErrInvalidMetadata, id)
	}
	return nil
}

// Register adds a dataset factory to the registry.
func (r *Registry) Register(meta Metadata, factory Factory) error {
	if factory == nil {
		return ErrDatasetNil
	}
	if err := ValidateMetadata(meta); err != nil {
		return err
	}
	if _, ok := r.items[meta.ID]; ok {
		return ErrDatasetExists
	}
	r.items[meta.ID] = entry{meta: meta, new: factory}
	return nil
}

// Resolve constructs the dataset registered under id.
func (r *Registry) Resolve(id string) (Dataset, error) {
	e, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return e.new()
}

// Metadata returns the metadata registered under id.
func (r *Registry) Metadata(id string) (Metadata, bool) {
	e, ok := r.items[id]
	return e.meta, ok
}

// ListMetadata returns deterministic metadata ordering by id.
func (r *Registry) ListMetadata() []Metadata {
	list := make([]Metadata, 0, len(r.items))
	for _, e := range r.items {
		list = append(list, e.meta)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

func isValidID(id string) bool {
	if id == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(id); i++ {
		c := id[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if i == 0 || i == len(id)-1 {
			if isSep {
				return false
			}
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}
