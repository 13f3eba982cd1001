package card

import (
	"fmt"
	"slices"
)

const (
	// TypeName is the element type dashboards reference.
	TypeName = "notion-travel-trip-card"
	// LegacyTypeName is accepted for dashboards written against the v2 name.
	LegacyTypeName = "notion-travel-trip-card-v2"
)

// Descriptor is the picker entry advertised for a card type.
type Descriptor struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Constructor builds a new unconfigured card.
type Constructor func(opts ...Option) *Card

// Registry maps card type names to constructors.
type Registry struct {
	ctors       map[string]Constructor
	descriptors []Descriptor
}

// NewRegistry returns a registry with the trip card bound under both names.
func NewRegistry() *Registry {
	r := &Registry{ctors: make(map[string]Constructor)}
	r.Register(Descriptor{
		Type:        TypeName,
		Name:        "Notion Travel Trip Card",
		Description: "Dashboard card for Notion-backed travel itineraries.",
	}, New)
	r.Register(Descriptor{
		Type:        LegacyTypeName,
		Name:        "Notion Travel Trip Card (Alias)",
		Description: "Backward-compatible alias for v2 dashboard references.",
	}, New)
	return r
}

// Register binds a type name. Registering an existing name is a no-op, so a
// name is only ever bound once.
func (r *Registry) Register(d Descriptor, ctor Constructor) {
	if _, ok := r.ctors[d.Type]; ok {
		return
	}
	r.ctors[d.Type] = ctor
	r.descriptors = append(r.descriptors, d)
}

// New constructs a card of the given type.
func (r *Registry) New(typeName string, opts ...Option) (*Card, error) {
	ctor, ok := r.ctors[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown card type %q", typeName)
	}
	return ctor(opts...), nil
}

// Types lists registered type names in registration order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d.Type)
	}
	return out
}

// Descriptors returns a copy of the picker entries.
func (r *Registry) Descriptors() []Descriptor {
	return slices.Clone(r.descriptors)
}
