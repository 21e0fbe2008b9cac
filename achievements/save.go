// Package achievements answers questions about a decoded profile save
// that the game itself never surfaces: overall progress summaries,
// per-company achievement status, and job-market reports.
package achievements

import (
	"fmt"

	"github.com/calzoneman/siirs/sii"
)

// Save indexes a decoded document by unit ID and by unit class name.
// The document stays the owner of the instances; the index only holds
// references and is read-only after construction.
type Save struct {
	doc    *sii.Document
	byID   map[string]*sii.Instance
	byName map[string][]*sii.Instance
}

func NewSave(doc *sii.Document) *Save {
	s := &Save{
		doc:    doc,
		byID:   make(map[string]*sii.Instance, len(doc.Instances)),
		byName: make(map[string][]*sii.Instance),
	}
	for _, inst := range doc.Instances {
		s.byID[inst.ID.String()] = inst
		s.byName[inst.Name] = append(s.byName[inst.Name], inst)
	}
	return s
}

// ByID resolves a unit reference. This is where link-typed field values
// get dereferenced, on demand and never during decode.
func (s *Save) ByID(id sii.ID) (*sii.Instance, bool) {
	inst, ok := s.byID[id.String()]
	return inst, ok
}

// Named returns all units of one class, in document order.
func (s *Save) Named(name string) []*sii.Instance {
	return s.byName[name]
}

// SingleNamed returns the one unit of a class that saves contain exactly
// once (economy, delivery_log, ...).
func (s *Save) SingleNamed(name string) (*sii.Instance, error) {
	units := s.byName[name]
	if len(units) == 0 {
		return nil, fmt.Errorf("save has no %q unit", name)
	}
	return units[0], nil
}
