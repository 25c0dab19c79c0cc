// internal/permission/codec.go
package permission

import "encoding/json"

// Map is the persisted form: capability key to flag. Absent keys are false.
type Map map[string]bool

// Set is a selection of capability keys.
type Set map[Key]struct{}

// NewSet builds a Set from keys.
func NewSet(keys ...Key) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Encode emits every catalog key, true iff it is selected. Keys selected but
// absent from the catalog are not emitted.
func Encode(selected Set, catalog Catalog) Map {
	out := make(Map, len(catalog))
	for _, d := range catalog {
		if d == nil {
			continue
		}
		out[string(d.Key)] = selected.Has(d.Key)
	}
	return out
}

// Decode returns the enabled descriptors in catalog order. Keys unknown to the
// catalog are dropped; catalog keys missing from m count as false.
func Decode(m Map, catalog Catalog) []Descriptor {
	out := make([]Descriptor, 0, len(catalog))
	for _, d := range catalog {
		if d == nil {
			continue
		}
		if m[string(d.Key)] {
			out = append(out, *d)
		}
	}
	return out
}

// EncodeDescriptors encodes a decoded list back to the persisted form.
func EncodeDescriptors(list []Descriptor, catalog Catalog) Map {
	return Encode(NewSet(Keys(list)...), catalog)
}

// Normalize is Encode(Decode(m)): the full catalog map with m's values for
// known keys and nothing else.
func Normalize(m Map, catalog Catalog) Map {
	return EncodeDescriptors(Decode(m, catalog), catalog)
}

// Keys extracts the keys of a descriptor list, preserving order.
func Keys(list []Descriptor) []Key {
	keys := make([]Key, len(list))
	for i, d := range list {
		keys[i] = d.Key
	}
	return keys
}

// ParseMap decodes a persisted JSON permission object. It never fails:
// malformed input yields an empty map and only literal true values are kept.
func ParseMap(raw []byte) Map {
	var loose map[string]interface{}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return Map{}
	}
	return FromLoose(loose)
}

// FromLoose converts an untyped map (job variables, decoded JSON) the same way
// ParseMap does.
func FromLoose(loose map[string]interface{}) Map {
	out := Map{}
	for k, v := range loose {
		if b, ok := v.(bool); ok && b {
			out[k] = true
		}
	}
	return out
}
