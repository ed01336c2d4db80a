package ir

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SiteKind is the access a property site performs.
type SiteKind string

const (
	// SiteLoad reads o[key].
	SiteLoad SiteKind = "load"

	// SiteStore writes o[key].
	SiteStore SiteKind = "store"
)

// ParseSiteKind converts a spec or scenario string into a SiteKind.
func ParseSiteKind(s string) (SiteKind, error) {
	switch SiteKind(s) {
	case SiteLoad, SiteStore:
		return SiteKind(s), nil
	}
	return "", fmt.Errorf("unknown site kind %q: must be %q or %q", s, SiteLoad, SiteStore)
}

// PropertySite describes one load or store call site.
// Created once per function and immutable after creation.
type PropertySite struct {
	Kind SiteKind `json:"kind"`
	Key  string   `json:"key"`
}

// NewPropertySite validates kind and key and returns the site.
// The key is NFC normalized so that visually identical keys compare equal.
func NewPropertySite(kind SiteKind, key string) (PropertySite, error) {
	if _, err := ParseSiteKind(string(kind)); err != nil {
		return PropertySite{}, err
	}
	if key == "" {
		return PropertySite{}, fmt.Errorf("property key is required")
	}
	return PropertySite{Kind: kind, Key: norm.NFC.String(key)}, nil
}

// String renders the site as "load x" / "store x".
func (s PropertySite) String() string {
	return string(s.Kind) + " " + s.Key
}

// Operand is the receiver passed to a property-site function.
// The zero value is the absent operand (argument omitted).
type Operand struct {
	present bool
	object  IRObject
}

// Present wraps an object as a supplied operand.
// Top-level keys are NFC normalized, matching NewPropertySite, so the body
// and the recorded shape see the same property names. An object that is
// already normalized is used as is; otherwise a normalized copy is taken.
func Present(obj IRObject) Operand {
	if obj == nil {
		obj = IRObject{}
	}
	return Operand{present: true, object: normalizeKeys(obj)}
}

// normalizeKeys returns obj with NFC keys. When two keys normalize to the
// same name, the one already in NFC wins.
func normalizeKeys(obj IRObject) IRObject {
	clean := true
	for k := range obj {
		if !norm.NFC.IsNormalString(k) {
			clean = false
			break
		}
	}
	if clean {
		return obj
	}

	out := make(IRObject, len(obj))
	keys := make([]string, 0, len(obj))
	for k := range obj {
		if !norm.NFC.IsNormalString(k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		out[norm.NFC.String(k)] = obj[k]
	}
	for k, v := range obj {
		if norm.NFC.IsNormalString(k) {
			out[k] = v
		}
	}
	return out
}

// Absent is the operand of a call that omitted its argument.
func Absent() Operand {
	return Operand{}
}

// IsPresent reports whether the call supplied an operand.
func (o Operand) IsPresent() bool {
	return o.present
}

// Object returns the operand object, or nil when absent.
func (o Operand) Object() IRObject {
	return o.object
}

// Shape returns the operand's shape. Absent operands have no shape.
func (o Operand) Shape() (Shape, bool) {
	if !o.present {
		return "", false
	}
	return ShapeOf(o.object), true
}

// Shape identifies an object layout: its property names in canonical order.
// Values do not participate, so {x:1} and {x:2} share one shape.
type Shape string

// ShapeOf computes the shape of an object.
func ShapeOf(obj IRObject) Shape {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, norm.NFC.String(k))
	}
	sortKeysRFC8785(keys)
	return Shape("{" + strings.Join(keys, ",") + "}")
}

func sortKeysRFC8785(keys []string) {
	slices.SortFunc(keys, compareKeysRFC8785)
}
