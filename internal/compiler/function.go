package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/tierprobe/internal/ir"
)

// CompileFunction parses a CUE value into a FunctionSpec.
//
// The CUE value should be the function struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`function: load: { site: { kind: "load", key: "x" } }`)
//	spec, err := CompileFunction(v.LookupPath(cue.ParsePath("function.load")))
//
// The site's key is NFC normalized. op defaults to site.kind; an op that
// disagrees with the site compiles, so the miswiring surfaces as
// INVALID_SITE_KIND on the first call. Validate reports it as a warning.
func CompileFunction(v cue.Value) (*ir.FunctionSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.FunctionSpec{}

	// Function name is the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	siteVal := v.LookupPath(cue.ParsePath("site"))
	if !siteVal.Exists() {
		return nil, &CompileError{
			Field:   "site",
			Message: "site is required",
			Pos:     v.Pos(),
		}
	}

	kind, err := requiredString(siteVal, "kind", "site.kind")
	if err != nil {
		return nil, err
	}
	siteKind, err := ir.ParseSiteKind(kind)
	if err != nil {
		return nil, &CompileError{
			Field:   "site.kind",
			Message: err.Error(),
			Pos:     siteVal.LookupPath(cue.ParsePath("kind")).Pos(),
		}
	}

	key, err := requiredString(siteVal, "key", "site.key")
	if err != nil {
		return nil, err
	}
	site, err := ir.NewPropertySite(siteKind, key)
	if err != nil {
		return nil, &CompileError{
			Field:   "site.key",
			Message: err.Error(),
			Pos:     siteVal.LookupPath(cue.ParsePath("key")).Pos(),
		}
	}
	spec.Site = site
	spec.Op = site.Kind

	// op is optional
	opVal := v.LookupPath(cue.ParsePath("op"))
	if opVal.Exists() {
		op, err := opVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Op, err = ir.ParseSiteKind(op)
		if err != nil {
			return nil, &CompileError{
				Field:   "op",
				Message: err.Error(),
				Pos:     opVal.Pos(),
			}
		}
	}

	return spec, nil
}

// requiredString looks up a string field under v.
func requiredString(v cue.Value, path, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}
