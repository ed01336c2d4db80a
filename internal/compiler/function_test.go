package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tierprobe/internal/ir"
)

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestCompileFunctionBasic(t *testing.T) {
	v := compileString(t, `
		function: load: {
			op: "load"
			site: { kind: "load", key: "x" }
		}
	`)

	spec, err := CompileFunction(v.LookupPath(cue.ParsePath("function.load")))
	require.NoError(t, err)

	assert.Equal(t, ir.FunctionSpec{
		Name: "load",
		Op:   ir.SiteLoad,
		Site: ir.PropertySite{Kind: ir.SiteLoad, Key: "x"},
	}, *spec)
}

func TestCompileFunctionOpDefaultsToSiteKind(t *testing.T) {
	v := compileString(t, `function: store: site: { kind: "store", key: "x" }`)

	spec, err := CompileFunction(v.LookupPath(cue.ParsePath("function.store")))
	require.NoError(t, err)
	assert.Equal(t, ir.SiteStore, spec.Op)
}

func TestCompileFunctionMismatchedOpCompiles(t *testing.T) {
	v := compileString(t, `function: miswired: { op: "store", site: { kind: "load", key: "x" } }`)

	spec, err := CompileFunction(v.LookupPath(cue.ParsePath("function.miswired")))
	require.NoError(t, err)
	assert.Equal(t, ir.SiteStore, spec.Op)
	assert.Equal(t, ir.SiteLoad, spec.Site.Kind)
}

func TestCompileFunctionNormalizesKey(t *testing.T) {
	v := compileString(t, `function: f: site: { kind: "load", key: "cafe\u0301" }`)

	spec, err := CompileFunction(v.LookupPath(cue.ParsePath("function.f")))
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", spec.Site.Key)
}

func TestCompileFunctionErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing site", `function: f: { op: "load" }`, "site"},
		{"missing kind", `function: f: site: { key: "x" }`, "site.kind"},
		{"bad kind", `function: f: site: { kind: "call", key: "x" }`, "site.kind"},
		{"missing key", `function: f: site: { kind: "load" }`, "site.key"},
		{"empty key", `function: f: site: { kind: "load", key: "" }`, "site.key"},
		{"bad op", `function: f: { op: "call", site: { kind: "load", key: "x" } }`, "op"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := compileString(t, tt.src)
			_, err := CompileFunction(v.LookupPath(cue.ParsePath("function.f")))
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileFunctionNonStringKind(t *testing.T) {
	v := compileString(t, `function: f: site: { kind: 3, key: "x" }`)

	_, err := CompileFunction(v.LookupPath(cue.ParsePath("function.f")))
	assert.Error(t, err)
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "site", Message: "site is required"}
	assert.Equal(t, "site: site is required", err.Error())
}
