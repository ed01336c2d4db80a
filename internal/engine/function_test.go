package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tierprobe/internal/ic"
	"github.com/roach88/tierprobe/internal/ir"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(ir.DefaultPolicy())
	require.NoError(t, err)
	return e
}

func register(t *testing.T, e *Engine, name string, op, site ir.SiteKind) *Function {
	t.Helper()
	fn, err := e.Register(ir.FunctionSpec{
		Name: name,
		Op:   op,
		Site: ir.PropertySite{Kind: site, Key: "x"},
	})
	require.NoError(t, err)
	return fn
}

func TestExecuteLoad(t *testing.T) {
	fn := register(t, newEngine(t), "load", ir.SiteLoad, ir.SiteLoad)

	v, err := fn.Execute(ir.Present(ir.O("x", ir.IRInt(7))))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(7), v)

	v, err = fn.Execute(ir.Present(ir.O("y", ir.IRInt(7))))
	require.NoError(t, err)
	assert.Equal(t, ir.IRNull{}, v, "missing property loads as null")

	assert.Equal(t, CallStats{Calls: 2}, fn.Stats())
	assert.Equal(t, ic.Polymorphic, fn.Feedback().Kind)
}

func TestExecuteStoreDoesNotMutateOperand(t *testing.T) {
	fn := register(t, newEngine(t), "store", ir.SiteStore, ir.SiteStore)

	obj := ir.O("x", ir.IRInt(3))
	v, err := fn.Execute(ir.Present(obj))
	require.NoError(t, err)
	assert.Equal(t, ir.StoreValue, v)
	assert.Equal(t, ir.IRInt(3), obj["x"])
	assert.Equal(t, ir.IRInt(-1), fn.LastWritten()["x"])
	assert.Equal(t, ic.Monomorphic, fn.Feedback().Kind)
}

func TestExecuteDecomposedOperandKey(t *testing.T) {
	e := newEngine(t)
	site := ir.PropertySite{Kind: ir.SiteLoad, Key: "\u00e9"}
	load, err := e.Register(ir.FunctionSpec{Name: "load", Op: ir.SiteLoad, Site: site})
	require.NoError(t, err)
	site.Kind = ir.SiteStore
	store, err := e.Register(ir.FunctionSpec{Name: "store", Op: ir.SiteStore, Site: site})
	require.NoError(t, err)

	decomposed := ir.IRObject{"e\u0301": ir.IRInt(7)}

	v, err := load.Execute(ir.Present(decomposed))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(7), v)
	assert.Equal(t, "monomorphic({\u00e9})", load.Feedback().String())

	_, err = store.Execute(ir.Present(decomposed))
	require.NoError(t, err)
	written := store.LastWritten()
	assert.Equal(t, ir.IRObject{"\u00e9": ir.StoreValue}, written)
	assert.Equal(t, ir.Shape("{\u00e9}"), ir.ShapeOf(written))
	assert.Equal(t, ir.IRInt(7), decomposed["e\u0301"], "operand must not be mutated")
}

func TestExecuteMissingOperand(t *testing.T) {
	for _, kind := range []ir.SiteKind{ir.SiteLoad, ir.SiteStore} {
		t.Run(string(kind), func(t *testing.T) {
			fn := register(t, newEngine(t), string(kind), kind, kind)
			_, err := fn.Execute(ir.Present(ir.O("x", ir.IRInt(1))))
			require.NoError(t, err)
			before := fn.Feedback()

			_, err = fn.Execute(ir.Absent())
			require.Error(t, err)
			assert.True(t, IsMissingOperand(err))
			assert.Contains(t, err.Error(), "properties of undefined")
			assert.Contains(t, err.Error(), "'x'")

			assert.Equal(t, before, fn.Feedback())
			assert.Equal(t, CallStats{Calls: 2, Raised: 1}, fn.Stats())
		})
	}
}

func TestExecuteInvalidSiteKindBeforeOperandCheck(t *testing.T) {
	fn := register(t, newEngine(t), "miswired", ir.SiteStore, ir.SiteLoad)

	for _, op := range []ir.Operand{ir.Present(ir.O("x", ir.IRInt(1))), ir.Absent()} {
		_, err := fn.Execute(op)
		require.Error(t, err)
		assert.ErrorIs(t, err, ic.ErrInvalidSiteKind)
		assert.False(t, IsMissingOperand(err))
	}
	assert.Equal(t, CallStats{}, fn.Stats())
	assert.Equal(t, ic.Uninitialized, fn.Feedback().Kind)
	assert.Equal(t, ir.TierUnoptimized, fn.Machine().Tier())
}
