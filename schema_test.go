package stratum

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_PositionFirstThenLexicographic(t *testing.T) {
	v := NewVertex(0, 0, 0).
		Set("uv", Float2(0, 0)).
		Set("color", Float4(1, 1, 1, 1)).
		Set("bone", UInt(3))

	s := deriveVertexSchema(v)

	require.Len(t, s.Fields, 4)
	assert.Equal(t, positionField3, s.Fields[0].Name)
	assert.Equal(t, "bone", s.Fields[1].Name)
	assert.Equal(t, "color", s.Fields[2].Name)
	assert.Equal(t, "uv", s.Fields[3].Name)
	assert.Equal(t, uint64(12+4+16+8), s.Stride)
}

func TestSchema_DeterministicAcrossInsertionOrder(t *testing.T) {
	a := NewVertex(0, 0, 0).Set("uv", Float2(0, 0)).Set("normal", Float3(0, 1, 0))
	b := NewVertex(5, 5, 5).Set("normal", Float3(1, 0, 0)).Set("uv", Float2(1, 1))

	sa := deriveVertexSchema(a)
	sb := deriveVertexSchema(b)

	assert.Equal(t, sa.Fields, sb.Fields)
	assert.Equal(t, sa.Stride, sb.Stride)
}

func TestSchema_TwoDimensionalPosition(t *testing.T) {
	s := deriveVertexSchema(NewVertex(1, 2))

	require.Len(t, s.Fields, 1)
	assert.Equal(t, positionField2, s.Fields[0].Name)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, s.Fields[0].Format)
	assert.Equal(t, uint64(8), s.Stride)
}

func TestSchema_InstanceHasNoPosition(t *testing.T) {
	ins := NewVertex(9, 9, 9).Set("offset", Float3(0, 0, 0)).CreateInstance()
	s := deriveInstanceSchema(ins)

	require.Len(t, s.Fields, 1)
	assert.Equal(t, "offset", s.Fields[0].Name)
	assert.Equal(t, uint64(12), s.Stride)
}

func TestSchema_FieldLookup(t *testing.T) {
	s := deriveVertexSchema(NewVertex(0, 0).Set("uv", Float2(0, 0)))

	f, err := s.Field("uv")
	require.NoError(t, err)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, f.Format)

	_, err = s.Field("normal")
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestLayoutSignature(t *testing.T) {
	va := deriveVertexSchema(NewVertex(0, 0, 0).Set("uv", Float2(0, 0)))
	vb := deriveVertexSchema(NewVertex(1, 1, 1).Set("uv", Float2(1, 1)))
	vc := deriveVertexSchema(NewVertex(0, 0, 0).Set("normal", Float3(0, 1, 0)))

	// Same field set, same signature; values never participate.
	assert.Equal(t, LayoutSignature(va, nil), LayoutSignature(vb, nil))
	assert.NotEqual(t, LayoutSignature(va, nil), LayoutSignature(vc, nil))

	// The instance stream contributes on its side of the separator.
	ia := deriveInstanceSchema(NewVertex(0, 0).Set("tint", Float4(1, 1, 1, 1)).CreateInstance())
	assert.NotEqual(t, LayoutSignature(va, nil), LayoutSignature(va, ia))
	assert.NotEqual(t, LayoutSignature(va, ia), LayoutSignature(nil, ia))
}
