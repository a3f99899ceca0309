package stratum

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quadVertices returns the six vertices of a two-triangle quad, with the
// shared corners repeated the way a caller naturally emits them.
func quadVertices() []*Vertex {
	v0 := NewVertex(0, 0, 0).Set("uv", Float2(0, 0))
	v1 := NewVertex(1, 0, 0).Set("uv", Float2(1, 0))
	v2 := NewVertex(1, 1, 0).Set("uv", Float2(1, 1))
	v3 := NewVertex(0, 1, 0).Set("uv", Float2(0, 1))
	return []*Vertex{v0, v1, v2, v0.Clone(), v2.Clone(), v3}
}

func TestMesh_DedupOnSync(t *testing.T) {
	m := FromVertices(quadVertices()...)
	dev := NewMemoryDevice()

	buffers, counts, err := m.Sync(dev)
	require.NoError(t, err)
	require.NotNil(t, buffers)

	schema, _ := m.Schemas()
	require.NotNil(t, schema)
	assert.Equal(t, uint64(12+8), schema.Stride)

	// Six in, four unique out, six indices all referencing the unique set.
	assert.Equal(t, 6, m.VertexCount())
	assert.Equal(t, uint64(4)*schema.Stride, buffers.Vertex.Size())
	assert.Equal(t, uint32(6), counts.IndexCount)
	assert.Equal(t, uint32(1), counts.InstanceCount)

	indices := m.Indices()
	require.Len(t, indices, 6)
	for _, idx := range indices {
		assert.Less(t, idx, uint32(4))
	}
	// First-seen order: the repeated corners point back at slots 0 and 2.
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, indices)

	// Every index slot's packed bytes match the vertex it stands for.
	packed := m.PackedVertices()
	verts := quadVertices()
	for i, idx := range indices {
		want, err := packVertex(nil, verts[i], schema)
		require.NoError(t, err)
		got := packed[uint64(idx)*schema.Stride : uint64(idx+1)*schema.Stride]
		assert.True(t, bytes.Equal(want, got), "index %d maps to wrong unique vertex", i)
	}
}

func TestMesh_SyncIsIdempotent(t *testing.T) {
	m := FromVertices(quadVertices()...)
	dev := NewMemoryDevice()

	first, _, err := m.Sync(dev)
	require.NoError(t, err)
	firstBytes := append([]byte(nil), first.Vertex.(*MemoryBuffer).Bytes()...)

	second, _, err := m.Sync(dev)
	require.NoError(t, err)

	// No repack, no recreation, no schema re-derivation.
	assert.Same(t, first.Vertex, second.Vertex)
	assert.Same(t, first.Index, second.Index)
	assert.Same(t, first.VertexSchema, second.VertexSchema)
	assert.True(t, bytes.Equal(firstBytes, second.Vertex.(*MemoryBuffer).Bytes()))
}

func TestMesh_SparseFieldsZeroFilled(t *testing.T) {
	full := NewVertex(0, 0, 0).Set("color", Float4(1, 2, 3, 4))
	bare := NewVertex(1, 0, 0)

	m := FromVertices(full, bare)
	_, _, err := m.Sync(NewMemoryDevice())
	require.NoError(t, err)

	schema, _ := m.Schemas()
	colorField, err := schema.Field("color")
	require.NoError(t, err)
	assert.Equal(t, uint64(16), colorField.Size)

	// The bare vertex occupies the second slot; its color bytes are zero.
	packed := m.PackedVertices()
	require.Equal(t, uint64(2)*schema.Stride, uint64(len(packed)))
	colorBytes := packed[schema.Stride+12 : schema.Stride+12+16]
	assert.Equal(t, make([]byte, 16), colorBytes)
}

func TestMesh_PackRejectsTypeMismatch(t *testing.T) {
	a := NewVertex(0, 0, 0).Set("uv", Float2(0, 0))
	b := NewVertex(1, 0, 0).Set("uv", Float3(0, 0, 0)) // wrong variant

	m := FromVertices(a, b)
	_, _, err := m.Sync(NewMemoryDevice())
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestMesh_EmptySyncIsNoOp(t *testing.T) {
	m := NewMesh()

	buffers, counts, err := m.Sync(NewMemoryDevice())
	require.NoError(t, err)
	assert.Nil(t, buffers)
	assert.Equal(t, DrawCounts{}, counts)

	vertSchema, instSchema := m.Schemas()
	assert.Nil(t, vertSchema)
	assert.Nil(t, instSchema)
}

func TestMesh_TwoDimensionalPositionPacking(t *testing.T) {
	m := FromVertices(NewVertex(1, 2))
	_, _, err := m.Sync(NewMemoryDevice())
	require.NoError(t, err)

	want := Float(1).AppendBytes(nil)
	want = Float(2).AppendBytes(want)
	assert.Equal(t, want, m.PackedVertices())
}

func TestMesh_Instances(t *testing.T) {
	m := FromVertices(quadVertices()...)
	dev := NewMemoryDevice()

	a := NewVertex(0, 0, 0).Set("offset", Float3(2, 0, 0)).CreateInstance()
	b := NewVertex(0, 0, 0).Set("offset", Float3(0, 2, 0)).CreateInstance()

	require.NoError(t, m.AddInstances(a, b))

	buffers, counts, err := m.Sync(dev)
	require.NoError(t, err)
	require.NotNil(t, buffers.Instance)
	assert.Equal(t, uint32(2), counts.InstanceCount)

	_, instSchema := m.Schemas()
	require.NotNil(t, instSchema)
	assert.Equal(t, uint64(12), instSchema.Stride)
	assert.Equal(t, uint64(24), buffers.Instance.Size())

	// Clearing drops the buffer and the draw count falls back to 1.
	require.NoError(t, m.ClearInstances())
	buffers, counts, err = m.Sync(dev)
	require.NoError(t, err)
	assert.Nil(t, buffers.Instance)
	assert.Equal(t, uint32(1), counts.InstanceCount)
}

func TestMesh_InstanceUpdateWritesInPlace(t *testing.T) {
	m := FromVertices(NewVertex(0, 0, 0))
	dev := NewMemoryDevice()

	proto := NewVertex(0, 0, 0).Set("tint", Float4(1, 0, 0, 1))
	require.NoError(t, m.AddInstance(proto.CreateInstance()))

	first, _, err := m.Sync(dev)
	require.NoError(t, err)

	// Same instance count, same stride: the handle survives, bytes change.
	require.NoError(t, m.ClearInstances())
	proto2 := NewVertex(0, 0, 0).Set("tint", Float4(0, 1, 0, 1))
	require.NoError(t, m.AddInstance(proto2.CreateInstance()))

	second, _, err := m.Sync(dev)
	require.NoError(t, err)
	assert.Same(t, first.Instance, second.Instance)
	assert.Equal(t, Float4(0, 1, 0, 1).AppendBytes(nil), second.Instance.(*MemoryBuffer).Bytes())
}

func TestMesh_VertexGrowthRecreatesBuffer(t *testing.T) {
	m := FromVertices(NewVertex(0, 0, 0), NewVertex(1, 0, 0))
	dev := NewMemoryDevice()

	first, _, err := m.Sync(dev)
	require.NoError(t, err)

	require.NoError(t, m.AddVertex(NewVertex(0, 1, 0)))

	second, counts, err := m.Sync(dev)
	require.NoError(t, err)
	assert.NotSame(t, first.Vertex, second.Vertex)
	assert.True(t, first.Vertex.(*MemoryBuffer).Released())
	assert.True(t, first.Index.(*MemoryBuffer).Released())
	assert.Equal(t, uint32(3), counts.IndexCount)
	assert.Equal(t, uint64(36), second.Vertex.Size())
}

func TestMesh_LockContention(t *testing.T) {
	m := NewMesh()
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.AddVertex(NewVertex(0, 0))
	assert.ErrorIs(t, err, ErrLockContended)

	_, _, err = m.Sync(NewMemoryDevice())
	assert.ErrorIs(t, err, ErrLockContended)
}
