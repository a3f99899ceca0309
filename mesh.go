package stratum

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Mesh owns a vertex list, an instance list and everything derived from
// them: per-stream schemas, the deduplicated vertex byte buffer, the index
// array, the packed instance byte buffer and lazily created backend buffer
// handles.
//
// Vertices and instances are copied in; the mesh owns its copies. Schemas
// are derived from the first vertex/instance ever added and treated as
// immutable for the mesh's lifetime. Two independent dirty flags make Sync
// repack only the stream that actually changed.
//
// Mutating entry points acquire the write lock non-blockingly and return
// ErrLockContended instead of waiting, pushing retry policy to the caller.
type Mesh struct {
	mu  sync.RWMutex
	log Logger

	verts []*Vertex // insertion order, duplicates allowed
	insts []*Instance

	packedVerts []byte   // unique vertices packed by schema
	packedInsts []byte   // instances packed by schema, no dedup
	indices     []uint32 // one entry per original vertex

	schemaV *Schema
	schemaI *Schema

	dirtyV bool
	dirtyI bool

	gpu meshStreams
}

// meshStreams holds the backend buffer handles between Sync calls.
type meshStreams struct {
	vertex   Buffer
	index    Buffer
	instance Buffer // nil while the mesh has no instances
}

// MeshBuffers is the per-sync output contract to the GPU collaborator.
// Instance is nil when no instances were added; the collaborator builds its
// own input-layout description from the schema field lists.
type MeshBuffers struct {
	Vertex   Buffer
	Index    Buffer
	Instance Buffer

	VertexSchema   *Schema
	InstanceSchema *Schema
}

// DrawCounts tells the collaborator how much to draw. InstanceCount is 1
// when no instance buffer exists, meaning "draw once".
type DrawCounts struct {
	IndexCount    uint32
	InstanceCount uint32
}

func NewMesh() *Mesh {
	return &Mesh{log: NewNopLogger()}
}

// FromVertices builds a mesh from an initial vertex list.
func FromVertices(verts ...*Vertex) *Mesh {
	m := NewMesh()
	for _, v := range verts {
		m.verts = append(m.verts, v.Clone())
	}
	m.dirtyV = len(verts) > 0
	return m
}

// SetLogger replaces the mesh logger. A nil logger silences it.
func (m *Mesh) SetLogger(log Logger) {
	if log == nil {
		log = NewNopLogger()
	}
	m.log = log
}

// AddVertex appends one vertex and marks vertex data dirty.
func (m *Mesh) AddVertex(v *Vertex) error {
	if !m.mu.TryLock() {
		return fmt.Errorf("mesh add vertex: %w", ErrLockContended)
	}
	defer m.mu.Unlock()

	m.verts = append(m.verts, v.Clone())
	m.dirtyV = true
	return nil
}

// AddVertices appends vertices in order and marks vertex data dirty.
func (m *Mesh) AddVertices(verts ...*Vertex) error {
	if !m.mu.TryLock() {
		return fmt.Errorf("mesh add vertices: %w", ErrLockContended)
	}
	defer m.mu.Unlock()

	for _, v := range verts {
		m.verts = append(m.verts, v.Clone())
	}
	m.dirtyV = m.dirtyV || len(verts) > 0
	return nil
}

// AddInstance appends one instance and marks instance data dirty.
func (m *Mesh) AddInstance(ins *Instance) error {
	if !m.mu.TryLock() {
		return fmt.Errorf("mesh add instance: %w", ErrLockContended)
	}
	defer m.mu.Unlock()

	m.insts = append(m.insts, ins.Clone())
	m.dirtyI = true
	return nil
}

// AddInstances appends instances in order and marks instance data dirty.
func (m *Mesh) AddInstances(insts ...*Instance) error {
	if !m.mu.TryLock() {
		return fmt.Errorf("mesh add instances: %w", ErrLockContended)
	}
	defer m.mu.Unlock()

	for _, ins := range insts {
		m.insts = append(m.insts, ins.Clone())
	}
	m.dirtyI = m.dirtyI || len(insts) > 0
	return nil
}

// ClearInstances empties the instance list and marks instance data dirty.
func (m *Mesh) ClearInstances() error {
	if !m.mu.TryLock() {
		return fmt.Errorf("mesh clear instances: %w", ErrLockContended)
	}
	defer m.mu.Unlock()

	m.insts = m.insts[:0]
	m.dirtyI = true
	return nil
}

// VertexCount returns the original (possibly duplicate-containing) count.
func (m *Mesh) VertexCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.verts)
}

// InstanceCount returns the instance list length.
func (m *Mesh) InstanceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.insts)
}

// Schemas returns the derived vertex and instance schemas. Either is nil
// until the first Sync after the corresponding stream received data.
func (m *Mesh) Schemas() (vertex, instance *Schema) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.schemaV, m.schemaI
}

// Signature returns the layout signature of the current schema pair.
func (m *Mesh) Signature() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return LayoutSignature(m.schemaV, m.schemaI)
}

// PackedVertices returns a copy of the packed unique-vertex bytes.
func (m *Mesh) PackedVertices() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, len(m.packedVerts))
	copy(out, m.packedVerts)
	return out
}

// PackedInstances returns a copy of the packed instance bytes.
func (m *Mesh) PackedInstances() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, len(m.packedInsts))
	copy(out, m.packedInsts)
	return out
}

// Indices returns a copy of the index array (one entry per original vertex,
// values referencing the unique set).
func (m *Mesh) Indices() []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uint32, len(m.indices))
	copy(out, m.indices)
	return out
}

// Sync brings the backend buffers up to date and returns them with draw
// counts. Schema derivation happens first, then vertex packing, then
// instance packing. Buffers are recreated only when their packed byte
// length changed since the last sync; otherwise the dirty stream's bytes
// are written into the existing handle. A mesh with zero vertices is a
// valid no-op that returns nil buffers.
func (m *Mesh) Sync(dev Device) (*MeshBuffers, DrawCounts, error) {
	if !m.mu.TryLock() {
		return nil, DrawCounts{}, fmt.Errorf("mesh sync: %w", ErrLockContended)
	}
	defer m.mu.Unlock()

	if len(m.verts) == 0 {
		return nil, DrawCounts{}, nil
	}

	vRepacked, iRepacked, err := m.ensurePacked()
	if err != nil {
		return nil, DrawCounts{}, err
	}

	if err := m.ensureStream(dev, &m.gpu.vertex, "Mesh Vertex Buffer",
		m.packedVerts, wgpu.BufferUsageVertex, vRepacked); err != nil {
		return nil, DrawCounts{}, err
	}
	if err := m.ensureStream(dev, &m.gpu.index, "Mesh Index Buffer",
		indexBytes(m.indices), wgpu.BufferUsageIndex, vRepacked); err != nil {
		return nil, DrawCounts{}, err
	}
	if len(m.packedInsts) > 0 {
		if err := m.ensureStream(dev, &m.gpu.instance, "Mesh Instance Buffer",
			m.packedInsts, wgpu.BufferUsageVertex, iRepacked); err != nil {
			return nil, DrawCounts{}, err
		}
	} else if m.gpu.instance != nil {
		m.gpu.instance.Release()
		m.gpu.instance = nil
	}

	counts := DrawCounts{
		IndexCount:    uint32(len(m.indices)),
		InstanceCount: 1,
	}
	if m.gpu.instance != nil && m.schemaI != nil && m.schemaI.Stride > 0 {
		counts.InstanceCount = uint32(uint64(len(m.packedInsts)) / m.schemaI.Stride)
	}

	buffers := &MeshBuffers{
		Vertex:         m.gpu.vertex,
		Index:          m.gpu.index,
		Instance:       m.gpu.instance,
		VertexSchema:   m.schemaV,
		InstanceSchema: m.schemaI,
	}
	return buffers, counts, nil
}

// ensureStream creates, grows or updates one backend buffer. slot may hold
// nil; dirty means the packed bytes changed since the last sync.
func (m *Mesh) ensureStream(dev Device, slot *Buffer, label string, data []byte, usage wgpu.BufferUsage, dirty bool) error {
	if *slot != nil && (*slot).Size() == uint64(len(data)) {
		if !dirty {
			return nil
		}
		return dev.WriteBuffer(*slot, 0, data)
	}

	if *slot != nil {
		(*slot).Release()
		*slot = nil
	}
	buf, err := dev.CreateBuffer(label, data, usage)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	*slot = buf
	return nil
}

// ensurePacked derives missing schemas and repacks dirty streams. Reports
// which streams were repacked this call. Caller holds the write lock.
func (m *Mesh) ensurePacked() (vRepacked, iRepacked bool, err error) {
	if m.schemaV == nil {
		m.schemaV = deriveVertexSchema(m.verts[0])
		m.log.Debugf("mesh: derived vertex schema, %d fields, stride %d",
			len(m.schemaV.Fields), m.schemaV.Stride)
	}
	if m.schemaI == nil && len(m.insts) > 0 {
		m.schemaI = deriveInstanceSchema(m.insts[0])
		m.log.Debugf("mesh: derived instance schema, %d fields, stride %d",
			len(m.schemaI.Fields), m.schemaI.Stride)
	}

	if m.dirtyV {
		unique, indices := dedupVertices(m.verts)
		packed := make([]byte, 0, uint64(len(unique))*m.schemaV.Stride)
		for _, v := range unique {
			packed, err = packVertex(packed, v, m.schemaV)
			if err != nil {
				return false, false, err
			}
		}
		m.packedVerts = packed
		m.indices = indices
		m.dirtyV = false
		vRepacked = true
	}

	if m.dirtyI {
		var packed []byte
		if len(m.insts) > 0 {
			packed = make([]byte, 0, uint64(len(m.insts))*m.schemaI.Stride)
			for _, ins := range m.insts {
				packed, err = packInstance(packed, ins, m.schemaI)
				if err != nil {
					return vRepacked, false, err
				}
			}
		}
		m.packedInsts = packed
		m.dirtyI = false
		iRepacked = true
	}

	return vRepacked, iRepacked, nil
}

// dedupVertices collapses content-identical vertices, preserving first-seen
// order in the unique set, and builds the index array in original order.
func dedupVertices(verts []*Vertex) (unique []*Vertex, indices []uint32) {
	seen := make(map[string]uint32, len(verts))
	indices = make([]uint32, 0, len(verts))
	for _, v := range verts {
		key := v.key()
		idx, ok := seen[key]
		if !ok {
			idx = uint32(len(unique))
			seen[key] = idx
			unique = append(unique, v)
		}
		indices = append(indices, idx)
	}
	return unique, indices
}

// packVertex appends one vertex's bytes per the schema. Fields absent from
// the vertex are zero-filled; a present field of another type is an error,
// values are never coerced.
func packVertex(dst []byte, v *Vertex, schema *Schema) ([]byte, error) {
	for _, f := range schema.Fields {
		switch f.Name {
		case positionField2:
			if v.Dimensions() == 2 {
				dst = appendPosition(dst, v, 2)
			} else {
				dst = appendZeros(dst, f.Size)
			}
		case positionField3:
			if v.Dimensions() != 2 {
				dst = appendPosition(dst, v, 3)
			} else {
				dst = appendZeros(dst, f.Size)
			}
		default:
			val, ok := v.attrs[f.Name]
			if !ok {
				dst = appendZeros(dst, f.Size)
				continue
			}
			if val.Format() != f.Format {
				return nil, fmt.Errorf("pack vertex field %q holds %v, schema wants %v: %w",
					f.Name, val.Format(), f.Format, ErrSchemaMismatch)
			}
			dst = val.AppendBytes(dst)
		}
	}
	return dst, nil
}

func packInstance(dst []byte, ins *Instance, schema *Schema) ([]byte, error) {
	for _, f := range schema.Fields {
		val, ok := ins.attrs[f.Name]
		if !ok {
			dst = appendZeros(dst, f.Size)
			continue
		}
		if val.Format() != f.Format {
			return nil, fmt.Errorf("pack instance field %q holds %v, schema wants %v: %w",
				f.Name, val.Format(), f.Format, ErrSchemaMismatch)
		}
		dst = val.AppendBytes(dst)
	}
	return dst, nil
}

func appendPosition(dst []byte, v *Vertex, comps int) []byte {
	pos := v.Position()
	for i := 0; i < comps; i++ {
		dst = Float(pos[i]).AppendBytes(dst)
	}
	return dst
}

func appendZeros(dst []byte, n uint64) []byte {
	return append(dst, make([]byte, n)...)
}

func indexBytes(indices []uint32) []byte {
	return wgpu.ToBytes(indices)
}
