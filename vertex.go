package stratum

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Vertex is one element of a mesh: a homogeneous position plus a set of
// named, typed attributes. Attribute binding locations are assigned on first
// insertion, monotonically increasing and never reused within one vertex;
// location 0 is reserved for the position.
type Vertex struct {
	pos  [4]float32
	dims int

	attrs     map[string]AttrValue
	locations map[string]uint32
	nextLoc   uint32
}

// NewVertex builds a vertex from 1 to 4 position components. The dimension
// count is fixed for the vertex's lifetime and decides the packed position
// width (2 or 3 floats). Missing components default to 0, w to 1.
func NewVertex(coords ...float32) *Vertex {
	v := &Vertex{
		pos:       [4]float32{0, 0, 0, 1},
		dims:      len(coords),
		attrs:     make(map[string]AttrValue),
		locations: make(map[string]uint32),
		nextLoc:   1,
	}
	if v.dims < 1 {
		v.dims = 1
	}
	if v.dims > 4 {
		v.dims = 4
	}
	for i := 0; i < len(coords) && i < v.dims; i++ {
		v.pos[i] = coords[i]
	}
	return v
}

// Position returns the homogeneous position.
func (v *Vertex) Position() [4]float32 { return v.pos }

// Dimensions returns the position component count given at construction.
func (v *Vertex) Dimensions() int { return v.dims }

// Set inserts or overwrites a named attribute. First-time insertion assigns
// the next free binding location. Returns the vertex for chaining.
func (v *Vertex) Set(name string, value AttrValue) *Vertex {
	if _, ok := v.locations[name]; !ok {
		v.locations[name] = v.nextLoc
		v.nextLoc++
	}
	v.attrs[name] = value
	return v
}

// Update overwrites an existing attribute, keeping its recorded type.
// Returns ErrFieldNotFound for unknown names and ErrSchemaMismatch when the
// new value's variant differs from the stored one.
func (v *Vertex) Update(name string, value AttrValue) error {
	old, ok := v.attrs[name]
	if !ok {
		return fmt.Errorf("vertex attribute %q: %w", name, ErrFieldNotFound)
	}
	if old.Format() != value.Format() {
		return fmt.Errorf("vertex attribute %q holds %v, got %v: %w",
			name, old.Format(), value.Format(), ErrSchemaMismatch)
	}
	v.attrs[name] = value
	return nil
}

// Get returns a named attribute, or ErrFieldNotFound.
func (v *Vertex) Get(name string) (AttrValue, error) {
	val, ok := v.attrs[name]
	if !ok {
		return AttrValue{}, fmt.Errorf("vertex attribute %q: %w", name, ErrFieldNotFound)
	}
	return val, nil
}

// GetAs returns a named attribute after checking it holds the expected
// variant. A present field of another type yields ErrSchemaMismatch.
func (v *Vertex) GetAs(name string, format wgpu.VertexFormat) (AttrValue, error) {
	val, err := v.Get(name)
	if err != nil {
		return AttrValue{}, err
	}
	if val.Format() != format {
		return AttrValue{}, fmt.Errorf("vertex attribute %q holds %v, want %v: %w",
			name, val.Format(), format, ErrSchemaMismatch)
	}
	return val, nil
}

// Location returns the binding location assigned to a named attribute.
func (v *Vertex) Location(name string) (uint32, error) {
	loc, ok := v.locations[name]
	if !ok {
		return 0, fmt.Errorf("vertex attribute %q: %w", name, ErrFieldNotFound)
	}
	return loc, nil
}

// CreateInstance derives per-instance data from this vertex. Only the
// attribute and location maps are copied; the position never crosses over,
// instances carry per-instance data, not per-vertex position.
func (v *Vertex) CreateInstance() *Instance {
	return &Instance{
		attrs:     cloneAttrs(v.attrs),
		locations: cloneLocations(v.locations),
	}
}

// Clone returns a deep copy.
func (v *Vertex) Clone() *Vertex {
	return &Vertex{
		pos:       v.pos,
		dims:      v.dims,
		attrs:     cloneAttrs(v.attrs),
		locations: cloneLocations(v.locations),
		nextLoc:   v.nextLoc,
	}
}

// Equal reports full content equality: position bits plus attribute map.
// Binding locations do not participate, two vertices with the same data are
// equal regardless of insertion history.
func (v *Vertex) Equal(other *Vertex) bool {
	if v.dims != other.dims || len(v.attrs) != len(other.attrs) {
		return false
	}
	for i := range v.pos {
		if math.Float32bits(v.pos[i]) != math.Float32bits(other.pos[i]) {
			return false
		}
	}
	for name, a := range v.attrs {
		b, ok := other.attrs[name]
		if !ok || a != b {
			return false
		}
	}
	return true
}

// key returns the dedup content key: position bits plus the attribute bytes
// sorted by name. Comparable, so it can index the dedup map directly.
func (v *Vertex) key() string {
	var sb strings.Builder
	for i := 0; i < v.dims; i++ {
		bits := math.Float32bits(v.pos[i])
		sb.WriteByte(byte(bits))
		sb.WriteByte(byte(bits >> 8))
		sb.WriteByte(byte(bits >> 16))
		sb.WriteByte(byte(bits >> 24))
	}
	sb.WriteByte(0)
	sb.WriteString(attrsKey(v.attrs))
	return sb.String()
}

// Instance carries per-instance attribute data derived from a vertex.
// Created exclusively via Vertex.CreateInstance.
type Instance struct {
	attrs     map[string]AttrValue
	locations map[string]uint32
}

// Get returns a named attribute, or ErrFieldNotFound.
func (ins *Instance) Get(name string) (AttrValue, error) {
	val, ok := ins.attrs[name]
	if !ok {
		return AttrValue{}, fmt.Errorf("instance attribute %q: %w", name, ErrFieldNotFound)
	}
	return val, nil
}

// Location returns the binding location copied from the source vertex.
func (ins *Instance) Location(name string) (uint32, error) {
	loc, ok := ins.locations[name]
	if !ok {
		return 0, fmt.Errorf("instance attribute %q: %w", name, ErrFieldNotFound)
	}
	return loc, nil
}

// Clone returns a deep copy.
func (ins *Instance) Clone() *Instance {
	return &Instance{
		attrs:     cloneAttrs(ins.attrs),
		locations: cloneLocations(ins.locations),
	}
}

func cloneAttrs(in map[string]AttrValue) map[string]AttrValue {
	out := make(map[string]AttrValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneLocations(in map[string]uint32) map[string]uint32 {
	out := make(map[string]uint32, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func attrsKey(attrs map[string]AttrValue) string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte(0)
		sb.Write(attrs[name].AppendBytes(nil))
	}
	return sb.String()
}
