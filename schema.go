package stratum

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// Position field names used in vertex schemas. The suffix is the packed
// component count.
const (
	positionField2 = "position2"
	positionField3 = "position3"
)

// Field is one named, typed, fixed-size entry of a schema.
type Field struct {
	Name   string
	Format wgpu.VertexFormat
	Size   uint64
}

// Schema is an ordered field list plus the total byte stride, derived once
// from a representative vertex or instance and immutable afterwards.
//
// Field order is deterministic: the position (vertices only) comes first,
// the remaining fields follow in lexicographic name order. Two meshes with
// the same attribute name set therefore share a byte-identical layout no
// matter the insertion history. No padding is added; consumers that need
// GPU alignment rules apply them when building their own input layouts.
type Schema struct {
	Fields []Field
	Stride uint64
}

// Field returns the entry with the given name, or ErrFieldNotFound.
func (s *Schema) Field(name string) (Field, error) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, nil
		}
	}
	return Field{}, fmt.Errorf("schema field %q: %w", name, ErrFieldNotFound)
}

// deriveVertexSchema builds the schema for a mesh's vertex stream from its
// first vertex. Position is always field 0.
func deriveVertexSchema(v *Vertex) *Schema {
	var fields []Field
	if v.Dimensions() == 2 {
		fields = append(fields, Field{Name: positionField2, Format: wgpu.VertexFormatFloat32x2, Size: 8})
	} else {
		fields = append(fields, Field{Name: positionField3, Format: wgpu.VertexFormatFloat32x3, Size: 12})
	}
	fields = append(fields, sortedAttrFields(v.attrs)...)
	return &Schema{Fields: fields, Stride: sumSizes(fields)}
}

// deriveInstanceSchema builds the schema for a mesh's instance stream from
// its first instance. Instances carry no position.
func deriveInstanceSchema(ins *Instance) *Schema {
	fields := sortedAttrFields(ins.attrs)
	return &Schema{Fields: fields, Stride: sumSizes(fields)}
}

func sortedAttrFields(attrs map[string]AttrValue) []Field {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		val := attrs[name]
		fields = append(fields, Field{Name: name, Format: val.Format(), Size: val.Size()})
	}
	return fields
}

func sumSizes(fields []Field) uint64 {
	var stride uint64
	for _, f := range fields {
		stride += f.Size
	}
	return stride
}

// LayoutSignature hashes a vertex/instance schema pair into a stable 64-bit
// value. Collaborators key pipeline caches on it: meshes with the same
// signature accept the same input layout. Either schema may be nil.
func LayoutSignature(vertex, instance *Schema) uint64 {
	h := fnv.New64a()
	if vertex != nil {
		for _, f := range vertex.Fields {
			h.Write([]byte(f.Name))
			h.Write([]byte{formatCode(f.Format)})
		}
	}
	h.Write([]byte{0})
	if instance != nil {
		for _, f := range instance.Fields {
			h.Write([]byte(f.Name))
			h.Write([]byte{formatCode(f.Format)})
		}
	}
	return h.Sum64()
}
