package stratum

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
)

// AttrValue is one fixed-size, typed attribute of a vertex or instance:
// a scalar or a 2/3/4-component vector of 32-bit float, unsigned or signed
// values. The closed set of variants is identified by the wgpu vertex format
// tag; the payload is stored as raw 32-bit words so values stay comparable
// and can key maps directly.
type AttrValue struct {
	format wgpu.VertexFormat
	bits   [4]uint32
}

func Float(v float32) AttrValue {
	return AttrValue{format: wgpu.VertexFormatFloat32, bits: [4]uint32{math.Float32bits(v)}}
}

func Float2(x, y float32) AttrValue {
	return AttrValue{
		format: wgpu.VertexFormatFloat32x2,
		bits:   [4]uint32{math.Float32bits(x), math.Float32bits(y)},
	}
}

func Float3(x, y, z float32) AttrValue {
	return AttrValue{
		format: wgpu.VertexFormatFloat32x3,
		bits:   [4]uint32{math.Float32bits(x), math.Float32bits(y), math.Float32bits(z)},
	}
}

func Float4(x, y, z, w float32) AttrValue {
	return AttrValue{
		format: wgpu.VertexFormatFloat32x4,
		bits:   [4]uint32{math.Float32bits(x), math.Float32bits(y), math.Float32bits(z), math.Float32bits(w)},
	}
}

func UInt(v uint32) AttrValue {
	return AttrValue{format: wgpu.VertexFormatUint32, bits: [4]uint32{v}}
}

func UInt2(x, y uint32) AttrValue {
	return AttrValue{format: wgpu.VertexFormatUint32x2, bits: [4]uint32{x, y}}
}

func UInt3(x, y, z uint32) AttrValue {
	return AttrValue{format: wgpu.VertexFormatUint32x3, bits: [4]uint32{x, y, z}}
}

func UInt4(x, y, z, w uint32) AttrValue {
	return AttrValue{format: wgpu.VertexFormatUint32x4, bits: [4]uint32{x, y, z, w}}
}

func Int(v int32) AttrValue {
	return AttrValue{format: wgpu.VertexFormatSint32, bits: [4]uint32{uint32(v)}}
}

func Int2(x, y int32) AttrValue {
	return AttrValue{format: wgpu.VertexFormatSint32x2, bits: [4]uint32{uint32(x), uint32(y)}}
}

func Int3(x, y, z int32) AttrValue {
	return AttrValue{format: wgpu.VertexFormatSint32x3, bits: [4]uint32{uint32(x), uint32(y), uint32(z)}}
}

func Int4(x, y, z, w int32) AttrValue {
	return AttrValue{format: wgpu.VertexFormatSint32x4, bits: [4]uint32{uint32(x), uint32(y), uint32(z), uint32(w)}}
}

// Format returns the wire format tag of this value.
func (a AttrValue) Format() wgpu.VertexFormat {
	return a.format
}

// Size returns the packed byte size of this value (4, 8, 12 or 16).
func (a AttrValue) Size() uint64 {
	return formatSize(a.format)
}

// components returns how many 32-bit words the variant carries.
func (a AttrValue) components() int {
	return int(formatSize(a.format) / 4)
}

// AppendBytes serializes the value in little-endian order, the byte order
// both wgpu and the packed buffer contract expect.
func (a AttrValue) AppendBytes(dst []byte) []byte {
	for i := 0; i < a.components(); i++ {
		dst = binary.LittleEndian.AppendUint32(dst, a.bits[i])
	}
	return dst
}

// Floats returns the payload reinterpreted as float32 components.
// Only meaningful for the Float variants.
func (a AttrValue) Floats() []float32 {
	out := make([]float32, a.components())
	for i := range out {
		out[i] = math.Float32frombits(a.bits[i])
	}
	return out
}

func formatSize(f wgpu.VertexFormat) uint64 {
	switch f {
	case wgpu.VertexFormatFloat32, wgpu.VertexFormatUint32, wgpu.VertexFormatSint32:
		return 4
	case wgpu.VertexFormatFloat32x2, wgpu.VertexFormatUint32x2, wgpu.VertexFormatSint32x2:
		return 8
	case wgpu.VertexFormatFloat32x3, wgpu.VertexFormatUint32x3, wgpu.VertexFormatSint32x3:
		return 12
	case wgpu.VertexFormatFloat32x4, wgpu.VertexFormatUint32x4, wgpu.VertexFormatSint32x4:
		return 16
	default:
		return 0
	}
}

// formatCode maps each supported format to a stable small integer, used by
// schema signatures. Unknown formats map to zero.
func formatCode(f wgpu.VertexFormat) byte {
	switch f {
	case wgpu.VertexFormatFloat32:
		return 1
	case wgpu.VertexFormatFloat32x2:
		return 2
	case wgpu.VertexFormatFloat32x3:
		return 3
	case wgpu.VertexFormatFloat32x4:
		return 4
	case wgpu.VertexFormatUint32:
		return 5
	case wgpu.VertexFormatUint32x2:
		return 6
	case wgpu.VertexFormatUint32x3:
		return 7
	case wgpu.VertexFormatUint32x4:
		return 8
	case wgpu.VertexFormatSint32:
		return 9
	case wgpu.VertexFormatSint32x2:
		return 10
	case wgpu.VertexFormatSint32x3:
		return 11
	case wgpu.VertexFormatSint32x4:
		return 12
	default:
		return 0
	}
}
