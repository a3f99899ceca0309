package stratum

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// WgpuDevice adapts a wgpu device/queue pair to the Device interface.
// The caller keeps ownership of both; the core only creates and writes
// buffers through them.
type WgpuDevice struct {
	device *wgpu.Device
	queue  *wgpu.Queue
}

func NewWgpuDevice(device *wgpu.Device, queue *wgpu.Queue) *WgpuDevice {
	return &WgpuDevice{device: device, queue: queue}
}

type wgpuBuffer struct {
	buf  *wgpu.Buffer
	size uint64
}

func (b *wgpuBuffer) Size() uint64 { return b.size }
func (b *wgpuBuffer) Release()     { b.buf.Release() }

// Raw returns the underlying wgpu buffer for render-pass recording.
func (b *wgpuBuffer) Raw() *wgpu.Buffer { return b.buf }

func (d *WgpuDevice) CreateBuffer(label string, contents []byte, usage wgpu.BufferUsage) (Buffer, error) {
	buf, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: contents,
		Usage:    usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buf: buf, size: uint64(len(contents))}, nil
}

func (d *WgpuDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("wgpu device: foreign buffer %T", buf)
	}
	return d.queue.WriteBuffer(wb.buf, offset, data)
}

// WgpuBuffer unwraps a Buffer created by a WgpuDevice, for collaborators
// that record draw calls. Returns nil for buffers from other devices.
func WgpuBuffer(buf Buffer) *wgpu.Buffer {
	if wb, ok := buf.(*wgpuBuffer); ok {
		return wb.Raw()
	}
	return nil
}

// VertexLayouts builds wgpu input layouts from a schema pair. The core's
// output contract is the schemas themselves; this helper lives on the wgpu
// side as a convenience for collaborators building pipelines. Instance
// attributes continue the shader-location sequence after the vertex ones.
func VertexLayouts(vertex, instance *Schema) []wgpu.VertexBufferLayout {
	if vertex == nil {
		return nil
	}
	layouts := []wgpu.VertexBufferLayout{
		schemaLayout(vertex, 0, wgpu.VertexStepModeVertex),
	}
	if instance != nil {
		layouts = append(layouts,
			schemaLayout(instance, uint32(len(vertex.Fields)), wgpu.VertexStepModeInstance))
	}
	return layouts
}

func schemaLayout(s *Schema, baseLocation uint32, step wgpu.VertexStepMode) wgpu.VertexBufferLayout {
	var attributes []wgpu.VertexAttribute
	var offset uint64
	for i, f := range s.Fields {
		attributes = append(attributes, wgpu.VertexAttribute{
			ShaderLocation: baseLocation + uint32(i),
			Offset:         offset,
			Format:         f.Format,
		})
		offset += f.Size
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    step,
		Attributes:  attributes,
	}
}
