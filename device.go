package stratum

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Buffer is an opaque backend buffer handle owned by a mesh.
type Buffer interface {
	// Size returns the byte length the buffer was created with.
	Size() uint64
	// Release frees the backend resource. The handle is invalid afterwards.
	Release()
}

// Device abstracts the buffer side of a graphics backend. The core never
// holds a process-wide device; every Sync call takes one explicitly.
// WgpuDevice wraps a real wgpu device, MemoryDevice keeps plain byte slices
// for headless use and tests.
type Device interface {
	CreateBuffer(label string, contents []byte, usage wgpu.BufferUsage) (Buffer, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
}

// MemoryDevice is a Device that stores buffer contents in process memory.
type MemoryDevice struct{}

func NewMemoryDevice() *MemoryDevice { return &MemoryDevice{} }

// MemoryBuffer is the Buffer implementation of MemoryDevice. Its contents
// are readable, which the packing tests rely on.
type MemoryBuffer struct {
	label    string
	data     []byte
	released bool
}

func (b *MemoryBuffer) Size() uint64 { return uint64(len(b.data)) }
func (b *MemoryBuffer) Release()     { b.released = true }

// Label returns the label given at creation.
func (b *MemoryBuffer) Label() string { return b.label }

// Bytes returns the current contents.
func (b *MemoryBuffer) Bytes() []byte { return b.data }

// Released reports whether Release was called.
func (b *MemoryBuffer) Released() bool { return b.released }

func (d *MemoryDevice) CreateBuffer(label string, contents []byte, usage wgpu.BufferUsage) (Buffer, error) {
	data := make([]byte, len(contents))
	copy(data, contents)
	return &MemoryBuffer{label: label, data: data}, nil
}

func (d *MemoryDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	mb, ok := buf.(*MemoryBuffer)
	if !ok {
		return fmt.Errorf("memory device: foreign buffer %T", buf)
	}
	if mb.released {
		return fmt.Errorf("memory device: write to released buffer %q", mb.label)
	}
	if offset+uint64(len(data)) > uint64(len(mb.data)) {
		return fmt.Errorf("memory device: write past end of buffer %q", mb.label)
	}
	copy(mb.data[offset:], data)
	return nil
}
