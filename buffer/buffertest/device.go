// Package buffertest provides a host-memory implementation of buffer.Device, so that code built on
// dynamic buffers can be tested without a GPU.
package buffertest

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/helpers/buffer"
	"github.com/vkngwrapper/arsenal/helpers/garbage"
	"github.com/vkngwrapper/arsenal/helpers/serial"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// Range is a flushed or invalidated byte range
type Range struct {
	Offset int
	Size   int
}

// Device allocates buffers out of host memory. Serials are driven by the embedded Counter and
// released buffers are held by the embedded Collector until Cleanup is called.
type Device struct {
	*serial.Counter
	*garbage.Collector

	AtomSize    int
	Constrained bool
	// HostCoherent controls whether host-visible buffers report coherent memory
	HostCoherent bool
	// FailAllocations causes AllocateBuffer to fail with out-of-device-memory
	FailAllocations bool

	Allocated []*Memory
}

var _ buffer.Device = &Device{}

func NewDevice(logger *slog.Logger) *Device {
	return &Device{
		Counter:   serial.NewCounter(false),
		Collector: garbage.NewCollector(logger, false),
		AtomSize:  1,
	}
}

func (d *Device) NonCoherentAtomSize() int { return d.AtomSize }

func (d *Device) MemoryConstrained() bool { return d.Constrained }

func (d *Device) AllocateBuffer(size int, usage core1_0.BufferUsageFlags, requiredProperties core1_0.MemoryPropertyFlags) (buffer.Memory, common.VkResult, error) {
	if d.FailAllocations {
		return nil, core1_0.VKErrorOutOfDeviceMemory, core1_0.VKErrorOutOfDeviceMemory.ToError()
	}

	properties := requiredProperties
	if properties&core1_0.MemoryPropertyHostVisible != 0 && d.HostCoherent {
		properties |= core1_0.MemoryPropertyHostCoherent
	}

	memory := &Memory{
		data:       make([]byte, size),
		usage:      usage,
		properties: properties,
	}
	d.Allocated = append(d.Allocated, memory)

	return memory, core1_0.VKSuccess, nil
}

// Retire submits the current serial and marks it complete, then destroys everything released up
// to that point
func (d *Device) Retire() serial.Serial {
	submitted := d.Submit()
	d.Complete(submitted)
	d.Cleanup(d.Counter)

	return submitted
}

// LiveCount is the number of allocated buffers that have not been destroyed
func (d *Device) LiveCount() int {
	var count int
	for _, memory := range d.Allocated {
		if !memory.Destroyed {
			count++
		}
	}
	return count
}

// Memory is a host-memory buffer
type Memory struct {
	data       []byte
	usage      core1_0.BufferUsageFlags
	properties core1_0.MemoryPropertyFlags

	Mapped      bool
	Destroyed   bool
	Flushes     []Range
	Invalidates []Range
}

var _ buffer.Memory = &Memory{}

func (m *Memory) VulkanBuffer() core1_0.Buffer { return nil }

func (m *Memory) Size() int { return len(m.data) }

func (m *Memory) Usage() core1_0.BufferUsageFlags { return m.usage }

func (m *Memory) PropertyFlags() core1_0.MemoryPropertyFlags { return m.properties }

func (m *Memory) Bytes() []byte { return m.data }

func (m *Memory) Map() (unsafe.Pointer, common.VkResult, error) {
	if m.Destroyed {
		return nil, core1_0.VKErrorUnknown, errors.New("attempted to map destroyed memory")
	}
	if m.properties&core1_0.MemoryPropertyHostVisible == 0 {
		return nil, core1_0.VKErrorMemoryMapFailed, core1_0.VKErrorMemoryMapFailed.ToError()
	}
	if m.Mapped {
		return nil, core1_0.VKErrorMemoryMapFailed, errors.New("memory is already mapped")
	}

	m.Mapped = true
	if len(m.data) == 0 {
		return nil, core1_0.VKSuccess, nil
	}
	return unsafe.Pointer(&m.data[0]), core1_0.VKSuccess, nil
}

func (m *Memory) Unmap() {
	m.Mapped = false
}

func (m *Memory) Flush(offset, size int) (common.VkResult, error) {
	m.Flushes = append(m.Flushes, Range{Offset: offset, Size: size})
	return core1_0.VKSuccess, nil
}

func (m *Memory) Invalidate(offset, size int) (common.VkResult, error) {
	m.Invalidates = append(m.Invalidates, Range{Offset: offset, Size: size})
	return core1_0.VKSuccess, nil
}

func (m *Memory) Destroy() {
	if m.Destroyed {
		panic("memory destroyed twice")
	}
	m.Destroyed = true
	m.Mapped = false
}
