package vulkan

import (
	"unsafe"

	"github.com/vkngwrapper/arsenal/helpers/buffer"
	"github.com/vkngwrapper/arsenal/helpers/memutils"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Memory is a device buffer bound to the start of its own device memory
type Memory struct {
	device     *Device
	buffer     core1_0.Buffer
	memory     core1_0.DeviceMemory
	size       int
	properties core1_0.MemoryPropertyFlags
}

var _ buffer.Memory = &Memory{}

func (m *Memory) VulkanBuffer() core1_0.Buffer {
	return m.buffer
}

func (m *Memory) VulkanDeviceMemory() core1_0.DeviceMemory {
	return m.memory
}

func (m *Memory) Size() int {
	return m.size
}

func (m *Memory) PropertyFlags() core1_0.MemoryPropertyFlags {
	return m.properties
}

func (m *Memory) Map() (unsafe.Pointer, common.VkResult, error) {
	return m.memory.Map(0, common.WholeSize, 0)
}

func (m *Memory) Unmap() {
	m.memory.Unmap()
}

func (m *Memory) Flush(offset, size int) (common.VkResult, error) {
	return m.device.flushOrInvalidate(m.mappedRange(offset, size), cacheOperationFlush)
}

func (m *Memory) Invalidate(offset, size int) (common.VkResult, error) {
	return m.device.flushOrInvalidate(m.mappedRange(offset, size), cacheOperationInvalidate)
}

// mappedRange widens [offset, offset+size) to the non-coherent atom size, clamped to the end of
// the memory
func (m *Memory) mappedRange(offset, size int) core1_0.MappedMemoryRange {
	atomSize := m.device.NonCoherentAtomSize()
	memutils.DebugCheckPow2(atomSize, "nonCoherentAtomSize")

	start := memutils.AlignDown(offset, uint(atomSize))
	end := memutils.AlignUp(offset+size, uint(atomSize))

	memRange := core1_0.MappedMemoryRange{
		Memory: m.memory,
		Offset: start,
		Size:   end - start,
	}
	if end >= m.size {
		memRange.Size = common.WholeSize
	}

	return memRange
}

func (m *Memory) Destroy() {
	m.buffer.Destroy(m.device.callbacks)
	m.device.freeVulkanMemory(m.memory)

	m.buffer = nil
	m.memory = nil
}

type cacheOperation uint32

const (
	cacheOperationFlush cacheOperation = iota
	cacheOperationInvalidate
)

func (d *Device) flushOrInvalidate(memRange core1_0.MappedMemoryRange, operation cacheOperation) (common.VkResult, error) {
	if memRange.Size == 0 {
		return core1_0.VKSuccess, nil
	}

	if operation == cacheOperationFlush {
		return d.device.FlushMappedMemoryRanges([]core1_0.MappedMemoryRange{memRange})
	}
	return d.device.InvalidateMappedMemoryRanges([]core1_0.MappedMemoryRange{memRange})
}
