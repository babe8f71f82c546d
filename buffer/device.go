package buffer

import (
	"unsafe"

	"github.com/vkngwrapper/arsenal/helpers/garbage"
	"github.com/vkngwrapper/arsenal/helpers/serial"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Memory is a single device buffer together with the device memory bound to it
type Memory interface {
	VulkanBuffer() core1_0.Buffer
	Size() int
	PropertyFlags() core1_0.MemoryPropertyFlags

	// Map maps the full range of the memory and returns a pointer to its first byte
	Map() (unsafe.Pointer, common.VkResult, error)
	Unmap()
	Flush(offset, size int) (common.VkResult, error)
	Invalidate(offset, size int) (common.VkResult, error)

	Destroy()
}

// Allocator creates backing buffers. requiredProperties must all be present on the memory type
// the buffer is bound to.
type Allocator interface {
	AllocateBuffer(size int, usage core1_0.BufferUsageFlags, requiredProperties core1_0.MemoryPropertyFlags) (Memory, common.VkResult, error)
}

// Device is everything a DynamicBuffer needs from the device that owns it. Buffers dropped while
// resizing are handed to the device's Releaser.
type Device interface {
	serial.Oracle
	Allocator
	garbage.Releaser

	NonCoherentAtomSize() int
	// MemoryConstrained is set for drivers that cannot back large allocations, such as the mock ICD
	MemoryConstrained() bool
}
