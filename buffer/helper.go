package buffer

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/helpers/command"
	"github.com/vkngwrapper/arsenal/helpers/garbage"
	"github.com/vkngwrapper/arsenal/helpers/serial"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Helper is one backing buffer generation. It tracks the serial of the last work that referenced it,
// a lazily created mapping, and the access types of the most recent commands to touch it.
type Helper struct {
	memory Memory
	size   int
	serial serial.Serial

	mapped []byte

	currentReadAccess  core1_0.AccessFlags
	currentWriteAccess core1_0.AccessFlags
}

var _ command.Buffer = &Helper{}
var _ garbage.Object = &Helper{}

// NewHelper allocates a new buffer of the requested size. Nothing is retained if the allocation
// fails.
func NewHelper(allocator Allocator, size int, usage core1_0.BufferUsageFlags, requiredProperties core1_0.MemoryPropertyFlags) (*Helper, common.VkResult, error) {
	memory, res, err := allocator.AllocateBuffer(size, usage, requiredProperties)
	if err != nil {
		return nil, res, err
	}

	return &Helper{
		memory: memory,
		size:   size,
	}, res, nil
}

func (h *Helper) VulkanBuffer() core1_0.Buffer {
	if h.memory == nil {
		return nil
	}
	return h.memory.VulkanBuffer()
}

func (h *Helper) Size() int { return h.size }

func (h *Helper) Valid() bool { return h.memory != nil }

func (h *Helper) HostVisible() bool {
	return h.memory != nil && h.memory.PropertyFlags()&core1_0.MemoryPropertyHostVisible != 0
}

func (h *Helper) HostCoherent() bool {
	return h.memory != nil && h.memory.PropertyFlags()&core1_0.MemoryPropertyHostCoherent != 0
}

// Serial is the serial of the most recent work known to reference this buffer
func (h *Helper) Serial() serial.Serial { return h.serial }

func (h *Helper) UpdateSerial(s serial.Serial) {
	h.serial = s
}

func (h *Helper) IsInUse(oracle serial.Oracle) bool {
	return oracle.IsSerialInUse(h.serial)
}

func (h *Helper) IsMapped() bool { return h.mapped != nil }

// Map returns the full mapped contents of the buffer, mapping it on first use
func (h *Helper) Map() ([]byte, common.VkResult, error) {
	if h.mapped != nil {
		return h.mapped, core1_0.VKSuccess, nil
	}

	if h.memory == nil {
		return nil, core1_0.VKErrorUnknown, errors.New("attempted to map a buffer that has been released")
	}

	ptr, res, err := h.memory.Map()
	if err != nil {
		return nil, res, errors.Wrap(err, "failed to map buffer memory")
	}

	h.mapped = unsafe.Slice((*byte)(ptr), h.size)
	return h.mapped, res, nil
}

func (h *Helper) Unmap() {
	if h.mapped != nil {
		h.memory.Unmap()
		h.mapped = nil
	}
}

// Flush makes host writes in the provided range visible to the device. Coherent memory needs no
// device call.
func (h *Helper) Flush(offset, size int) (common.VkResult, error) {
	if !h.HostVisible() || h.HostCoherent() {
		return core1_0.VKSuccess, nil
	}

	return h.memory.Flush(offset, size)
}

// Invalidate makes device writes in the provided range visible to the host. Coherent memory needs no
// device call.
func (h *Helper) Invalidate(offset, size int) (common.VkResult, error) {
	if !h.HostVisible() || h.HostCoherent() {
		return core1_0.VKSuccess, nil
	}

	return h.memory.Invalidate(offset, size)
}

// NeedsOnWriteBarrier records a new access to the buffer and reports whether a barrier is required
// against the previous access. Prior reads are not part of the source mask: an execution barrier
// alone orders anything after a read.
func (h *Helper) NeedsOnWriteBarrier(readAccess, writeAccess core1_0.AccessFlags) (needsBarrier bool, barrierSrc, barrierDst core1_0.AccessFlags) {
	needsBarrier = h.currentReadAccess != 0 || h.currentWriteAccess != 0

	barrierSrc = h.currentWriteAccess
	barrierDst = readAccess | writeAccess

	h.currentWriteAccess = writeAccess
	h.currentReadAccess = readAccess

	return needsBarrier, barrierSrc, barrierDst
}

func (h *Helper) OnWriteAccess(recorder command.Recorder, readAccess, writeAccess core1_0.AccessFlags) {
	needsBarrier, src, dst := h.NeedsOnWriteBarrier(readAccess, writeAccess)
	if needsBarrier {
		command.GlobalMemoryBarrier(recorder, src, dst, core1_0.PipelineStageAllCommands, core1_0.PipelineStageAllCommands)
	}
}

func (h *Helper) CurrentAccess() (readAccess, writeAccess core1_0.AccessFlags) {
	return h.currentReadAccess, h.currentWriteAccess
}

// CopyFromBuffer records a copy from src into this buffer, waiting for any outstanding access to
// either buffer first
func (h *Helper) CopyFromBuffer(recorder command.Recorder, src command.Buffer, srcAccess core1_0.AccessFlags, region command.BufferCopy) {
	if h.currentReadAccess != 0 || h.currentWriteAccess != 0 || srcAccess != 0 {
		command.GlobalMemoryBarrier(recorder,
			h.currentReadAccess|h.currentWriteAccess|srcAccess,
			core1_0.AccessTransferWrite,
			core1_0.PipelineStageAllCommands,
			core1_0.PipelineStageTransfer,
		)
	}

	h.currentWriteAccess = core1_0.AccessTransferWrite
	h.currentReadAccess = 0

	recorder.CopyBuffer(src, h, region)
}

// Release hands the buffer to releaser, to be destroyed once its serial retires
func (h *Helper) Release(releaser garbage.Releaser) {
	if h.memory == nil {
		return
	}

	h.Unmap()
	releaser.ReleaseObjects(h.serial, h.detach())
}

// ReleaseToQueue hands the buffer to sink for destruction at teardown
func (h *Helper) ReleaseToQueue(sink garbage.Sink) {
	if h.memory == nil {
		return
	}

	h.Unmap()
	sink.AddGarbage(h.detach())
}

// Destroy immediately destroys the buffer and its memory
func (h *Helper) Destroy() {
	if h.memory == nil {
		return
	}

	h.Unmap()
	h.memory.Destroy()
	h.memory = nil
	h.size = 0
}

// detach moves ownership of the native objects into a garbage object so the Helper can be
// reused or dropped immediately
func (h *Helper) detach() garbage.Object {
	memory := h.memory
	h.memory = nil
	h.size = 0
	h.currentReadAccess = 0
	h.currentWriteAccess = 0

	return garbage.Func(memory.Destroy)
}
