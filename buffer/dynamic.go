package buffer

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/arsenal/helpers/garbage"
	"github.com/vkngwrapper/arsenal/helpers/memutils"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// constrainedMaxSize is the largest backing buffer created for a memory-constrained device
const constrainedMaxSize = 0x1000

// CreateOptions configures a DynamicBuffer
type CreateOptions struct {
	Usage core1_0.BufferUsageFlags
	// Alignment is the alignment every suballocation must respect. It will be combined with the
	// device's non-coherent atom size.
	Alignment int
	// InitialSize is the minimum size of each backing buffer
	InitialSize int
	// HostVisible backing buffers are mapped and written by the CPU. Otherwise, they are placed
	// in device-local memory.
	HostVisible bool
}

// Allocation is a range suballocated from a DynamicBuffer
type Allocation struct {
	Buffer *Helper
	Offset int
	Size   int
	// Data is the mapped window of the allocation. It is only populated for host-visible buffers.
	Data []byte
	// NewBufferAllocated is set when the allocation required a new backing buffer generation
	NewBufferAllocated bool
}

// DynamicBuffer is a linear suballocator. Allocations are carved sequentially out of the current
// backing buffer; when it is full, the buffer is retired into the in-flight list and a free or new
// buffer takes its place. In-flight buffers are recycled once the device has finished with them.
type DynamicBuffer struct {
	logger *slog.Logger
	device Device

	usage       core1_0.BufferUsageFlags
	hostVisible bool
	initialSize int

	buffer                      *Helper
	nextAllocationOffset        int
	lastFlushOrInvalidateOffset int
	size                        int
	alignment                   int

	inFlightBuffers []*Helper
	bufferFreeList  []*Helper

	generationStats memutils.DetailedStatistics
}

// NewDynamicBuffer creates a DynamicBuffer. No backing buffer is created until the first
// allocation.
func NewDynamicBuffer(logger *slog.Logger, device Device, options CreateOptions) (*DynamicBuffer, error) {
	if logger == nil {
		return nil, errors.New("attempted to create a dynamic buffer with a nil logger")
	}
	if device == nil {
		return nil, errors.New("attempted to create a dynamic buffer with a nil device")
	}

	buffer := &DynamicBuffer{
		logger: logger,
		device: device,
	}
	buffer.generationStats.Clear()

	err := buffer.Init(options)
	if err != nil {
		return nil, err
	}

	return buffer, nil
}

// Init (re)configures the buffer. An initial size that was overridden with SetMinimumSizeForTesting
// is retained.
func (b *DynamicBuffer) Init(options CreateOptions) error {
	b.logger.Debug("DynamicBuffer::Init")

	b.usage = options.Usage
	b.hostVisible = options.HostVisible

	if b.initialSize == 0 {
		b.initialSize = options.InitialSize
		b.size = 0
	}

	if b.device.MemoryConstrained() {
		if b.initialSize > constrainedMaxSize {
			b.initialSize = constrainedMaxSize
		}
		if b.size > constrainedMaxSize {
			b.size = constrainedMaxSize
		}
	}

	return b.UpdateAlignment(options.Alignment)
}

func (b *DynamicBuffer) requiredProperties() core1_0.MemoryPropertyFlags {
	if b.hostVisible {
		return core1_0.MemoryPropertyHostVisible
	}
	return core1_0.MemoryPropertyDeviceLocal
}

// Allocate suballocates size bytes, rounded up to the buffer's alignment. If the current backing
// buffer cannot hold the allocation, it is moved in-flight and replaced.
func (b *DynamicBuffer) Allocate(size int) (Allocation, common.VkResult, error) {
	b.logger.Debug("DynamicBuffer::Allocate")

	if size < 0 {
		return Allocation{}, core1_0.VKErrorUnknown, errors.Newf("attempted to allocate a negative size: %d", size)
	}

	sizeToAllocate := memutils.RoundUp(size, b.alignment)
	newBufferAllocated := false

	if b.buffer == nil || b.nextAllocationOffset+sizeToAllocate > b.size {
		res, err := b.replaceBuffer(sizeToAllocate)
		if err != nil {
			return Allocation{}, res, err
		}
		newBufferAllocated = true
	}

	allocation := Allocation{
		Buffer:             b.buffer,
		Offset:             b.nextAllocationOffset,
		Size:               sizeToAllocate,
		NewBufferAllocated: newBufferAllocated,
	}

	if b.hostVisible {
		mapped, res, err := b.buffer.Map()
		if err != nil {
			return Allocation{}, res, err
		}
		allocation.Data = mapped[b.nextAllocationOffset : b.nextAllocationOffset+sizeToAllocate]
	}

	b.nextAllocationOffset += sizeToAllocate
	b.generationStats.AddAllocation(sizeToAllocate)

	memutils.DebugValidate(b)
	return allocation, core1_0.VKSuccess, nil
}

func (b *DynamicBuffer) replaceBuffer(sizeToAllocate int) (common.VkResult, error) {
	if b.buffer != nil {
		res, err := b.Flush()
		if err != nil {
			return res, err
		}

		b.buffer.Unmap()
		b.buffer.UpdateSerial(b.device.CurrentSerial())

		b.inFlightBuffers = append(b.inFlightBuffers, b.buffer)
		b.buffer = nil
	}

	if sizeToAllocate > b.size || b.size == 0 {
		b.size = sizeToAllocate
		if b.initialSize > b.size {
			b.size = b.initialSize
		}

		b.logger.LogAttrs(context.Background(), slog.LevelDebug, "DynamicBuffer grew backing buffer size",
			slog.Int("size", b.size),
			slog.Int("releasedFreeBuffers", len(b.bufferFreeList)),
		)

		// Free buffers are now too small
		b.releaseBufferList(b.device, b.bufferFreeList)
		b.bufferFreeList = nil
	}

	// Buffers recycled before Reset or SetMinimumSizeForTesting lowered the target size are larger
	// than a generation should be
	for len(b.bufferFreeList) > 0 && b.bufferFreeList[0].Size() != b.size {
		b.logger.LogAttrs(context.Background(), slog.LevelDebug, "DynamicBuffer released stale free buffer",
			slog.Int("bufferSize", b.bufferFreeList[0].Size()),
			slog.Int("size", b.size),
		)

		b.bufferFreeList[0].Release(b.device)
		b.bufferFreeList[0] = nil
		b.bufferFreeList = b.bufferFreeList[1:]
	}

	// The front of the free list is the oldest, so if it is in use, the rest are too
	if len(b.bufferFreeList) == 0 || b.bufferFreeList[0].IsInUse(b.device) {
		buffer, res, err := NewHelper(b.device, b.size, b.usage, b.requiredProperties())
		if err != nil {
			return res, errors.Wrapf(err, "failed to allocate dynamic buffer of size %d", b.size)
		}

		b.logger.LogAttrs(context.Background(), slog.LevelDebug, "DynamicBuffer allocated backing buffer",
			slog.Int("size", b.size),
		)
		b.buffer = buffer
	} else {
		b.buffer = b.bufferFreeList[0]
		b.bufferFreeList[0] = nil
		b.bufferFreeList = b.bufferFreeList[1:]
	}

	if b.buffer.Size() != b.size {
		panic("dynamic buffer generation does not match the target size")
	}

	b.nextAllocationOffset = 0
	b.lastFlushOrInvalidateOffset = 0
	b.generationStats.Clear()

	return core1_0.VKSuccess, nil
}

// Flush makes every allocation since the last flush or invalidate visible to the device
func (b *DynamicBuffer) Flush() (common.VkResult, error) {
	if b.hostVisible && b.nextAllocationOffset > b.lastFlushOrInvalidateOffset {
		res, err := b.buffer.Flush(b.lastFlushOrInvalidateOffset, b.nextAllocationOffset-b.lastFlushOrInvalidateOffset)
		if err != nil {
			return res, errors.Wrap(err, "failed to flush dynamic buffer")
		}
		b.lastFlushOrInvalidateOffset = b.nextAllocationOffset
	}

	return core1_0.VKSuccess, nil
}

// Invalidate makes device writes to every allocation since the last flush or invalidate visible
// to the host
func (b *DynamicBuffer) Invalidate() (common.VkResult, error) {
	if b.hostVisible && b.nextAllocationOffset > b.lastFlushOrInvalidateOffset {
		res, err := b.buffer.Invalidate(b.lastFlushOrInvalidateOffset, b.nextAllocationOffset-b.lastFlushOrInvalidateOffset)
		if err != nil {
			return res, errors.Wrap(err, "failed to invalidate dynamic buffer")
		}
		b.lastFlushOrInvalidateOffset = b.nextAllocationOffset
	}

	return core1_0.VKSuccess, nil
}

// ReleaseInFlightBuffers recycles retired in-flight buffers into the free list. Buffers smaller
// than the current target size are released instead.
func (b *DynamicBuffer) ReleaseInFlightBuffers() {
	b.logger.Debug("DynamicBuffer::ReleaseInFlightBuffers")

	remaining := b.inFlightBuffers[:0]
	for _, toRelease := range b.inFlightBuffers {
		if toRelease.IsInUse(b.device) {
			remaining = append(remaining, toRelease)
			continue
		}

		if toRelease.Size() < b.size {
			toRelease.Release(b.device)
		} else {
			b.bufferFreeList = append(b.bufferFreeList, toRelease)
		}
	}

	for i := len(remaining); i < len(b.inFlightBuffers); i++ {
		b.inFlightBuffers[i] = nil
	}
	b.inFlightBuffers = remaining
}

// Release resets the buffer and hands every backing buffer to releaser. The current buffer is
// stamped with the current serial first, since it may hold data that pending work will read even
// if no command referencing it has been recorded.
func (b *DynamicBuffer) Release(releaser garbage.Releaser) {
	b.logger.Debug("DynamicBuffer::Release")

	b.Reset()

	b.releaseBufferList(releaser, b.inFlightBuffers)
	b.inFlightBuffers = nil
	b.releaseBufferList(releaser, b.bufferFreeList)
	b.bufferFreeList = nil

	if b.buffer != nil {
		b.buffer.Unmap()
		b.buffer.UpdateSerial(b.device.CurrentSerial())
		b.buffer.Release(releaser)
		b.buffer = nil
	}
}

// ReleaseToQueue resets the buffer and hands every backing buffer to sink for destruction at
// teardown
func (b *DynamicBuffer) ReleaseToQueue(sink garbage.Sink) {
	b.logger.Debug("DynamicBuffer::ReleaseToQueue")

	b.Reset()

	for _, toFree := range b.inFlightBuffers {
		toFree.ReleaseToQueue(sink)
	}
	b.inFlightBuffers = nil

	for _, toFree := range b.bufferFreeList {
		toFree.ReleaseToQueue(sink)
	}
	b.bufferFreeList = nil

	if b.buffer != nil {
		b.buffer.ReleaseToQueue(sink)
		b.buffer = nil
	}
}

// Destroy immediately destroys every backing buffer. The caller must ensure that the device is
// no longer using any of them.
func (b *DynamicBuffer) Destroy() {
	b.logger.Debug("DynamicBuffer::Destroy")

	b.Reset()

	for _, toFree := range b.inFlightBuffers {
		toFree.Destroy()
	}
	b.inFlightBuffers = nil

	for _, toFree := range b.bufferFreeList {
		toFree.Destroy()
	}
	b.bufferFreeList = nil

	if b.buffer != nil {
		b.buffer.Destroy()
		b.buffer = nil
	}
}

func (b *DynamicBuffer) releaseBufferList(releaser garbage.Releaser, buffers []*Helper) {
	for _, toFree := range buffers {
		toFree.Release(releaser)
	}
}

// UpdateAlignment sets the suballocation alignment to the least common multiple of alignment and
// the device's non-coherent atom size. If the alignment changes, the next allocation offset is
// realigned.
func (b *DynamicBuffer) UpdateAlignment(alignment int) error {
	alignment, err := memutils.AtomAlignment(alignment, b.device.NonCoherentAtomSize())
	if err != nil {
		return errors.Wrap(err, "invalid dynamic buffer alignment")
	}

	if alignment != b.alignment {
		b.nextAllocationOffset = memutils.RoundUp(b.nextAllocationOffset, alignment)
	}

	b.alignment = alignment
	return nil
}

// SetMinimumSizeForTesting forces the next allocation to create a backing buffer of at least
// minSize bytes
func (b *DynamicBuffer) SetMinimumSizeForTesting(minSize int) {
	b.initialSize = minSize
	b.size = 0
}

// Reset drops the target size and allocation offsets. Backing buffers are retained.
func (b *DynamicBuffer) Reset() {
	b.size = 0
	b.nextAllocationOffset = 0
	b.lastFlushOrInvalidateOffset = 0
	b.generationStats.Clear()
}

// Validate checks the buffer's bookkeeping and returns an error describing the first
// inconsistency found
func (b *DynamicBuffer) Validate() error {
	if b.alignment <= 0 {
		return errors.Newf("dynamic buffer alignment must be positive but was %d", b.alignment)
	}
	if b.nextAllocationOffset%b.alignment != 0 {
		return errors.Newf("next allocation offset %d is not a multiple of alignment %d", b.nextAllocationOffset, b.alignment)
	}
	if b.lastFlushOrInvalidateOffset > b.nextAllocationOffset {
		return errors.Newf("last flushed offset %d is past the next allocation offset %d", b.lastFlushOrInvalidateOffset, b.nextAllocationOffset)
	}

	// Reset leaves the current buffer in place until the next allocation replaces it
	if b.buffer != nil && b.size > 0 {
		if b.buffer.Size() != b.size {
			return errors.Newf("current backing buffer has size %d but the target size is %d", b.buffer.Size(), b.size)
		}
		if b.nextAllocationOffset > b.size {
			return errors.Newf("next allocation offset %d is past the end of the %d-byte backing buffer", b.nextAllocationOffset, b.size)
		}
	}

	for i, buffer := range b.inFlightBuffers {
		if buffer == nil || !buffer.Valid() {
			return errors.Newf("in-flight buffer %d has been released", i)
		}
	}
	for i, buffer := range b.bufferFreeList {
		if buffer == nil || !buffer.Valid() {
			return errors.Newf("free buffer %d has been released", i)
		}
		if buffer.Size() < b.size {
			return errors.Newf("free buffer %d has size %d, smaller than the target size %d", i, buffer.Size(), b.size)
		}
	}

	return nil
}

// Size is the target size of backing buffers
func (b *DynamicBuffer) Size() int { return b.size }

func (b *DynamicBuffer) Alignment() int { return b.alignment }

func (b *DynamicBuffer) InitialSize() int { return b.initialSize }

func (b *DynamicBuffer) HostVisible() bool { return b.hostVisible }

// Current is the backing buffer allocations are currently carved from. It is nil before the first
// allocation.
func (b *DynamicBuffer) Current() *Helper { return b.buffer }

func (b *DynamicBuffer) InFlightCount() int { return len(b.inFlightBuffers) }

func (b *DynamicBuffer) FreeCount() int { return len(b.bufferFreeList) }

// CalculateStatistics adds the buffer's backing buffers, and the allocations made from the
// current one, to stats
func (b *DynamicBuffer) CalculateStatistics(stats *memutils.DetailedStatistics) {
	if b.buffer != nil {
		stats.AddBuffer(b.buffer.Size())
	}

	for _, buffer := range b.inFlightBuffers {
		stats.AddBuffer(buffer.Size())
	}
	stats.InFlightBufferCount += len(b.inFlightBuffers)

	for _, buffer := range b.bufferFreeList {
		stats.AddBuffer(buffer.Size())
	}
	stats.FreeBufferCount += len(b.bufferFreeList)

	stats.AddDetailedStatistics(&b.generationStats)
}

// BuildStatsString returns a json description of the buffer's configuration and statistics
func (b *DynamicBuffer) BuildStatsString() string {
	var stats memutils.DetailedStatistics
	stats.Clear()
	b.CalculateStatistics(&stats)

	writer := jwriter.NewWriter()
	obj := writer.Object()
	obj.Name("Size").Int(b.size)
	obj.Name("Alignment").Int(b.alignment)
	obj.Name("HostVisible").Bool(b.hostVisible)
	obj.Name("NextOffset").Int(b.nextAllocationOffset)

	statsObj := obj.Name("Statistics").Object()
	stats.PrintJson(&statsObj)
	statsObj.End()

	obj.End()

	return string(writer.Bytes())
}
