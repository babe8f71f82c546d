package command

import (
	"math"

	"github.com/vkngwrapper/core/v2/core1_0"
)

// QueueFamilyIgnored marks a barrier that does not transfer queue family ownership. It is also
// used as the owner of images that have not been bound to a queue family yet.
const QueueFamilyIgnored uint32 = math.MaxUint32

// Buffer is any object that wraps a native buffer
type Buffer interface {
	VulkanBuffer() core1_0.Buffer
}

// Image is any object that wraps a native image
type Image interface {
	VulkanImage() core1_0.Image
}

// QueryPool is any object that wraps a native query pool
type QueryPool interface {
	VulkanQueryPool() core1_0.QueryPool
}

type Offset3D struct {
	X, Y, Z int
}

type Extent3D struct {
	Width, Height, Depth int
}

type ImageSubresourceRange struct {
	AspectMask     core1_0.ImageAspectFlags
	BaseMipLevel   int
	LevelCount     int
	BaseArrayLayer int
	LayerCount     int
}

type ImageSubresourceLayers struct {
	AspectMask     core1_0.ImageAspectFlags
	MipLevel       int
	BaseArrayLayer int
	LayerCount     int
}

type BufferCopy struct {
	SrcOffset int
	DstOffset int
	Size      int
}

type BufferImageCopy struct {
	BufferOffset      int
	BufferRowLength   int
	BufferImageHeight int
	ImageSubresource  ImageSubresourceLayers
	ImageOffset       Offset3D
	ImageExtent       Extent3D
}

type ImageCopy struct {
	SrcSubresource ImageSubresourceLayers
	SrcOffset      Offset3D
	DstSubresource ImageSubresourceLayers
	DstOffset      Offset3D
	Extent         Extent3D
}

type ImageBlit struct {
	SrcSubresource ImageSubresourceLayers
	SrcOffsets     [2]Offset3D
	DstSubresource ImageSubresourceLayers
	DstOffsets     [2]Offset3D
}

type ImageResolve struct {
	SrcSubresource ImageSubresourceLayers
	SrcOffset      Offset3D
	DstSubresource ImageSubresourceLayers
	DstOffset      Offset3D
	Extent         Extent3D
}

// ClearColorValue holds the float interpretation of a color clear
type ClearColorValue [4]float32

type ClearDepthStencilValue struct {
	Depth   float32
	Stencil uint32
}

// ClearValue carries both interpretations; the image's format decides which one is consumed
type ClearValue struct {
	Color        ClearColorValue
	DepthStencil ClearDepthStencilValue
}

type MemoryBarrier struct {
	SrcAccessMask core1_0.AccessFlags
	DstAccessMask core1_0.AccessFlags
}

type ImageBarrier struct {
	Image               Image
	SrcAccessMask       core1_0.AccessFlags
	DstAccessMask       core1_0.AccessFlags
	OldLayout           core1_0.ImageLayout
	NewLayout           core1_0.ImageLayout
	SrcQueueFamilyIndex uint32
	DstQueueFamilyIndex uint32
	SubresourceRange    ImageSubresourceRange
}

// PipelineBarrier is a single barrier command. A barrier with no memory or image barriers is an
// execution-only barrier.
type PipelineBarrier struct {
	SrcStageMask   core1_0.PipelineStageFlags
	DstStageMask   core1_0.PipelineStageFlags
	MemoryBarriers []MemoryBarrier
	ImageBarriers  []ImageBarrier
}

func (b PipelineBarrier) IsExecutionOnly() bool {
	return len(b.MemoryBarriers) == 0 && len(b.ImageBarriers) == 0
}
