package image

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/helpers/buffer"
	"github.com/vkngwrapper/arsenal/helpers/command"
	"github.com/vkngwrapper/arsenal/helpers/garbage"
	"github.com/vkngwrapper/arsenal/helpers/serial"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// Resource is a device image together with the memory bound to it
type Resource interface {
	command.Image
	Destroy()
}

// DependencyGraph receives read dependencies between images. Commands recorded against source must
// be submitted before the commands of reader that read from it.
type DependencyGraph interface {
	AddReadDependency(source *Helper, reader *Helper)
}

// InitOptions describes an image for NewHelper
type InitOptions struct {
	Resource Resource
	Extents  command.Extent3D
	Format   *Format
	Samples  int
	Levels   int
	Layers   int

	// InitialLayout is the layout the image was created in. Images that are not imported from
	// elsewhere are created in LayoutUndefined.
	InitialLayout Layout

	// StagingUsage and StagingInitialSize configure the staging buffer that holds data for
	// staged updates
	StagingUsage       core1_0.BufferUsageFlags
	StagingInitialSize int

	// Graph is optional. If provided, it receives a read dependency whenever a staged
	// image-to-image update is flushed.
	Graph DependencyGraph
}

// Helper tracks the layout and queue family owner of an image, and queues updates to its
// subresources until they are flushed into a command recorder
type Helper struct {
	logger *slog.Logger
	device buffer.Device
	graph  DependencyGraph

	resource Resource
	extents  command.Extent3D
	format   *Format
	samples  int

	levelCount int
	layerCount int

	currentLayout      Layout
	currentQueueFamily uint32
	serial             serial.Serial

	staging *buffer.DynamicBuffer
	updates []Update
}

var _ command.Image = &Helper{}

// NewHelper wraps an image. The queue family owner is unset until SetCurrentQueueFamily is called.
func NewHelper(logger *slog.Logger, device buffer.Device, options InitOptions) (*Helper, error) {
	if options.Resource == nil {
		return nil, errors.New("attempted to create an image helper with a nil resource")
	}
	if options.Format == nil {
		return nil, errors.New("attempted to create an image helper with a nil format")
	}
	if options.Levels < 1 || options.Layers < 1 {
		return nil, errors.Newf("image must have at least one level and layer, but has %d levels and %d layers", options.Levels, options.Layers)
	}
	if options.InitialLayout < 0 || options.InitialLayout >= LayoutCount {
		return nil, errors.Newf("invalid initial layout: %s", options.InitialLayout)
	}

	samples := options.Samples
	if samples == 0 {
		samples = 1
	}

	staging, err := buffer.NewDynamicBuffer(logger, device, buffer.CreateOptions{
		Usage:       options.StagingUsage,
		Alignment:   options.Format.ImageCopyBufferAlignment(),
		InitialSize: options.StagingInitialSize,
		HostVisible: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create staging buffer")
	}

	return &Helper{
		logger: logger,
		device: device,
		graph:  options.Graph,

		resource: options.Resource,
		extents:  options.Extents,
		format:   options.Format,
		samples:  samples,

		levelCount: options.Levels,
		layerCount: options.Layers,

		currentLayout:      options.InitialLayout,
		currentQueueFamily: command.QueueFamilyIgnored,

		staging: staging,
	}, nil
}

func (h *Helper) Valid() bool { return h.resource != nil }

func (h *Helper) VulkanImage() core1_0.Image {
	if h.resource == nil {
		return nil
	}
	return h.resource.VulkanImage()
}

func (h *Helper) Extents() command.Extent3D { return h.extents }

func (h *Helper) Format() *Format { return h.format }

func (h *Helper) Samples() int { return h.samples }

func (h *Helper) LevelCount() int { return h.levelCount }

func (h *Helper) LayerCount() int { return h.layerCount }

func (h *Helper) CurrentLayout() Layout { return h.currentLayout }

func (h *Helper) CurrentQueueFamily() uint32 { return h.currentQueueFamily }

// SetCurrentQueueFamily records the queue family that owns the image, usually once its memory has
// been bound
func (h *Helper) SetCurrentQueueFamily(queueFamilyIndex uint32) {
	h.currentQueueFamily = queueFamilyIndex
}

func (h *Helper) StagingBuffer() *buffer.DynamicBuffer { return h.staging }

// Serial is the most recent serial that recorded work against the image
func (h *Helper) Serial() serial.Serial { return h.serial }

func (h *Helper) UpdateSerial(s serial.Serial) {
	h.serial = s
}

func (h *Helper) AspectFlags() core1_0.ImageAspectFlags {
	return h.format.AspectFlags()
}

// LevelExtents2D is the width and height of the provided mip level
func (h *Helper) LevelExtents2D(level int) command.Extent3D {
	return command.Extent3D{
		Width:  mipDimension(h.extents.Width, level),
		Height: mipDimension(h.extents.Height, level),
		Depth:  1,
	}
}

// Size is the extents of the level that index refers to. The depth is not reduced.
func (h *Helper) Size(index Index) command.Extent3D {
	return command.Extent3D{
		Width:  mipDimension(h.extents.Width, index.Level),
		Height: mipDimension(h.extents.Height, index.Level),
		Depth:  h.extents.Depth,
	}
}

func mipDimension(size int, level int) int {
	size >>= level
	if size < 1 {
		return 1
	}
	return size
}

// IsLayoutChangeNecessary is false only when the image is already in newLayout and the layout
// does not need a barrier between same-layout uses
func (h *Helper) IsLayoutChangeNecessary(newLayout Layout) bool {
	layoutData := h.currentLayout.BarrierData()

	sameLayoutAndNoNeedForBarrier := h.currentLayout == newLayout && !layoutData.SameLayoutTransitionRequiresBarrier
	return !sameLayoutAndNoNeedForBarrier
}

// ChangeLayout records the barrier needed to use the image in newLayout, if any
func (h *Helper) ChangeLayout(aspectMask core1_0.ImageAspectFlags, newLayout Layout, recorder command.Recorder) {
	if !h.IsLayoutChangeNecessary(newLayout) {
		return
	}

	h.forceChangeLayoutAndQueue(aspectMask, newLayout, h.currentQueueFamily, recorder)
}

// ChangeLayoutAndQueue transitions the image to newLayout and transfers it to another queue family.
// Transferring to the family that already owns the image is a programming error.
func (h *Helper) ChangeLayoutAndQueue(aspectMask core1_0.ImageAspectFlags, newLayout Layout, newQueueFamilyIndex uint32, recorder command.Recorder) {
	if newQueueFamilyIndex == h.currentQueueFamily {
		panic(fmt.Sprintf("attempted to transfer an image to queue family %d, which already owns it", newQueueFamilyIndex))
	}

	h.forceChangeLayoutAndQueue(aspectMask, newLayout, newQueueFamilyIndex, recorder)
}

func (h *Helper) forceChangeLayoutAndQueue(aspectMask core1_0.ImageAspectFlags, newLayout Layout, newQueueFamilyIndex uint32, recorder command.Recorder) {
	if h.currentLayout == newLayout && h.currentQueueFamily == newQueueFamilyIndex {
		transition := h.currentLayout.BarrierData()

		// The image is used the same way on both sides, so the stage masks match
		if transition.SrcStageMask != transition.DstStageMask {
			panic(fmt.Sprintf("same-layout transition of %s has mismatched stage masks", h.currentLayout))
		}

		command.ExecutionBarrier(recorder, transition.DstStageMask)
		return
	}

	transitionFrom := h.currentLayout.BarrierData()
	transitionTo := newLayout.BarrierData()

	command.ImageMemoryBarrier(recorder, transitionFrom.SrcStageMask, transitionTo.DstStageMask, command.ImageBarrier{
		Image:               h,
		SrcAccessMask:       transitionFrom.SrcAccessMask,
		DstAccessMask:       transitionTo.DstAccessMask,
		OldLayout:           transitionFrom.Layout,
		NewLayout:           transitionTo.Layout,
		SrcQueueFamilyIndex: h.currentQueueFamily,
		DstQueueFamilyIndex: newQueueFamilyIndex,
		SubresourceRange: command.ImageSubresourceRange{
			AspectMask:     aspectMask,
			BaseMipLevel:   0,
			LevelCount:     h.levelCount,
			BaseArrayLayer: 0,
			LayerCount:     h.layerCount,
		},
	})

	h.currentLayout = newLayout
	h.currentQueueFamily = newQueueFamilyIndex
}

func (h *Helper) assertLayout(layout Layout) {
	if h.currentLayout != layout {
		panic(fmt.Sprintf("image is in %s but %s was expected", h.currentLayout, layout))
	}
}

// ClearColor records a color clear. The image must be in LayoutTransferDst.
func (h *Helper) ClearColor(color command.ClearColorValue, baseMipLevel, levelCount, baseArrayLayer, layerCount int, recorder command.Recorder) {
	h.assertLayout(LayoutTransferDst)

	recorder.ClearColorImage(h, h.currentLayout.VulkanLayout(), color, command.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   baseMipLevel,
		LevelCount:     levelCount,
		BaseArrayLayer: baseArrayLayer,
		LayerCount:     layerCount,
	})
}

// ClearDepthStencil records a depth/stencil clear of clearAspectFlags. The image must be in
// LayoutTransferDst.
func (h *Helper) ClearDepthStencil(clearAspectFlags core1_0.ImageAspectFlags, depthStencil command.ClearDepthStencilValue, baseMipLevel, levelCount, baseArrayLayer, layerCount int, recorder command.Recorder) {
	h.assertLayout(LayoutTransferDst)

	recorder.ClearDepthStencilImage(h, h.currentLayout.VulkanLayout(), depthStencil, command.ImageSubresourceRange{
		AspectMask:     clearAspectFlags,
		BaseMipLevel:   baseMipLevel,
		LevelCount:     levelCount,
		BaseArrayLayer: baseArrayLayer,
		LayerCount:     layerCount,
	})
}

// Clear clears a single level with whichever half of value matches the image's format
func (h *Helper) Clear(value command.ClearValue, mipLevel, baseArrayLayer, layerCount int, recorder command.Recorder) {
	if h.format.IsDepthOrStencil() {
		aspect := h.format.AspectFlags()
		h.ClearDepthStencil(aspect, value.DepthStencil, mipLevel, 1, baseArrayLayer, layerCount, recorder)
		return
	}

	h.ClearColor(value.Color, mipLevel, 1, baseArrayLayer, layerCount, recorder)
}

// Copy records an image-to-image copy. srcImage must be in LayoutTransferSrc and dstImage must be in
// LayoutTransferDst.
func Copy(srcImage, dstImage *Helper, srcOffset, dstOffset command.Offset3D, copySize command.Extent3D,
	srcSubresource, dstSubresource command.ImageSubresourceLayers, recorder command.Recorder) {
	if !srcImage.Valid() || !dstImage.Valid() {
		panic("attempted to copy between invalid images")
	}
	srcImage.assertLayout(LayoutTransferSrc)
	dstImage.assertLayout(LayoutTransferDst)

	recorder.CopyImage(srcImage, srcImage.currentLayout.VulkanLayout(), dstImage, dstImage.currentLayout.VulkanLayout(), command.ImageCopy{
		SrcSubresource: srcSubresource,
		SrcOffset:      srcOffset,
		DstSubresource: dstSubresource,
		DstOffset:      dstOffset,
		Extent:         copySize,
	})
}

// GenerateMipmapsWithBlit fills levels 1 through maxLevel by repeatedly blitting each level into
// the next. Every level is left in LayoutTransferSrc. linearFilter should only be set if the
// format supports linear filtering.
func (h *Helper) GenerateMipmapsWithBlit(maxLevel int, linearFilter bool, recorder command.Recorder) {
	h.logger.Debug("ImageHelper::GenerateMipmapsWithBlit")

	h.ChangeLayout(core1_0.ImageAspectColor, LayoutTransferDst, recorder)

	filter := core1_0.FilterNearest
	if linearFilter {
		filter = core1_0.FilterLinear
	}

	barrier := command.ImageBarrier{
		Image:               h,
		SrcQueueFamilyIndex: command.QueueFamilyIgnored,
		DstQueueFamilyIndex: command.QueueFamilyIgnored,
		SubresourceRange: command.ImageSubresourceRange{
			AspectMask:     core1_0.ImageAspectColor,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     h.layerCount,
		},
	}

	mipWidth := h.extents.Width
	mipHeight := h.extents.Height

	for mipLevel := 1; mipLevel <= maxLevel; mipLevel++ {
		nextMipWidth := mipDimension(mipWidth, 1)
		nextMipHeight := mipDimension(mipHeight, 1)

		barrier.SubresourceRange.BaseMipLevel = mipLevel - 1
		barrier.OldLayout = h.currentLayout.VulkanLayout()
		barrier.NewLayout = core1_0.ImageLayoutTransferSrcOptimal
		barrier.SrcAccessMask = core1_0.AccessTransferWrite
		barrier.DstAccessMask = core1_0.AccessTransferRead

		command.ImageMemoryBarrier(recorder, core1_0.PipelineStageTransfer, core1_0.PipelineStageTransfer, barrier)

		recorder.BlitImage(h, core1_0.ImageLayoutTransferSrcOptimal, h, core1_0.ImageLayoutTransferDstOptimal, filter, command.ImageBlit{
			SrcSubresource: command.ImageSubresourceLayers{
				AspectMask:     core1_0.ImageAspectColor,
				MipLevel:       mipLevel - 1,
				BaseArrayLayer: 0,
				LayerCount:     h.layerCount,
			},
			SrcOffsets: [2]command.Offset3D{{}, {X: mipWidth, Y: mipHeight, Z: 1}},
			DstSubresource: command.ImageSubresourceLayers{
				AspectMask:     core1_0.ImageAspectColor,
				MipLevel:       mipLevel,
				BaseArrayLayer: 0,
				LayerCount:     h.layerCount,
			},
			DstOffsets: [2]command.Offset3D{{}, {X: nextMipWidth, Y: nextMipHeight, Z: 1}},
		})

		mipWidth = nextMipWidth
		mipHeight = nextMipHeight
	}

	// The last level was only written, so bring it to the same layout as the rest
	barrier.SubresourceRange.BaseMipLevel = maxLevel
	barrier.OldLayout = core1_0.ImageLayoutTransferDstOptimal
	barrier.NewLayout = core1_0.ImageLayoutTransferSrcOptimal
	command.ImageMemoryBarrier(recorder, core1_0.PipelineStageTransfer, core1_0.PipelineStageTransfer, barrier)

	h.currentLayout = LayoutTransferSrc
}

// Resolve resolves this multisampled image into dest. The image must be in LayoutTransferSrc.
func (h *Helper) Resolve(dest *Helper, region command.ImageResolve, recorder command.Recorder) {
	h.assertLayout(LayoutTransferSrc)
	dest.ChangeLayout(region.DstSubresource.AspectMask, LayoutTransferDst, recorder)

	recorder.ResolveImage(h, core1_0.ImageLayoutTransferSrcOptimal, dest, core1_0.ImageLayoutTransferDstOptimal, region)
}

func (h *Helper) detachImage() garbage.Object {
	resource := h.resource
	h.resource = nil
	h.currentLayout = LayoutUndefined
	return resource
}

// ReleaseImage hands the image to releaser, to be destroyed once the last serial that recorded work
// against it has retired
func (h *Helper) ReleaseImage(releaser garbage.Releaser) {
	if h.resource == nil {
		return
	}
	releaser.ReleaseObjects(h.serial, h.detachImage())
}

// ReleaseImageToQueue hands the image to sink for destruction at teardown
func (h *Helper) ReleaseImageToQueue(sink garbage.Sink) {
	if h.resource == nil {
		return
	}
	sink.AddGarbage(h.detachImage())
}

// ReleaseStagingBuffer drops every update that never made it to the image, then releases the
// staging buffer
func (h *Helper) ReleaseStagingBuffer(releaser garbage.Releaser) {
	for i := range h.updates {
		h.updates[i].release(releaser)
	}
	h.updates = nil

	h.staging.Release(releaser)
}

// ReleaseStagingBufferToQueue is ReleaseStagingBuffer for teardown
func (h *Helper) ReleaseStagingBufferToQueue(sink garbage.Sink) {
	for i := range h.updates {
		h.updates[i].releaseToQueue(sink)
	}
	h.updates = nil

	h.staging.ReleaseToQueue(sink)
}

// Release releases the image and its staging buffer
func (h *Helper) Release(releaser garbage.Releaser) {
	h.logger.Debug("ImageHelper::Release")

	h.ReleaseImage(releaser)
	h.ReleaseStagingBuffer(releaser)
}

// ReleaseToQueue releases the image and its staging buffer for destruction at teardown
func (h *Helper) ReleaseToQueue(sink garbage.Sink) {
	h.logger.Debug("ImageHelper::ReleaseToQueue")

	h.ReleaseImageToQueue(sink)
	h.ReleaseStagingBufferToQueue(sink)
}

// Destroy immediately destroys the image, its staging buffer, and the sources of any pending
// image-to-image updates. The caller must ensure the device is no longer using any of them.
func (h *Helper) Destroy() {
	h.logger.Debug("ImageHelper::Destroy")

	for i := range h.updates {
		if h.updates[i].Kind == UpdateImage {
			h.updates[i].Image.Destroy()
		}
	}
	h.updates = nil

	h.staging.Destroy()

	if h.resource != nil {
		h.detachImage().Destroy()
	}
	h.levelCount = 0
	h.layerCount = 0
}
