package image

import (
	"context"
	"math"
	"math/bits"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/helpers/buffer"
	"github.com/vkngwrapper/arsenal/helpers/command"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// maxParallelSubresourceUpload is the number of subresources whose in-progress uploads can be
// tracked without a barrier between them
const maxParallelSubresourceUpload = 64

// LoadFunc converts width×height×depth texels from src into dst. Pitches are in bytes.
type LoadFunc func(width, height, depth int, src []byte, srcRowPitch, srcDepthPitch int, dst []byte, dstRowPitch, dstDepthPitch int)

// Upload is client texel data to stage into an image
type Upload struct {
	Index   Index
	Extents command.Extent3D
	Offset  command.Offset3D

	Pixels []byte
	// RowPitch, DepthPitch and SkipBytes describe the layout of Pixels
	RowPitch   int
	DepthPitch int
	SkipBytes  int

	// Load writes the data into the staging buffer in the image's storage format. For packed
	// depth/stencil formats, it writes only the depth component.
	Load LoadFunc
	// StencilLoad writes one byte of stencil per texel. It is required when both the source data and
	// the image have depth and stencil.
	StencilLoad LoadFunc

	// SourceHasDepth and SourceHasStencil describe which aspects Pixels carries
	SourceHasDepth   bool
	SourceHasStencil bool
}

// Initial values used for images whose contents must not be observed before they are written
var (
	robustInitColor        = command.ClearColorValue{0, 0, 0, 0}
	emulatedInitColor      = command.ClearColorValue{0, 0, 0, 1}
	robustInitDepthStencil = command.ClearDepthStencilValue{Depth: 1, Stencil: 0}
)

func (h *Helper) HasStagedUpdates() bool {
	return len(h.updates) > 0
}

func (h *Helper) StagedUpdateCount() int {
	return len(h.updates)
}

// StagedUpdates returns the queue of pending updates in the order they will be applied
func (h *Helper) StagedUpdates() []Update {
	return h.updates
}

// AllocateStagingMemory suballocates size bytes from the image's staging buffer
func (h *Helper) AllocateStagingMemory(size int) (buffer.Allocation, common.VkResult, error) {
	return h.staging.Allocate(size)
}

// StageSubresourceUpdate copies client data into the staging buffer and queues copies from it into
// the image. Packed depth/stencil data is split into a depth copy and a stencil copy.
func (h *Helper) StageSubresourceUpdate(upload Upload) (common.VkResult, error) {
	h.logger.Debug("ImageHelper::StageSubresourceUpdate")

	if upload.Load == nil {
		return core1_0.VKErrorUnknown, errors.New("attempted to stage an upload without a load function")
	}
	if upload.SkipBytes < 0 || upload.SkipBytes > len(upload.Pixels) {
		return core1_0.VKErrorUnknown, errors.Newf("skip bytes %d is outside of the %d bytes of pixel data", upload.SkipBytes, len(upload.Pixels))
	}

	extents := upload.Extents
	outputRowPitch, outputDepthPitch, bufferRowLength, bufferImageHeight := h.format.layoutSize(extents.Width, extents.Height)
	allocationSize := outputDepthPitch * extents.Depth

	var stencilAllocationSize int
	if !h.format.IsBlock() && h.format.HasPackedDepthStencil() && upload.SourceHasDepth && upload.SourceHasStencil {
		if upload.StencilLoad == nil {
			return core1_0.VKErrorUnknown, errors.New("attempted to stage packed depth/stencil data without a stencil load function")
		}

		// Stencil is always one byte
		stencilAllocationSize = extents.Width * extents.Height * extents.Depth
		allocationSize += stencilAllocationSize
	}

	allocation, res, err := h.staging.Allocate(allocationSize)
	if err != nil {
		return res, err
	}

	source := upload.Pixels[upload.SkipBytes:]
	upload.Load(extents.Width, extents.Height, extents.Depth, source, upload.RowPitch, upload.DepthPitch,
		allocation.Data, outputRowPitch, outputDepthPitch)

	copyRegion := command.BufferImageCopy{
		BufferOffset:      allocation.Offset,
		BufferRowLength:   bufferRowLength,
		BufferImageHeight: bufferImageHeight,
		ImageSubresource: command.ImageSubresourceLayers{
			MipLevel:   upload.Index.Level,
			LayerCount: upload.Index.layers(h.layerCount),
		},
		ImageOffset: upload.Offset,
		ImageExtent: extents,
	}

	if upload.Index.Array {
		copyRegion.ImageSubresource.BaseArrayLayer = upload.Offset.Z
		copyRegion.ImageOffset.Z = 0
		copyRegion.ImageExtent.Depth = 1
	} else {
		copyRegion.ImageSubresource.BaseArrayLayer = upload.Index.BaseLayer
	}

	aspectFlags := h.format.AspectFlags()

	if stencilAllocationSize > 0 {
		depthSize := outputDepthPitch * extents.Depth

		stencilRowPitch := extents.Width
		stencilDepthPitch := stencilRowPitch * extents.Height
		upload.StencilLoad(extents.Width, extents.Height, extents.Depth, source, upload.RowPitch, upload.DepthPitch,
			allocation.Data[depthSize:], stencilRowPitch, stencilDepthPitch)

		stencilCopy := copyRegion
		stencilCopy.BufferOffset = allocation.Offset + depthSize
		stencilCopy.ImageSubresource.AspectMask = core1_0.ImageAspectStencil
		h.appendUpdate(Update{
			Kind:       UpdateBuffer,
			Buffer:     allocation.Buffer,
			BufferCopy: stencilCopy,
		})

		aspectFlags &^= core1_0.ImageAspectStencil
	}

	depthStencil := core1_0.ImageAspectDepth | core1_0.ImageAspectStencil
	if aspectFlags&depthStencil == depthStencil {
		// The image is packed depth/stencil but only one aspect is being loaded
		if upload.SourceHasStencil {
			aspectFlags &^= core1_0.ImageAspectDepth
		} else {
			aspectFlags &^= core1_0.ImageAspectStencil
		}
	}

	if aspectFlags != 0 {
		copyRegion.ImageSubresource.AspectMask = aspectFlags
		h.appendUpdate(Update{
			Kind:       UpdateBuffer,
			Buffer:     allocation.Buffer,
			BufferCopy: copyRegion,
		})
	}

	return res, nil
}

// StageSubresourceUpdateAndGetData queues a copy into a color image and returns the staging memory
// that the caller must fill with tightly packed texels before the update is flushed
func (h *Helper) StageSubresourceUpdateAndGetData(allocationSize int, index Index, extents command.Extent3D, offset command.Offset3D) ([]byte, common.VkResult, error) {
	h.logger.Debug("ImageHelper::StageSubresourceUpdateAndGetData")

	if h.AspectFlags() != core1_0.ImageAspectColor {
		panic("staged data can only be written directly into color images")
	}

	allocation, res, err := h.staging.Allocate(allocationSize)
	if err != nil {
		return nil, res, err
	}

	h.appendUpdate(Update{
		Kind:   UpdateBuffer,
		Buffer: allocation.Buffer,
		BufferCopy: command.BufferImageCopy{
			BufferOffset:      allocation.Offset,
			BufferRowLength:   extents.Width,
			BufferImageHeight: extents.Height,
			ImageSubresource: command.ImageSubresourceLayers{
				AspectMask:     core1_0.ImageAspectColor,
				MipLevel:       index.Level,
				BaseArrayLayer: index.BaseLayer,
				LayerCount:     index.layers(h.layerCount),
			},
			ImageOffset: offset,
			ImageExtent: extents,
		},
	})

	return allocation.Data, res, nil
}

// StageSubresourceUpdateFromImage queues a copy from src into this image. The update takes ownership
// of src, which is released once the update is applied or dropped. is3D must be set if this image
// is a 3D image.
func (h *Helper) StageSubresourceUpdateFromImage(src *Helper, index Index, dstOffset command.Offset3D, extents command.Extent3D, is3D bool) {
	h.logger.Debug("ImageHelper::StageSubresourceUpdateFromImage")

	layerCount := index.layers(h.layerCount)
	copyRegion := command.ImageCopy{
		SrcSubresource: command.ImageSubresourceLayers{
			AspectMask: core1_0.ImageAspectColor,
			LayerCount: layerCount,
		},
		DstSubresource: command.ImageSubresourceLayers{
			AspectMask: core1_0.ImageAspectColor,
			MipLevel:   index.Level,
		},
		DstOffset: dstOffset,
		Extent:    extents,
	}

	if is3D {
		// 3D images are addressed by offset, and must use the first layer
		copyRegion.DstSubresource.BaseArrayLayer = 0
		copyRegion.DstSubresource.LayerCount = 1
	} else {
		copyRegion.DstSubresource.BaseArrayLayer = index.BaseLayer
		copyRegion.DstSubresource.LayerCount = layerCount
	}

	h.appendUpdate(Update{
		Kind:      UpdateImage,
		Image:     src,
		ImageCopy: copyRegion,
	})
}

// StageSubresourceClear queues a clear. Clears are intended to precede any data already staged, so
// they are placed at the front of the queue.
func (h *Helper) StageSubresourceClear(index Index, color command.ClearColorValue, depthStencil command.ClearDepthStencilValue) {
	h.logger.Debug("ImageHelper::StageSubresourceClear")

	var clearValue command.ClearValue
	if h.format.IsDepthOrStencil() {
		clearValue.DepthStencil = depthStencil
	} else {
		clearValue.Color = color
	}

	layerCount := index.LayerCount
	if layerCount != EntireLevel {
		layerCount = index.layers(h.layerCount)
	}

	h.updates = append(h.updates, Update{})
	copy(h.updates[1:], h.updates)
	h.updates[0] = Update{
		Kind:       UpdateClear,
		ClearValue: clearValue,
		Level:      index.Level,
		BaseLayer:  index.BaseLayer,
		LayerCount: layerCount,
	}
}

// StageSubresourceRobustClear queues a clear to the values that uninitialized images must appear to
// hold
func (h *Helper) StageSubresourceRobustClear(index Index) {
	h.StageSubresourceClear(index, robustInitColor, robustInitDepthStencil)
}

// StageSubresourceEmulatedClear queues a clear that sets emulated alpha channels to one
func (h *Helper) StageSubresourceEmulatedClear(index Index) {
	h.StageSubresourceClear(index, emulatedInitColor, robustInitDepthStencil)
}

// StageClearIfEmulatedFormat queues an emulated clear if format has emulated channels
func (h *Helper) StageClearIfEmulatedFormat(index Index, format *Format) {
	if format.EmulatedChannels {
		h.StageSubresourceEmulatedClear(index)
	}
}

func (h *Helper) appendUpdate(update Update) {
	h.updates = append(h.updates, update)
}

// RemoveStagedUpdates drops every queued update whose base layer and level match
func (h *Helper) RemoveStagedUpdates(level, layer int) {
	h.logger.Debug("ImageHelper::RemoveStagedUpdates")

	remaining := h.updates[:0]
	for i := range h.updates {
		if h.updates[i].isUpdateToLayerLevel(layer, level) {
			h.updates[i].release(h.device)
			continue
		}
		remaining = append(remaining, h.updates[i])
	}

	for i := len(remaining); i < len(h.updates); i++ {
		h.updates[i] = Update{}
	}
	h.updates = remaining
}

// FlushStagedUpdates records every queued update that writes to levels [levelStart, levelEnd) and
// intersects layers [layerStart, layerEnd). Other updates stay queued. Uploads to distinct
// subresources are recorded without barriers between them.
func (h *Helper) FlushStagedUpdates(levelStart, levelEnd, layerStart, layerEnd int, recorder command.Recorder) (common.VkResult, error) {
	h.logger.Debug("ImageHelper::FlushStagedUpdates")

	if len(h.updates) == 0 {
		return core1_0.VKSuccess, nil
	}

	res, err := h.staging.Flush()
	if err != nil {
		return res, errors.Wrap(err, "failed to flush staging buffer")
	}

	var updatesToKeep []Update
	aspectFlags := h.format.AspectFlags()

	// A (level, layer) pair is hashed to (level*layerCount + layer) % 64 to track which subresources
	// are mid-transfer. Beyond 64 subresources, collisions cause some unnecessary barriers.
	var subresourceUploadsInProgress uint64
	var barrierCount, appliedCount int

	// Start in TransferDst
	h.ChangeLayout(aspectFlags, LayoutTransferDst, recorder)

	for i := range h.updates {
		update := &h.updates[i]
		updateMipLevel, updateBaseLayer, updateLayerCount := update.target(h.layerCount)

		isUpdateLevelOutsideRange := updateMipLevel < levelStart || updateMipLevel >= levelEnd
		areUpdateLayersOutsideRange := updateBaseLayer+updateLayerCount <= layerStart || updateBaseLayer >= layerEnd

		if isUpdateLevelOutsideRange || areUpdateLayersOutsideRange {
			updatesToKeep = append(updatesToKeep, *update)
			continue
		}

		if updateLayerCount >= maxParallelSubresourceUpload {
			// There are more subresources than bits to track them with
			h.ChangeLayout(aspectFlags, LayoutTransferDst, recorder)
			barrierCount++
			subresourceUploadsInProgress = math.MaxUint64
		} else {
			subresourceHashRange := uint64(1)<<uint(updateLayerCount) - 1
			subresourceHashOffset := (updateMipLevel*h.layerCount + updateBaseLayer) % maxParallelSubresourceUpload
			subresourceHash := bits.RotateLeft64(subresourceHashRange, subresourceHashOffset)

			if subresourceUploadsInProgress&subresourceHash != 0 {
				h.ChangeLayout(aspectFlags, LayoutTransferDst, recorder)
				barrierCount++
				subresourceUploadsInProgress = 0
			}
			subresourceUploadsInProgress |= subresourceHash
		}

		switch update.Kind {
		case UpdateClear:
			h.Clear(update.ClearValue, updateMipLevel, updateBaseLayer, updateLayerCount, recorder)
		case UpdateBuffer:
			recorder.CopyBufferToImage(update.Buffer, h, h.currentLayout.VulkanLayout(), update.BufferCopy)
			update.Buffer.UpdateSerial(h.device.CurrentSerial())
		case UpdateImage:
			update.Image.ChangeLayout(aspectFlags, LayoutTransferSrc, recorder)

			if h.graph != nil {
				h.graph.AddReadDependency(update.Image, h)
			}

			recorder.CopyImage(update.Image, update.Image.currentLayout.VulkanLayout(), h, h.currentLayout.VulkanLayout(), update.ImageCopy)
			update.Image.UpdateSerial(h.device.CurrentSerial())
		}

		update.release(h.device)
		appliedCount++
	}

	h.serial = h.device.CurrentSerial()

	for i := range h.updates {
		h.updates[i] = Update{}
	}
	h.updates = updatesToKeep

	if len(h.updates) == 0 {
		h.staging.ReleaseInFlightBuffers()
	}

	h.logger.LogAttrs(context.Background(), slog.LevelDebug, "flushed staged updates",
		slog.Int("applied", appliedCount),
		slog.Int("kept", len(h.updates)),
		slog.Int("overlapBarriers", barrierCount),
	)

	return core1_0.VKSuccess, nil
}

// FlushAllStagedUpdates records every queued update
func (h *Helper) FlushAllStagedUpdates(recorder command.Recorder) (common.VkResult, error) {
	return h.FlushStagedUpdates(0, h.levelCount, 0, h.layerCount, recorder)
}
