package vulkan

import (
	"github.com/vkngwrapper/arsenal/helpers/command"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// CommandRecorder records commands directly into an open command buffer
type CommandRecorder struct {
	commandBuffer core1_0.CommandBuffer
}

var _ command.Recorder = &CommandRecorder{}

func NewCommandRecorder(commandBuffer core1_0.CommandBuffer) *CommandRecorder {
	return &CommandRecorder{commandBuffer: commandBuffer}
}

func (r *CommandRecorder) CommandBuffer() core1_0.CommandBuffer {
	return r.commandBuffer
}

func (r *CommandRecorder) PipelineBarrier(barrier command.PipelineBarrier) {
	var memoryBarriers []core1_0.MemoryBarrier
	for _, memBarrier := range barrier.MemoryBarriers {
		memoryBarriers = append(memoryBarriers, core1_0.MemoryBarrier{
			SrcAccessMask: memBarrier.SrcAccessMask,
			DstAccessMask: memBarrier.DstAccessMask,
		})
	}

	var imageBarriers []core1_0.ImageMemoryBarrier
	for _, imageBarrier := range barrier.ImageBarriers {
		imageBarriers = append(imageBarriers, core1_0.ImageMemoryBarrier{
			SrcAccessMask:       imageBarrier.SrcAccessMask,
			DstAccessMask:       imageBarrier.DstAccessMask,
			OldLayout:           imageBarrier.OldLayout,
			NewLayout:           imageBarrier.NewLayout,
			SrcQueueFamilyIndex: int(imageBarrier.SrcQueueFamilyIndex),
			DstQueueFamilyIndex: int(imageBarrier.DstQueueFamilyIndex),
			Image:               imageBarrier.Image.VulkanImage(),
			SubresourceRange:    subresourceRange(imageBarrier.SubresourceRange),
		})
	}

	r.commandBuffer.CmdPipelineBarrier(barrier.SrcStageMask, barrier.DstStageMask, 0, memoryBarriers, nil, imageBarriers)
}

func (r *CommandRecorder) CopyBuffer(src command.Buffer, dst command.Buffer, regions ...command.BufferCopy) {
	copies := make([]core1_0.BufferCopy, 0, len(regions))
	for _, region := range regions {
		copies = append(copies, core1_0.BufferCopy{
			SrcOffset: region.SrcOffset,
			DstOffset: region.DstOffset,
			Size:      region.Size,
		})
	}

	r.commandBuffer.CmdCopyBuffer(src.VulkanBuffer(), dst.VulkanBuffer(), copies)
}

func (r *CommandRecorder) CopyBufferToImage(src command.Buffer, dst command.Image, dstLayout core1_0.ImageLayout, regions ...command.BufferImageCopy) {
	copies := make([]core1_0.BufferImageCopy, 0, len(regions))
	for _, region := range regions {
		copies = append(copies, core1_0.BufferImageCopy{
			BufferOffset:      region.BufferOffset,
			BufferRowLength:   region.BufferRowLength,
			BufferImageHeight: region.BufferImageHeight,
			ImageSubresource:  subresourceLayers(region.ImageSubresource),
			ImageOffset:       offset3D(region.ImageOffset),
			ImageExtent:       extent3D(region.ImageExtent),
		})
	}

	r.commandBuffer.CmdCopyBufferToImage(src.VulkanBuffer(), dst.VulkanImage(), dstLayout, copies)
}

func (r *CommandRecorder) CopyImage(src command.Image, srcLayout core1_0.ImageLayout, dst command.Image, dstLayout core1_0.ImageLayout, regions ...command.ImageCopy) {
	copies := make([]core1_0.ImageCopy, 0, len(regions))
	for _, region := range regions {
		copies = append(copies, core1_0.ImageCopy{
			SrcSubresource: subresourceLayers(region.SrcSubresource),
			SrcOffset:      offset3D(region.SrcOffset),
			DstSubresource: subresourceLayers(region.DstSubresource),
			DstOffset:      offset3D(region.DstOffset),
			Extent:         extent3D(region.Extent),
		})
	}

	r.commandBuffer.CmdCopyImage(src.VulkanImage(), srcLayout, dst.VulkanImage(), dstLayout, copies)
}

func (r *CommandRecorder) BlitImage(src command.Image, srcLayout core1_0.ImageLayout, dst command.Image, dstLayout core1_0.ImageLayout, filter core1_0.Filter, regions ...command.ImageBlit) {
	blits := make([]core1_0.ImageBlit, 0, len(regions))
	for _, region := range regions {
		blits = append(blits, core1_0.ImageBlit{
			SrcSubresource: subresourceLayers(region.SrcSubresource),
			SrcOffsets:     [2]core1_0.Offset3D{offset3D(region.SrcOffsets[0]), offset3D(region.SrcOffsets[1])},
			DstSubresource: subresourceLayers(region.DstSubresource),
			DstOffsets:     [2]core1_0.Offset3D{offset3D(region.DstOffsets[0]), offset3D(region.DstOffsets[1])},
		})
	}

	r.commandBuffer.CmdBlitImage(src.VulkanImage(), srcLayout, dst.VulkanImage(), dstLayout, blits, filter)
}

func (r *CommandRecorder) ResolveImage(src command.Image, srcLayout core1_0.ImageLayout, dst command.Image, dstLayout core1_0.ImageLayout, regions ...command.ImageResolve) {
	resolves := make([]core1_0.ImageResolve, 0, len(regions))
	for _, region := range regions {
		resolves = append(resolves, core1_0.ImageResolve{
			SrcSubresource: subresourceLayers(region.SrcSubresource),
			SrcOffset:      offset3D(region.SrcOffset),
			DstSubresource: subresourceLayers(region.DstSubresource),
			DstOffset:      offset3D(region.DstOffset),
			Extent:         extent3D(region.Extent),
		})
	}

	r.commandBuffer.CmdResolveImage(src.VulkanImage(), srcLayout, dst.VulkanImage(), dstLayout, resolves)
}

func (r *CommandRecorder) ClearColorImage(image command.Image, layout core1_0.ImageLayout, color command.ClearColorValue, ranges ...command.ImageSubresourceRange) {
	r.commandBuffer.CmdClearColorImage(image.VulkanImage(), layout, core1_0.ClearValueFloat(color), subresourceRanges(ranges))
}

func (r *CommandRecorder) ClearDepthStencilImage(image command.Image, layout core1_0.ImageLayout, value command.ClearDepthStencilValue, ranges ...command.ImageSubresourceRange) {
	r.commandBuffer.CmdClearDepthStencilImage(image.VulkanImage(), layout, &core1_0.ClearValueDepthStencil{
		Depth:   value.Depth,
		Stencil: value.Stencil,
	}, subresourceRanges(ranges))
}

func (r *CommandRecorder) ResetQueryPool(queryPool command.QueryPool, firstQuery, queryCount int) {
	r.commandBuffer.CmdResetQueryPool(queryPool.VulkanQueryPool(), firstQuery, queryCount)
}

func (r *CommandRecorder) BeginQuery(queryPool command.QueryPool, query int) {
	r.commandBuffer.CmdBeginQuery(queryPool.VulkanQueryPool(), query, 0)
}

func (r *CommandRecorder) EndQuery(queryPool command.QueryPool, query int) {
	r.commandBuffer.CmdEndQuery(queryPool.VulkanQueryPool(), query)
}

func (r *CommandRecorder) WriteTimestamp(stage core1_0.PipelineStageFlags, queryPool command.QueryPool, query int) {
	r.commandBuffer.CmdWriteTimestamp(stage, queryPool.VulkanQueryPool(), query)
}

func subresourceRange(r command.ImageSubresourceRange) core1_0.ImageSubresourceRange {
	return core1_0.ImageSubresourceRange{
		AspectMask:     r.AspectMask,
		BaseMipLevel:   r.BaseMipLevel,
		LevelCount:     r.LevelCount,
		BaseArrayLayer: r.BaseArrayLayer,
		LayerCount:     r.LayerCount,
	}
}

func subresourceRanges(ranges []command.ImageSubresourceRange) []core1_0.ImageSubresourceRange {
	vulkanRanges := make([]core1_0.ImageSubresourceRange, 0, len(ranges))
	for _, r := range ranges {
		vulkanRanges = append(vulkanRanges, subresourceRange(r))
	}
	return vulkanRanges
}

func subresourceLayers(l command.ImageSubresourceLayers) core1_0.ImageSubresourceLayers {
	return core1_0.ImageSubresourceLayers{
		AspectMask:     l.AspectMask,
		MipLevel:       l.MipLevel,
		BaseArrayLayer: l.BaseArrayLayer,
		LayerCount:     l.LayerCount,
	}
}

func offset3D(o command.Offset3D) core1_0.Offset3D {
	return core1_0.Offset3D{X: o.X, Y: o.Y, Z: o.Z}
}

func extent3D(e command.Extent3D) core1_0.Extent3D {
	return core1_0.Extent3D{Width: e.Width, Height: e.Height, Depth: e.Depth}
}
