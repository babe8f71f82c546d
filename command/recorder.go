package command

import "github.com/vkngwrapper/core/v2/core1_0"

// Recorder appends commands to an open command record. Implementations translate them to native
// command buffer calls or keep them for later replay.
type Recorder interface {
	PipelineBarrier(barrier PipelineBarrier)

	CopyBuffer(src Buffer, dst Buffer, regions ...BufferCopy)
	CopyBufferToImage(src Buffer, dst Image, dstLayout core1_0.ImageLayout, regions ...BufferImageCopy)
	CopyImage(src Image, srcLayout core1_0.ImageLayout, dst Image, dstLayout core1_0.ImageLayout, regions ...ImageCopy)
	BlitImage(src Image, srcLayout core1_0.ImageLayout, dst Image, dstLayout core1_0.ImageLayout, filter core1_0.Filter, regions ...ImageBlit)
	ResolveImage(src Image, srcLayout core1_0.ImageLayout, dst Image, dstLayout core1_0.ImageLayout, regions ...ImageResolve)

	ClearColorImage(image Image, layout core1_0.ImageLayout, color ClearColorValue, ranges ...ImageSubresourceRange)
	ClearDepthStencilImage(image Image, layout core1_0.ImageLayout, value ClearDepthStencilValue, ranges ...ImageSubresourceRange)

	ResetQueryPool(pool QueryPool, firstQuery, queryCount int)
	BeginQuery(pool QueryPool, query int)
	EndQuery(pool QueryPool, query int)
	WriteTimestamp(stage core1_0.PipelineStageFlags, pool QueryPool, query int)
}

// ExecutionBarrier records a barrier that only orders execution at stage, with no memory
// visibility operations
func ExecutionBarrier(recorder Recorder, stage core1_0.PipelineStageFlags) {
	recorder.PipelineBarrier(PipelineBarrier{
		SrcStageMask: stage,
		DstStageMask: stage,
	})
}

// GlobalMemoryBarrier records a barrier covering all memory, rather than a single resource
func GlobalMemoryBarrier(recorder Recorder, srcAccess, dstAccess core1_0.AccessFlags, srcStage, dstStage core1_0.PipelineStageFlags) {
	recorder.PipelineBarrier(PipelineBarrier{
		SrcStageMask: srcStage,
		DstStageMask: dstStage,
		MemoryBarriers: []MemoryBarrier{
			{SrcAccessMask: srcAccess, DstAccessMask: dstAccess},
		},
	})
}

// ImageMemoryBarrier records a barrier for a single image
func ImageMemoryBarrier(recorder Recorder, srcStage, dstStage core1_0.PipelineStageFlags, barrier ImageBarrier) {
	recorder.PipelineBarrier(PipelineBarrier{
		SrcStageMask:  srcStage,
		DstStageMask:  dstStage,
		ImageBarriers: []ImageBarrier{barrier},
	})
}
