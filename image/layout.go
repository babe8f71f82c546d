package image

import (
	"fmt"

	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
)

// Layout is the intended use of an image. Each layout maps to a native image layout along with the
// stages and accesses that must be synchronized when transitioning into or out of it.
type Layout int

const (
	LayoutUndefined Layout = iota
	LayoutExternalPreInitialized
	LayoutTransferSrc
	LayoutTransferDst
	LayoutComputeShaderReadOnly
	LayoutComputeShaderWrite
	LayoutAllGraphicsShadersReadOnly
	LayoutAllGraphicsShadersWrite
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutPresent

	LayoutCount
)

var layoutMapping = map[Layout]string{
	LayoutUndefined:                  "LayoutUndefined",
	LayoutExternalPreInitialized:     "LayoutExternalPreInitialized",
	LayoutTransferSrc:                "LayoutTransferSrc",
	LayoutTransferDst:                "LayoutTransferDst",
	LayoutComputeShaderReadOnly:      "LayoutComputeShaderReadOnly",
	LayoutComputeShaderWrite:         "LayoutComputeShaderWrite",
	LayoutAllGraphicsShadersReadOnly: "LayoutAllGraphicsShadersReadOnly",
	LayoutAllGraphicsShadersWrite:    "LayoutAllGraphicsShadersWrite",
	LayoutColorAttachment:            "LayoutColorAttachment",
	LayoutDepthStencilAttachment:     "LayoutDepthStencilAttachment",
	LayoutPresent:                    "LayoutPresent",
}

func (l Layout) String() string {
	str, ok := layoutMapping[l]
	if !ok {
		return fmt.Sprintf("Layout(%d)", int(l))
	}
	return str
}

// BarrierData describes how to synchronize with an image in a particular Layout
type BarrierData struct {
	Layout core1_0.ImageLayout
	// SrcStageMask is waited on when transitioning out of the layout
	SrcStageMask core1_0.PipelineStageFlags
	// DstStageMask waits on the barrier when transitioning into the layout
	DstStageMask core1_0.PipelineStageFlags
	// DstAccessMask is made visible when transitioning into the layout
	DstAccessMask core1_0.AccessFlags
	// SrcAccessMask is made available when transitioning out of the layout
	SrcAccessMask core1_0.AccessFlags
	// SameLayoutTransitionRequiresBarrier is set for layouts that write. Read-after-read needs no
	// barrier, but a same-layout transition for a writing layout still needs an execution barrier.
	SameLayoutTransitionRequiresBarrier bool
}

var barrierData = [LayoutCount]BarrierData{
	LayoutUndefined: {
		Layout:       core1_0.ImageLayoutUndefined,
		SrcStageMask: core1_0.PipelineStageBottomOfPipe,
		DstStageMask: core1_0.PipelineStageTopOfPipe,
	},
	LayoutExternalPreInitialized: {
		Layout:        core1_0.ImageLayoutPreInitialized,
		SrcStageMask:  core1_0.PipelineStageBottomOfPipe,
		DstStageMask:  core1_0.PipelineStageHost | core1_0.PipelineStageAllCommands,
		SrcAccessMask: core1_0.AccessMemoryWrite,
	},
	LayoutTransferSrc: {
		Layout:        core1_0.ImageLayoutTransferSrcOptimal,
		SrcStageMask:  core1_0.PipelineStageTransfer,
		DstStageMask:  core1_0.PipelineStageTransfer,
		DstAccessMask: core1_0.AccessTransferRead,
	},
	LayoutTransferDst: {
		Layout:                              core1_0.ImageLayoutTransferDstOptimal,
		SrcStageMask:                        core1_0.PipelineStageTransfer,
		DstStageMask:                        core1_0.PipelineStageTransfer,
		DstAccessMask:                       core1_0.AccessTransferWrite,
		SrcAccessMask:                       core1_0.AccessTransferWrite,
		SameLayoutTransitionRequiresBarrier: true,
	},
	LayoutComputeShaderReadOnly: {
		Layout:        core1_0.ImageLayoutShaderReadOnlyOptimal,
		SrcStageMask:  core1_0.PipelineStageComputeShader,
		DstStageMask:  core1_0.PipelineStageComputeShader,
		DstAccessMask: core1_0.AccessShaderRead,
	},
	LayoutComputeShaderWrite: {
		Layout:                              core1_0.ImageLayoutGeneral,
		SrcStageMask:                        core1_0.PipelineStageComputeShader,
		DstStageMask:                        core1_0.PipelineStageComputeShader,
		DstAccessMask:                       core1_0.AccessShaderRead | core1_0.AccessShaderWrite,
		SrcAccessMask:                       core1_0.AccessShaderWrite,
		SameLayoutTransitionRequiresBarrier: true,
	},
	LayoutAllGraphicsShadersReadOnly: {
		Layout:        core1_0.ImageLayoutShaderReadOnlyOptimal,
		SrcStageMask:  core1_0.PipelineStageAllGraphics,
		DstStageMask:  core1_0.PipelineStageAllGraphics,
		DstAccessMask: core1_0.AccessShaderRead,
	},
	LayoutAllGraphicsShadersWrite: {
		Layout:                              core1_0.ImageLayoutGeneral,
		SrcStageMask:                        core1_0.PipelineStageAllGraphics,
		DstStageMask:                        core1_0.PipelineStageAllGraphics,
		DstAccessMask:                       core1_0.AccessShaderRead | core1_0.AccessShaderWrite,
		SrcAccessMask:                       core1_0.AccessShaderWrite,
		SameLayoutTransitionRequiresBarrier: true,
	},
	LayoutColorAttachment: {
		Layout:                              core1_0.ImageLayoutColorAttachmentOptimal,
		SrcStageMask:                        core1_0.PipelineStageColorAttachmentOutput,
		DstStageMask:                        core1_0.PipelineStageColorAttachmentOutput,
		DstAccessMask:                       core1_0.AccessColorAttachmentRead | core1_0.AccessColorAttachmentWrite,
		SrcAccessMask:                       core1_0.AccessColorAttachmentWrite,
		SameLayoutTransitionRequiresBarrier: true,
	},
	LayoutDepthStencilAttachment: {
		Layout:                              core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		SrcStageMask:                        core1_0.PipelineStageEarlyFragmentTests | core1_0.PipelineStageLateFragmentTests,
		DstStageMask:                        core1_0.PipelineStageEarlyFragmentTests | core1_0.PipelineStageLateFragmentTests,
		DstAccessMask:                       core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
		SrcAccessMask:                       core1_0.AccessDepthStencilAttachmentWrite,
		SameLayoutTransitionRequiresBarrier: true,
	},
	// Presentation makes prior writes visible on its own, so no accesses are listed
	LayoutPresent: {
		Layout:       khr_swapchain.ImageLayoutPresentSrc,
		SrcStageMask: core1_0.PipelineStageBottomOfPipe,
		DstStageMask: core1_0.PipelineStageTopOfPipe,
	},
}

// BarrierData returns the synchronization metadata for the layout. It panics for values outside
// the enumeration.
func (l Layout) BarrierData() BarrierData {
	if l < 0 || l >= LayoutCount {
		panic(fmt.Sprintf("no barrier data for %s", l))
	}
	return barrierData[l]
}

// VulkanLayout is the native image layout for l
func (l Layout) VulkanLayout() core1_0.ImageLayout {
	return l.BarrierData().Layout
}
