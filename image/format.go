package image

import (
	"github.com/vkngwrapper/arsenal/helpers/memutils"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Format describes the storage of an image's texels
type Format struct {
	VulkanFormat core1_0.Format

	// PixelBytes is the size of one texel. It is unused for block-compressed formats.
	PixelBytes  int
	DepthBits   int
	StencilBits int

	// BlockWidth, BlockHeight and BlockBytes describe block-compressed formats and are zero
	// otherwise
	BlockWidth  int
	BlockHeight int
	BlockBytes  int

	// EmulatedChannels is set when the storage format has channels that the requested format
	// lacks. Those channels must be initialized with a clear before the image is sampled.
	EmulatedChannels bool
}

func (f *Format) IsBlock() bool {
	return f.BlockWidth > 0
}

func (f *Format) IsDepthOrStencil() bool {
	return f.DepthBits > 0 || f.StencilBits > 0
}

// HasPackedDepthStencil is set for formats that hold depth and stencil in the same texel. Uploads
// to those formats are split into a depth copy and a one-byte-per-texel stencil copy.
func (f *Format) HasPackedDepthStencil() bool {
	return f.DepthBits > 0 && f.StencilBits > 0
}

// AspectFlags is the set of aspects that make up an image of this format
func (f *Format) AspectFlags() core1_0.ImageAspectFlags {
	var aspects core1_0.ImageAspectFlags
	if f.DepthBits > 0 {
		aspects |= core1_0.ImageAspectDepth
	}
	if f.StencilBits > 0 {
		aspects |= core1_0.ImageAspectStencil
	}
	if aspects == 0 {
		aspects = core1_0.ImageAspectColor
	}
	return aspects
}

// depthUploadTexelBytes is the size of one texel of tightly packed depth data in a buffer-to-image
// copy
func (f *Format) depthUploadTexelBytes() int {
	if !f.HasPackedDepthStencil() {
		return f.PixelBytes
	}

	if f.DepthBits <= 16 {
		return 2
	}
	return 4
}

// ImageCopyBufferAlignment is the alignment of buffer offsets used to copy into an image of this
// format. Offsets must be a multiple of the texel block size, and depth/stencil copies must also be
// a multiple of 4.
func (f *Format) ImageCopyBufferAlignment() int {
	if f.IsBlock() {
		return f.BlockBytes
	}
	if f.IsDepthOrStencil() {
		return 4
	}
	if f.PixelBytes == 0 {
		return 1
	}
	return f.PixelBytes
}

// layoutSize computes the pitches of tightly packed width×height texel data
func (f *Format) layoutSize(width, height int) (rowPitch, depthPitch, rowLength, imageHeight int) {
	if f.IsBlock() {
		blocksWide := (width + f.BlockWidth - 1) / f.BlockWidth
		blocksHigh := (height + f.BlockHeight - 1) / f.BlockHeight

		rowPitch = blocksWide * f.BlockBytes
		depthPitch = rowPitch * blocksHigh
		rowLength = memutils.RoundUp(width, f.BlockWidth)
		imageHeight = memutils.RoundUp(height, f.BlockHeight)
		return rowPitch, depthPitch, rowLength, imageHeight
	}

	rowPitch = f.depthUploadTexelBytes() * width
	depthPitch = rowPitch * height
	return rowPitch, depthPitch, width, height
}
