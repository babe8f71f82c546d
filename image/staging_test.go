package image_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/arsenal/helpers/buffer/buffertest"
	"github.com/vkngwrapper/arsenal/helpers/command"
	"github.com/vkngwrapper/arsenal/helpers/graph"
	"github.com/vkngwrapper/arsenal/helpers/image"
	"github.com/vkngwrapper/core/v2/core1_0"
)

func copyLoad(width, height, depth int, src []byte, srcRowPitch, srcDepthPitch int, dst []byte, dstRowPitch, dstDepthPitch int) {
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			copy(dst[z*dstDepthPitch+y*dstRowPitch:][:dstRowPitch], src[z*srcDepthPitch+y*srcRowPitch:])
		}
	}
}

func fillLoad(value byte) image.LoadFunc {
	return func(width, height, depth int, src []byte, srcRowPitch, srcDepthPitch int, dst []byte, dstRowPitch, dstDepthPitch int) {
		for i := 0; i < depth*dstDepthPitch; i++ {
			dst[i] = value
		}
	}
}

func colorUpload(level, layer, size int) image.Upload {
	pixels := make([]byte, size*size*4)
	for i := range pixels {
		pixels[i] = byte(i)
	}

	return image.Upload{
		Index:      image.Index{Level: level, BaseLayer: layer, LayerCount: 1},
		Extents:    command.Extent3D{Width: size, Height: size, Depth: 1},
		Pixels:     pixels,
		RowPitch:   size * 4,
		DepthPitch: size * size * 4,
		Load:       copyLoad,
	}
}

func TestHelper_StageSubresourceUpdate(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{})

	upload := colorUpload(0, 0, 4)
	upload.Offset = command.Offset3D{X: 1, Y: 2}
	_, err := helper.StageSubresourceUpdate(upload)
	require.NoError(t, err)

	updates := helper.StagedUpdates()
	require.Len(t, updates, 1)
	require.Equal(t, image.UpdateBuffer, updates[0].Kind)
	require.Equal(t, command.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   4,
		BufferImageHeight: 4,
		ImageSubresource: command.ImageSubresourceLayers{
			AspectMask: core1_0.ImageAspectColor,
			LayerCount: 1,
		},
		ImageOffset: command.Offset3D{X: 1, Y: 2},
		ImageExtent: command.Extent3D{Width: 4, Height: 4, Depth: 1},
	}, updates[0].BufferCopy)

	// The texels were written into the staging buffer
	require.Len(t, device.Allocated, 1)
	require.Equal(t, upload.Pixels, device.Allocated[0].Bytes()[:64])
}

func TestHelper_StageSubresourceUpdate_SkipBytes(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{})

	upload := colorUpload(0, 0, 1)
	upload.Pixels = []byte{0xFF, 0xFF, 1, 2, 3, 4}
	upload.SkipBytes = 2
	_, err := helper.StageSubresourceUpdate(upload)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, device.Allocated[0].Bytes()[:4])

	upload.SkipBytes = 7
	_, err = helper.StageSubresourceUpdate(upload)
	require.Error(t, err)

	upload.SkipBytes = 0
	upload.Load = nil
	_, err = helper.StageSubresourceUpdate(upload)
	require.Error(t, err)
	require.Equal(t, 1, helper.StagedUpdateCount())
}

func TestHelper_StageSubresourceUpdate_ArrayUsesOffsetZ(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{layers: 6})

	upload := colorUpload(0, 0, 2)
	upload.Index = image.Index{Array: true, LayerCount: 2}
	upload.Offset = command.Offset3D{X: 1, Z: 3}
	upload.Extents.Depth = 2
	upload.Pixels = make([]byte, 2*2*2*4)
	_, err := helper.StageSubresourceUpdate(upload)
	require.NoError(t, err)

	bufferCopy := helper.StagedUpdates()[0].BufferCopy
	require.Equal(t, 3, bufferCopy.ImageSubresource.BaseArrayLayer)
	require.Equal(t, 2, bufferCopy.ImageSubresource.LayerCount)
	require.Equal(t, command.Offset3D{X: 1}, bufferCopy.ImageOffset)
	require.Equal(t, 1, bufferCopy.ImageExtent.Depth)
}

func TestHelper_StagePackedDepthStencil(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{format: depthStencilFormat, width: 2, height: 2})

	_, err := helper.StageSubresourceUpdate(image.Upload{
		Extents:          command.Extent3D{Width: 2, Height: 2, Depth: 1},
		Pixels:           make([]byte, 16),
		RowPitch:         8,
		DepthPitch:       16,
		Load:             fillLoad(0xAA),
		StencilLoad:      fillLoad(0x55),
		SourceHasDepth:   true,
		SourceHasStencil: true,
	})
	require.NoError(t, err)

	// The stencil copy reads the one-byte-per-texel data that follows the depth data
	updates := helper.StagedUpdates()
	require.Len(t, updates, 2)
	require.Equal(t, core1_0.ImageAspectStencil, updates[0].BufferCopy.ImageSubresource.AspectMask)
	require.Equal(t, 16, updates[0].BufferCopy.BufferOffset)
	require.Equal(t, core1_0.ImageAspectDepth, updates[1].BufferCopy.ImageSubresource.AspectMask)
	require.Equal(t, 0, updates[1].BufferCopy.BufferOffset)

	data := device.Allocated[0].Bytes()
	for i := 0; i < 16; i++ {
		require.Equal(t, byte(0xAA), data[i])
	}
	for i := 16; i < 20; i++ {
		require.Equal(t, byte(0x55), data[i])
	}

	_, err = helper.StageSubresourceUpdate(image.Upload{
		Extents:        command.Extent3D{Width: 2, Height: 2, Depth: 1},
		Pixels:         make([]byte, 16),
		Load:           fillLoad(0),
		SourceHasDepth: true,
	})
	require.NoError(t, err)
	require.Equal(t, core1_0.ImageAspectDepth, helper.StagedUpdates()[2].BufferCopy.ImageSubresource.AspectMask)

	_, err = helper.StageSubresourceUpdate(image.Upload{
		Extents:          command.Extent3D{Width: 2, Height: 2, Depth: 1},
		Pixels:           make([]byte, 4),
		Load:             fillLoad(0),
		SourceHasStencil: true,
	})
	require.NoError(t, err)
	require.Equal(t, core1_0.ImageAspectStencil, helper.StagedUpdates()[3].BufferCopy.ImageSubresource.AspectMask)

	_, err = helper.StageSubresourceUpdate(image.Upload{
		Extents:          command.Extent3D{Width: 2, Height: 2, Depth: 1},
		Pixels:           make([]byte, 16),
		Load:             fillLoad(0),
		SourceHasDepth:   true,
		SourceHasStencil: true,
	})
	require.Error(t, err)
}

func TestHelper_StageBlockCompressed(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{format: blockFormat, width: 8, height: 8})
	require.Equal(t, 8, helper.StagingBuffer().Alignment())

	var rowPitch, depthPitch int
	_, err := helper.StageSubresourceUpdate(image.Upload{
		Extents: command.Extent3D{Width: 6, Height: 6, Depth: 1},
		Pixels:  make([]byte, 32),
		Load: func(width, height, depth int, src []byte, srcRowPitch, srcDepthPitch int, dst []byte, dstRowPitch, dstDepthPitch int) {
			rowPitch = dstRowPitch
			depthPitch = dstDepthPitch
		},
	})
	require.NoError(t, err)

	require.Equal(t, 16, rowPitch)
	require.Equal(t, 32, depthPitch)

	bufferCopy := helper.StagedUpdates()[0].BufferCopy
	require.Equal(t, 8, bufferCopy.BufferRowLength)
	require.Equal(t, 8, bufferCopy.BufferImageHeight)
	require.Equal(t, command.Extent3D{Width: 6, Height: 6, Depth: 1}, bufferCopy.ImageExtent)
}

func TestHelper_StageSubresourceUpdateAndGetData(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{levels: 2})

	data, _, err := helper.StageSubresourceUpdateAndGetData(16, image.Index{Level: 1}, command.Extent3D{Width: 2, Height: 2, Depth: 1}, command.Offset3D{})
	require.NoError(t, err)
	require.Len(t, data, 16)
	data[3] = 42
	require.Equal(t, byte(42), device.Allocated[0].Bytes()[3])

	bufferCopy := helper.StagedUpdates()[0].BufferCopy
	require.Equal(t, 1, bufferCopy.ImageSubresource.MipLevel)
	require.Equal(t, 2, bufferCopy.BufferRowLength)

	depth, _ := newTestImage(t, device, testImageOptions{format: depthStencilFormat})
	require.Panics(t, func() {
		_, _, _ = depth.StageSubresourceUpdateAndGetData(16, image.Index{}, command.Extent3D{Width: 2, Height: 2, Depth: 1}, command.Offset3D{})
	})
}

func TestHelper_StageSubresourceUpdateFromImage(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{layers: 4})
	source, _ := newTestImage(t, device, testImageOptions{layers: 2})

	helper.StageSubresourceUpdateFromImage(source, image.Index{BaseLayer: 2, LayerCount: 2}, command.Offset3D{}, command.Extent3D{Width: 4, Height: 4, Depth: 1}, false)
	imageCopy := helper.StagedUpdates()[0].ImageCopy
	require.Equal(t, 2, imageCopy.SrcSubresource.LayerCount)
	require.Equal(t, 2, imageCopy.DstSubresource.BaseArrayLayer)
	require.Equal(t, 2, imageCopy.DstSubresource.LayerCount)

	volume, _ := newTestImage(t, device, testImageOptions{})
	volume.StageSubresourceUpdateFromImage(source, image.Index{BaseLayer: 2, LayerCount: 2}, command.Offset3D{Z: 1}, command.Extent3D{Width: 4, Height: 4, Depth: 2}, true)
	imageCopy = volume.StagedUpdates()[0].ImageCopy
	require.Equal(t, 0, imageCopy.DstSubresource.BaseArrayLayer)
	require.Equal(t, 1, imageCopy.DstSubresource.LayerCount)
	require.Equal(t, command.Offset3D{Z: 1}, imageCopy.DstOffset)
}

func TestHelper_ClearsAreStagedFirst(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{})

	_, err := helper.StageSubresourceUpdate(colorUpload(0, 0, 4))
	require.NoError(t, err)
	helper.StageSubresourceRobustClear(image.Index{LayerCount: image.EntireLevel})
	helper.StageClearIfEmulatedFormat(image.Index{}, colorFormat)
	helper.StageClearIfEmulatedFormat(image.Index{}, &image.Format{PixelBytes: 4, EmulatedChannels: true})

	updates := helper.StagedUpdates()
	require.Len(t, updates, 3)
	require.Equal(t, image.UpdateClear, updates[0].Kind)
	require.Equal(t, command.ClearColorValue{0, 0, 0, 1}, updates[0].ClearValue.Color)
	require.Equal(t, image.UpdateClear, updates[1].Kind)
	require.Equal(t, command.ClearColorValue{0, 0, 0, 0}, updates[1].ClearValue.Color)
	require.Equal(t, image.EntireLevel, updates[1].LayerCount)
	require.Equal(t, image.UpdateBuffer, updates[2].Kind)

	list := command.NewList()
	_, err = helper.FlushAllStagedUpdates(list)
	require.NoError(t, err)

	var kinds []command.Kind
	for _, c := range list.Commands() {
		if c.Kind != command.KindPipelineBarrier {
			kinds = append(kinds, c.Kind)
		}
	}
	require.Equal(t, []command.Kind{command.KindClearColorImage, command.KindClearColorImage, command.KindCopyBufferToImage}, kinds)
}

func TestHelper_RobustClearOfDepthStencil(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{format: depthStencilFormat})

	helper.StageSubresourceRobustClear(image.Index{})

	list := command.NewList()
	_, err := helper.FlushAllStagedUpdates(list)
	require.NoError(t, err)

	clear := list.Commands()[list.Len()-1]
	require.Equal(t, command.KindClearDepthStencilImage, clear.Kind)
	require.Equal(t, command.ClearDepthStencilValue{Depth: 1, Stencil: 0}, clear.ClearDepthStencil)
}

func TestHelper_FlushStagedUpdatesWindow(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{levels: 2})

	_, err := helper.StageSubresourceUpdate(colorUpload(0, 0, 4))
	require.NoError(t, err)
	_, err = helper.StageSubresourceUpdate(colorUpload(1, 0, 2))
	require.NoError(t, err)

	list := command.NewList()
	_, err = helper.FlushStagedUpdates(0, 1, 0, 1, list)
	require.NoError(t, err)

	require.Equal(t, 1, list.Count(command.KindCopyBufferToImage))
	require.Equal(t, image.LayoutTransferDst, helper.CurrentLayout())
	require.Equal(t, device.CurrentSerial(), helper.Serial())
	require.Equal(t, 1, helper.StagedUpdateCount())
	require.Equal(t, 1, helper.StagedUpdates()[0].BufferCopy.ImageSubresource.MipLevel)

	// Staged data was flushed before any copy was recorded
	require.Equal(t, []buffertest.Range{{Offset: 0, Size: 80}}, device.Allocated[0].Flushes)

	list.Reset()
	_, err = helper.FlushStagedUpdates(1, 2, 0, 1, list)
	require.NoError(t, err)
	require.Equal(t, 1, list.Count(command.KindCopyBufferToImage))
	require.False(t, helper.HasStagedUpdates())

	copies := list.Commands()[list.Len()-1]
	require.Equal(t, core1_0.ImageLayoutTransferDstOptimal, copies.DstLayout)

	// With nothing staged, flushing records nothing
	list.Reset()
	_, err = helper.FlushAllStagedUpdates(list)
	require.NoError(t, err)
	require.Equal(t, 0, list.Len())
}

func TestHelper_FlushStagedUpdatesLayerWindow(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{layers: 4})

	_, err := helper.StageSubresourceUpdate(colorUpload(0, 0, 4))
	require.NoError(t, err)
	_, err = helper.StageSubresourceUpdate(colorUpload(0, 3, 4))
	require.NoError(t, err)

	list := command.NewList()
	_, err = helper.FlushStagedUpdates(0, 1, 1, 4, list)
	require.NoError(t, err)

	require.Equal(t, 1, list.Count(command.KindCopyBufferToImage))
	require.Equal(t, 0, helper.StagedUpdates()[0].BufferCopy.ImageSubresource.BaseArrayLayer)
}

func TestHelper_FlushBarriersBetweenOverlappingUpdates(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{layers: 2})

	_, err := helper.StageSubresourceUpdate(colorUpload(0, 0, 4))
	require.NoError(t, err)
	_, err = helper.StageSubresourceUpdate(colorUpload(0, 1, 4))
	require.NoError(t, err)

	list := command.NewList()
	_, err = helper.FlushAllStagedUpdates(list)
	require.NoError(t, err)

	// Uploads to different layers only need the initial transition
	require.Equal(t, 2, list.Count(command.KindCopyBufferToImage))
	require.Equal(t, 1, list.Count(command.KindPipelineBarrier))

	_, err = helper.StageSubresourceUpdate(colorUpload(0, 1, 4))
	require.NoError(t, err)
	_, err = helper.StageSubresourceUpdate(colorUpload(0, 1, 4))
	require.NoError(t, err)

	list.Reset()
	_, err = helper.FlushAllStagedUpdates(list)
	require.NoError(t, err)

	// The image is already in TransferDst, which needs a barrier before the first upload, and the
	// second upload overlaps the first
	barriers := pipelineBarriers(list)
	require.Len(t, barriers, 2)
	require.True(t, barriers[0].IsExecutionOnly())
	require.True(t, barriers[1].IsExecutionOnly())
	require.Equal(t, command.KindPipelineBarrier, list.Commands()[2].Kind)
}

func TestHelper_FlushManyLayersAlwaysBarriers(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{layers: 64})

	helper.StageSubresourceRobustClear(image.Index{LayerCount: image.EntireLevel})
	helper.StageSubresourceRobustClear(image.Index{LayerCount: image.EntireLevel})

	list := command.NewList()
	_, err := helper.FlushAllStagedUpdates(list)
	require.NoError(t, err)

	require.Equal(t, 2, list.Count(command.KindClearColorImage))
	require.Equal(t, 3, list.Count(command.KindPipelineBarrier))

	clear := list.Commands()[list.Len()-1]
	require.Equal(t, 64, clear.Ranges[0].LayerCount)
}

func TestHelper_FlushImageUpdate(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	dependencies := graph.New[*image.Helper](testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{graph: dependencies})
	source, sourceResource := newTestImage(t, device, testImageOptions{})

	helper.StageSubresourceUpdateFromImage(source, image.Index{}, command.Offset3D{}, command.Extent3D{Width: 4, Height: 4, Depth: 1}, false)

	list := command.NewList()
	_, err := helper.FlushAllStagedUpdates(list)
	require.NoError(t, err)

	require.Equal(t, 1, list.Count(command.KindCopyImage))
	copies := list.Commands()[list.Len()-1]
	require.Equal(t, core1_0.ImageLayoutTransferSrcOptimal, copies.SrcLayout)
	require.Equal(t, core1_0.ImageLayoutTransferDstOptimal, copies.DstLayout)

	require.Equal(t, []*image.Helper{helper}, dependencies.Readers(source))
	order, err := dependencies.SubmissionOrder()
	require.NoError(t, err)
	require.Equal(t, []*image.Helper{source, helper}, order)

	// The source is owned by the update, so it is released once the copy is recorded
	require.False(t, source.Valid())
	require.Equal(t, 0, sourceResource.destroyed)
	device.Retire()
	require.Equal(t, 1, sourceResource.destroyed)
}

func TestHelper_RemoveStagedUpdates(t *testing.T) {
	device := buffertest.NewDevice(testLogger())
	helper, _ := newTestImage(t, device, testImageOptions{levels: 2})
	source, sourceResource := newTestImage(t, device, testImageOptions{})

	_, err := helper.StageSubresourceUpdate(colorUpload(0, 0, 4))
	require.NoError(t, err)
	_, err = helper.StageSubresourceUpdate(colorUpload(1, 0, 2))
	require.NoError(t, err)
	helper.StageSubresourceUpdateFromImage(source, image.Index{Level: 1}, command.Offset3D{}, command.Extent3D{Width: 2, Height: 2, Depth: 1}, false)
	helper.StageSubresourceRobustClear(image.Index{Level: 1})

	helper.RemoveStagedUpdates(1, 0)

	require.Equal(t, 1, helper.StagedUpdateCount())
	require.Equal(t, 0, helper.StagedUpdates()[0].BufferCopy.ImageSubresource.MipLevel)

	device.Retire()
	require.Equal(t, 1, sourceResource.destroyed)
}
