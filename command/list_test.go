package command

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
)

type fakeImage struct {
	name string
}

func (i *fakeImage) VulkanImage() core1_0.Image { return nil }

type fakeBuffer struct {
	name string
}

func (b *fakeBuffer) VulkanBuffer() core1_0.Buffer { return nil }

func TestList_RecordAndReplay(t *testing.T) {
	src := &fakeImage{name: "src"}
	dst := &fakeImage{name: "dst"}
	staging := &fakeBuffer{name: "staging"}

	list := NewList()
	ExecutionBarrier(list, core1_0.PipelineStageTransfer)
	GlobalMemoryBarrier(list, core1_0.AccessTransferWrite, core1_0.AccessShaderRead,
		core1_0.PipelineStageTransfer, core1_0.PipelineStageAllCommands)
	ImageMemoryBarrier(list, core1_0.PipelineStageTopOfPipe, core1_0.PipelineStageTransfer, ImageBarrier{
		Image:               dst,
		DstAccessMask:       core1_0.AccessTransferWrite,
		OldLayout:           core1_0.ImageLayoutUndefined,
		NewLayout:           core1_0.ImageLayoutTransferDstOptimal,
		SrcQueueFamilyIndex: QueueFamilyIgnored,
		DstQueueFamilyIndex: QueueFamilyIgnored,
	})
	list.CopyBufferToImage(staging, dst, core1_0.ImageLayoutTransferDstOptimal, BufferImageCopy{BufferOffset: 64})
	list.CopyImage(src, core1_0.ImageLayoutTransferSrcOptimal, dst, core1_0.ImageLayoutTransferDstOptimal, ImageCopy{
		Extent: Extent3D{Width: 4, Height: 4, Depth: 1},
	})
	list.ClearColorImage(dst, core1_0.ImageLayoutTransferDstOptimal, ClearColorValue{0, 0, 0, 1})

	require.Equal(t, 6, list.Len())
	require.Equal(t, 3, list.Count(KindPipelineBarrier))
	require.Equal(t, 1, list.Count(KindCopyImage))
	require.Equal(t, 0, list.Count(KindBlitImage))

	commands := list.Commands()
	require.True(t, commands[0].Barrier.IsExecutionOnly())
	require.False(t, commands[1].Barrier.IsExecutionOnly())
	require.False(t, commands[2].Barrier.IsExecutionOnly())
	require.Same(t, dst, commands[2].Barrier.ImageBarriers[0].Image)
	require.Same(t, staging, commands[3].SrcBuffer)
	require.Equal(t, 64, commands[3].BufferImageCopies[0].BufferOffset)

	replayed := NewList()
	list.Replay(replayed)
	require.Equal(t, list.Commands(), replayed.Commands())

	list.Reset()
	require.Equal(t, 0, list.Len())
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "CopyBufferToImage", KindCopyBufferToImage.String())
	require.Equal(t, "WriteTimestamp", KindWriteTimestamp.String())
	require.Equal(t, "Kind(99)", Kind(99).String())
}
