package vulkan

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
)

func discreteMemoryTypes() *MemoryTypes {
	return NewMemoryTypes(&core1_0.PhysicalDeviceMemoryProperties{
		MemoryTypes: []core1_0.MemoryType{
			{PropertyFlags: core1_0.MemoryPropertyDeviceLocal, HeapIndex: 0},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent, HeapIndex: 1},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCached, HeapIndex: 1},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible, HeapIndex: 1},
		},
		MemoryHeaps: []core1_0.MemoryHeap{
			{Size: 8 * 1024 * 1024 * 1024, Flags: core1_0.MemoryHeapDeviceLocal},
			{Size: 16 * 1024 * 1024 * 1024},
		},
	})
}

func TestFindMemoryTypeIndex_HostVisible(t *testing.T) {
	memoryTypes := discreteMemoryTypes()

	required, preferred, notPreferred := BackingPreferences(true)
	index, _, err := memoryTypes.FindMemoryTypeIndex(0xffffffff, required, preferred, notPreferred)
	require.NoError(t, err)
	require.Equal(t, 1, index)
	require.False(t, memoryTypes.IsMemoryTypeHostNonCoherent(index))

	// Type 1 banned: the plain non-coherent host type wins over the cached one
	index, _, err = memoryTypes.FindMemoryTypeIndex(0xffffffff&^(1<<1), required, preferred, notPreferred)
	require.NoError(t, err)
	require.Equal(t, 3, index)
	require.True(t, memoryTypes.IsMemoryTypeHostNonCoherent(index))
	require.True(t, memoryTypes.IsMemoryTypeHostVisible(index))
	require.Equal(t, 1, memoryTypes.MemoryTypeIndexToHeapIndex(index))
}

func TestFindMemoryTypeIndex_DeviceLocal(t *testing.T) {
	memoryTypes := discreteMemoryTypes()

	required, preferred, notPreferred := BackingPreferences(false)
	index, _, err := memoryTypes.FindMemoryTypeIndex(0xffffffff, required, preferred, notPreferred)
	require.NoError(t, err)
	require.Equal(t, 0, index)
	require.False(t, memoryTypes.IsMemoryTypeHostVisible(index))

	// Device local memory not allowed, fall back to host memory
	index, _, err = memoryTypes.FindMemoryTypeIndex(1<<2, required, preferred, notPreferred)
	require.NoError(t, err)
	require.Equal(t, 2, index)
}

func TestFindMemoryTypeIndex_NoMatch(t *testing.T) {
	memoryTypes := discreteMemoryTypes()

	required, preferred, notPreferred := BackingPreferences(true)
	index, res, err := memoryTypes.FindMemoryTypeIndex(1<<0, required, preferred, notPreferred)
	require.Error(t, err)
	require.Equal(t, -1, index)
	require.Equal(t, core1_0.VKErrorFeatureNotPresent, res)
}
