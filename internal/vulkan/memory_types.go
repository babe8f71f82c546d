package vulkan

import (
	"math"
	"math/bits"

	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// MemoryTypes answers memory type questions for a single physical device
type MemoryTypes struct {
	memoryProperties *core1_0.PhysicalDeviceMemoryProperties
}

func NewMemoryTypes(memoryProperties *core1_0.PhysicalDeviceMemoryProperties) *MemoryTypes {
	return &MemoryTypes{memoryProperties: memoryProperties}
}

func (m *MemoryTypes) MemoryTypeCount() int {
	return len(m.memoryProperties.MemoryTypes)
}

func (m *MemoryTypes) MemoryTypeProperties(memoryTypeIndex int) core1_0.MemoryType {
	return m.memoryProperties.MemoryTypes[memoryTypeIndex]
}

func (m *MemoryTypes) MemoryTypeIndexToHeapIndex(memoryTypeIndex int) int {
	return m.memoryProperties.MemoryTypes[memoryTypeIndex].HeapIndex
}

func (m *MemoryTypes) IsMemoryTypeHostVisible(memoryTypeIndex int) bool {
	return m.memoryProperties.MemoryTypes[memoryTypeIndex].PropertyFlags&core1_0.MemoryPropertyHostVisible != 0
}

func (m *MemoryTypes) IsMemoryTypeHostNonCoherent(memoryTypeIndex int) bool {
	flags := m.memoryProperties.MemoryTypes[memoryTypeIndex].PropertyFlags

	return flags&(core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent) == core1_0.MemoryPropertyHostVisible
}

// BackingPreferences returns the memory property flags used to place a suballocator's backing buffer.
// Host-visible buffers are written sequentially by the CPU, so cached memory is not preferred.
func BackingPreferences(hostVisible bool) (requiredFlags, preferredFlags, notPreferredFlags core1_0.MemoryPropertyFlags) {
	if hostVisible {
		return core1_0.MemoryPropertyHostVisible, 0, core1_0.MemoryPropertyHostCached
	}

	return 0, core1_0.MemoryPropertyDeviceLocal, core1_0.MemoryPropertyHostVisible
}

// FindMemoryTypeIndex picks the memory type allowed by memoryTypeBits that has every required flag and
// the fewest missing preferred flags plus present not-preferred flags
func (m *MemoryTypes) FindMemoryTypeIndex(
	memoryTypeBits uint32,
	requiredFlags, preferredFlags, notPreferredFlags core1_0.MemoryPropertyFlags,
) (int, common.VkResult, error) {
	bestMemoryTypeIndex := -1
	minCost := math.MaxInt

	for memTypeIndex := 0; memTypeIndex < m.MemoryTypeCount(); memTypeIndex++ {
		memTypeBit := uint32(1 << memTypeIndex)

		if memTypeBit&memoryTypeBits == 0 {
			continue
		}

		flags := m.memoryProperties.MemoryTypes[memTypeIndex].PropertyFlags
		if requiredFlags&flags != requiredFlags {
			continue
		}

		missingPreferredFlags := preferredFlags & ^flags
		presentNotPreferredFlags := notPreferredFlags & flags
		cost := bits.OnesCount32(uint32(missingPreferredFlags)) + bits.OnesCount32(uint32(presentNotPreferredFlags))
		if cost == 0 {
			return memTypeIndex, core1_0.VKSuccess, nil
		} else if cost < minCost {
			bestMemoryTypeIndex = memTypeIndex
			minCost = cost
		}
	}

	if bestMemoryTypeIndex < 0 {
		return -1, core1_0.VKErrorFeatureNotPresent, core1_0.VKErrorFeatureNotPresent.ToError()
	}

	return bestMemoryTypeIndex, core1_0.VKSuccess, nil
}
