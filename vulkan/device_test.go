package vulkan

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

func TestCreateFlags_String(t *testing.T) {
	require.Equal(t, "DeviceCreateExternallySynchronized", DeviceCreateExternallySynchronized.String())
	require.Equal(t, "DeviceCreateExternallySynchronized|DeviceCreateMemoryConstrained",
		(DeviceCreateExternallySynchronized | DeviceCreateMemoryConstrained).String())
}

func TestDevice_MemoryConstrained(t *testing.T) {
	device := &Device{createFlags: DeviceCreateMemoryConstrained}
	require.True(t, device.MemoryConstrained())

	device = &Device{}
	require.False(t, device.MemoryConstrained())
}

func TestMemory_MappedRange(t *testing.T) {
	device := &Device{
		deviceProperties: &core1_0.PhysicalDeviceProperties{
			Limits: &core1_0.PhysicalDeviceLimits{NonCoherentAtomSize: 64},
		},
	}
	memory := &Memory{device: device, size: 1024}

	testCases := []struct {
		name           string
		offset, size   int
		expectedOffset int
		expectedSize   int
	}{
		{"Aligned", 128, 64, 128, 64},
		{"Unaligned", 100, 10, 64, 64},
		{"Straddling", 60, 10, 0, 128},
		{"ReachesEnd", 960, 64, 960, common.WholeSize},
		{"PastEndAfterRounding", 1000, 10, 960, common.WholeSize},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			memRange := memory.mappedRange(testCase.offset, testCase.size)
			require.Equal(t, testCase.expectedOffset, memRange.Offset)
			require.Equal(t, testCase.expectedSize, memRange.Size)
		})
	}
}
