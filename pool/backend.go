package pool

import (
	"github.com/vkngwrapper/arsenal/helpers/command"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// NativeQueryPool is a device query pool
type NativeQueryPool interface {
	command.QueryPool
	Destroy()
}

// NativeSemaphore is a device semaphore
type NativeSemaphore interface {
	VulkanSemaphore() core1_0.Semaphore
	Destroy()
}

// NativeDescriptorPool is a device descriptor pool
type NativeDescriptorPool interface {
	VulkanDescriptorPool() core1_0.DescriptorPool
	AllocateSets(layouts []core1_0.DescriptorSetLayout) ([]core1_0.DescriptorSet, common.VkResult, error)
	Destroy()
}

// PoolSize is the number of descriptors of a single type
type PoolSize struct {
	Type  core1_0.DescriptorType
	Count int
}

type QueryBackend interface {
	CreateQueryPool(queryType core1_0.QueryType, queryCount int) (NativeQueryPool, common.VkResult, error)
}

type SemaphoreBackend interface {
	CreateSemaphore() (NativeSemaphore, common.VkResult, error)
}

type DescriptorBackend interface {
	CreateDescriptorPool(poolSizes []PoolSize, maxSets int) (NativeDescriptorPool, common.VkResult, error)
}
