package vulkan

import (
	"github.com/vkngwrapper/arsenal/helpers/pool"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

var _ pool.QueryBackend = &Device{}
var _ pool.SemaphoreBackend = &Device{}
var _ pool.DescriptorBackend = &Device{}

func (d *Device) CreateQueryPool(queryType core1_0.QueryType, queryCount int) (pool.NativeQueryPool, common.VkResult, error) {
	d.logger.Debug("Device::CreateQueryPool")

	queryPool, res, err := d.device.CreateQueryPool(d.callbacks, core1_0.QueryPoolCreateInfo{
		QueryType:  queryType,
		QueryCount: queryCount,
	})
	if err != nil {
		return nil, res, err
	}

	return &nativeQueryPool{queryPool: queryPool, device: d}, res, nil
}

func (d *Device) CreateSemaphore() (pool.NativeSemaphore, common.VkResult, error) {
	d.logger.Debug("Device::CreateSemaphore")

	semaphore, res, err := d.device.CreateSemaphore(d.callbacks, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return nil, res, err
	}

	return &nativeSemaphore{semaphore: semaphore, device: d}, res, nil
}

func (d *Device) CreateDescriptorPool(poolSizes []pool.PoolSize, maxSets int) (pool.NativeDescriptorPool, common.VkResult, error) {
	d.logger.Debug("Device::CreateDescriptorPool")

	vulkanSizes := make([]core1_0.DescriptorPoolSize, 0, len(poolSizes))
	for _, size := range poolSizes {
		vulkanSizes = append(vulkanSizes, core1_0.DescriptorPoolSize{
			Type:            size.Type,
			DescriptorCount: size.Count,
		})
	}

	descriptorPool, res, err := d.device.CreateDescriptorPool(d.callbacks, core1_0.DescriptorPoolCreateInfo{
		MaxSets:   maxSets,
		PoolSizes: vulkanSizes,
	})
	if err != nil {
		return nil, res, err
	}

	return &nativeDescriptorPool{descriptorPool: descriptorPool, device: d}, res, nil
}

type nativeQueryPool struct {
	queryPool core1_0.QueryPool
	device    *Device
}

func (p *nativeQueryPool) VulkanQueryPool() core1_0.QueryPool {
	return p.queryPool
}

func (p *nativeQueryPool) Destroy() {
	p.queryPool.Destroy(p.device.callbacks)
}

type nativeSemaphore struct {
	semaphore core1_0.Semaphore
	device    *Device
}

func (s *nativeSemaphore) VulkanSemaphore() core1_0.Semaphore {
	return s.semaphore
}

func (s *nativeSemaphore) Destroy() {
	s.semaphore.Destroy(s.device.callbacks)
}

type nativeDescriptorPool struct {
	descriptorPool core1_0.DescriptorPool
	device         *Device
}

func (p *nativeDescriptorPool) VulkanDescriptorPool() core1_0.DescriptorPool {
	return p.descriptorPool
}

func (p *nativeDescriptorPool) AllocateSets(layouts []core1_0.DescriptorSetLayout) ([]core1_0.DescriptorSet, common.VkResult, error) {
	return p.device.device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: p.descriptorPool,
		SetLayouts:     layouts,
	})
}

func (p *nativeDescriptorPool) Destroy() {
	p.descriptorPool.Destroy(p.device.callbacks)
}
