package pool

import (
	"io"

	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard))
}

type fakeQueryPool struct {
	queryType  core1_0.QueryType
	queryCount int
	destroyed  bool
}

func (p *fakeQueryPool) VulkanQueryPool() core1_0.QueryPool { return nil }

func (p *fakeQueryPool) Destroy() { p.destroyed = true }

type fakeQueryBackend struct {
	created []*fakeQueryPool
	fail    bool
}

func (b *fakeQueryBackend) CreateQueryPool(queryType core1_0.QueryType, queryCount int) (NativeQueryPool, common.VkResult, error) {
	if b.fail {
		return nil, core1_0.VKErrorOutOfDeviceMemory, core1_0.VKErrorOutOfDeviceMemory.ToError()
	}

	pool := &fakeQueryPool{queryType: queryType, queryCount: queryCount}
	b.created = append(b.created, pool)
	return pool, core1_0.VKSuccess, nil
}

type fakeSemaphore struct {
	id        int
	destroyed bool
}

func (s *fakeSemaphore) VulkanSemaphore() core1_0.Semaphore { return nil }

func (s *fakeSemaphore) Destroy() { s.destroyed = true }

type fakeSemaphoreBackend struct {
	created   []*fakeSemaphore
	failAfter int
}

func (b *fakeSemaphoreBackend) CreateSemaphore() (NativeSemaphore, common.VkResult, error) {
	if b.failAfter > 0 && len(b.created) >= b.failAfter {
		return nil, core1_0.VKErrorOutOfDeviceMemory, core1_0.VKErrorOutOfDeviceMemory.ToError()
	}

	semaphore := &fakeSemaphore{id: len(b.created)}
	b.created = append(b.created, semaphore)
	return semaphore, core1_0.VKSuccess, nil
}

type fakeDescriptorPool struct {
	poolSizes []PoolSize
	maxSets   int
	allocated int
	failAlloc bool
	destroyed bool
}

func (p *fakeDescriptorPool) VulkanDescriptorPool() core1_0.DescriptorPool { return nil }

func (p *fakeDescriptorPool) AllocateSets(layouts []core1_0.DescriptorSetLayout) ([]core1_0.DescriptorSet, common.VkResult, error) {
	if p.failAlloc {
		return nil, core1_0.VKErrorOutOfDeviceMemory, core1_0.VKErrorOutOfDeviceMemory.ToError()
	}

	p.allocated += len(layouts)
	return make([]core1_0.DescriptorSet, len(layouts)), core1_0.VKSuccess, nil
}

func (p *fakeDescriptorPool) Destroy() {
	if p.destroyed {
		panic("descriptor pool destroyed twice")
	}
	p.destroyed = true
}

type fakeDescriptorBackend struct {
	created   []*fakeDescriptorPool
	failAlloc bool
}

func (b *fakeDescriptorBackend) CreateDescriptorPool(poolSizes []PoolSize, maxSets int) (NativeDescriptorPool, common.VkResult, error) {
	pool := &fakeDescriptorPool{poolSizes: poolSizes, maxSets: maxSets, failAlloc: b.failAlloc}
	b.created = append(b.created, pool)
	return pool, core1_0.VKSuccess, nil
}

func (b *fakeDescriptorBackend) liveCount() int {
	var count int
	for _, pool := range b.created {
		if !pool.destroyed {
			count++
		}
	}
	return count
}
