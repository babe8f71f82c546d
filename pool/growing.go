package pool

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/helpers/memutils"
	"github.com/vkngwrapper/arsenal/helpers/serial"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

type poolStats struct {
	capacity   int
	freedCount int
	serial     serial.Serial
}

// GrowingPool hands out entries from a list of fixed-capacity pools. When the current pool runs
// out, a pool whose entries have all been freed, with every freeing serial retired, is reused
// before a new one is constructed.
type GrowingPool[T any] struct {
	oracle serial.Oracle

	poolSize int
	pools    []T
	stats    []poolStats

	currentPool      int
	currentFreeEntry int

	constructed int
}

func (p *GrowingPool[T]) initEntryPool(oracle serial.Oracle, poolSize int) {
	if len(p.pools) > 0 {
		panic("attempted to initialize a pool that already has entries")
	}
	if poolSize <= 0 {
		panic(fmt.Sprintf("pool size must be positive but was %d", poolSize))
	}

	p.oracle = oracle
	p.poolSize = poolSize
}

func (p *GrowingPool[T]) destroyEntryPool() {
	p.pools = nil
	p.stats = nil
	p.currentPool = 0
	p.currentFreeEntry = 0
}

func (p *GrowingPool[T]) findFreeEntryPool() bool {
	lastCompleted := p.oracle.LastCompletedSerial()

	for i := range p.pools {
		if p.stats[i].freedCount == p.stats[i].capacity && p.stats[i].serial <= lastCompleted {
			p.currentPool = i
			p.currentFreeEntry = 0

			p.stats[i].freedCount = 0
			return true
		}
	}

	return false
}

func (p *GrowingPool[T]) allocateNewEntryPool(pool T) {
	p.pools = append(p.pools, pool)
	p.stats = append(p.stats, poolStats{capacity: p.poolSize, serial: serial.Zero})

	p.currentPool = len(p.pools) - 1
	p.currentFreeEntry = 0
	p.constructed++
}

func (p *GrowingPool[T]) onEntryFreed(poolIndex int) {
	if poolIndex < 0 || poolIndex >= len(p.stats) {
		panic(fmt.Sprintf("attempted to free an entry in pool %d but only %d pools exist", poolIndex, len(p.stats)))
	}
	if p.stats[poolIndex].freedCount >= p.stats[poolIndex].capacity {
		panic(fmt.Sprintf("attempted to free more entries than pool %d holds (%d)", poolIndex, p.stats[poolIndex].capacity))
	}

	// The device may still be using the entry until the current serial retires
	p.stats[poolIndex].serial = p.oracle.CurrentSerial()
	p.stats[poolIndex].freedCount++

	memutils.DebugValidate(p)
}

func (p *GrowingPool[T]) allocateNewPool(createPool func(poolSize int) (T, common.VkResult, error)) (common.VkResult, error) {
	if p.findFreeEntryPool() {
		return core1_0.VKSuccess, nil
	}

	pool, res, err := createPool(p.poolSize)
	if err != nil {
		return res, err
	}

	p.allocateNewEntryPool(pool)
	return core1_0.VKSuccess, nil
}

func (p *GrowingPool[T]) allocateEntry(createPool func(poolSize int) (T, common.VkResult, error)) (poolIndex int, entry int, res common.VkResult, err error) {
	if len(p.pools) == 0 || p.currentFreeEntry >= p.stats[p.currentPool].capacity {
		res, err = p.allocateNewPool(createPool)
		if err != nil {
			return -1, -1, res, err
		}
	}

	poolIndex = p.currentPool
	entry = p.currentFreeEntry
	p.currentFreeEntry++

	memutils.DebugValidate(p)
	return poolIndex, entry, core1_0.VKSuccess, nil
}

// Validate checks the pool's bookkeeping and returns an error describing the first inconsistency
// found
func (p *GrowingPool[T]) Validate() error {
	if len(p.pools) != len(p.stats) {
		return errors.Newf("pool has %d native pools but %d stat entries", len(p.pools), len(p.stats))
	}

	for i := range p.stats {
		if p.stats[i].freedCount > p.stats[i].capacity {
			return errors.Newf("pool %d has freed %d entries but only holds %d", i, p.stats[i].freedCount, p.stats[i].capacity)
		}
	}

	if len(p.pools) > 0 {
		if p.currentPool < 0 || p.currentPool >= len(p.pools) {
			return errors.Newf("current pool %d is out of range", p.currentPool)
		}
		if p.currentFreeEntry > p.stats[p.currentPool].capacity {
			return errors.Newf("next entry %d is past the capacity %d of the current pool", p.currentFreeEntry, p.stats[p.currentPool].capacity)
		}
	}

	return nil
}

// NativePoolsConstructed is the number of native pools created over the pool's lifetime. Reused
// pools are not counted again.
func (p *GrowingPool[T]) NativePoolsConstructed() int { return p.constructed }

func (p *GrowingPool[T]) PoolCount() int { return len(p.pools) }

func (p *GrowingPool[T]) PoolSize() int { return p.poolSize }

// SetMaxEntriesPerPoolForTesting changes the capacity of pools created from now on
func (p *GrowingPool[T]) SetMaxEntriesPerPoolForTesting(maxEntries int) {
	if maxEntries <= 0 {
		panic(fmt.Sprintf("pool size must be positive but was %d", maxEntries))
	}
	p.poolSize = maxEntries
}
