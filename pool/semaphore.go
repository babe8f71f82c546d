package pool

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/helpers/serial"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// SemaphorePool hands out binary semaphores from a growing list of fixed-size semaphore batches
type SemaphorePool struct {
	GrowingPool[[]NativeSemaphore]

	logger  *slog.Logger
	backend SemaphoreBackend
}

// NewSemaphorePool creates a SemaphorePool along with its first batch of semaphores
func NewSemaphorePool(logger *slog.Logger, oracle serial.Oracle, backend SemaphoreBackend, poolSize int) (*SemaphorePool, common.VkResult, error) {
	if logger == nil {
		return nil, core1_0.VKErrorUnknown, errors.New("attempted to create a semaphore pool with a nil logger")
	}

	pool := &SemaphorePool{
		logger:  logger,
		backend: backend,
	}
	pool.initEntryPool(oracle, poolSize)

	res, err := pool.allocateNewPool(pool.createPool)
	if err != nil {
		return nil, res, err
	}

	return pool, res, nil
}

func (p *SemaphorePool) createPool(poolSize int) ([]NativeSemaphore, common.VkResult, error) {
	newPool := make([]NativeSemaphore, 0, poolSize)

	for i := 0; i < poolSize; i++ {
		semaphore, res, err := p.backend.CreateSemaphore()
		if err != nil {
			for _, created := range newPool {
				created.Destroy()
			}
			return nil, res, errors.Wrap(err, "failed to create semaphore")
		}
		newPool = append(newPool, semaphore)
	}

	p.logger.LogAttrs(context.Background(), slog.LevelDebug, "SemaphorePool created semaphores",
		slog.Int("SemaphoreCount", poolSize),
		slog.Int("PoolCount", len(p.pools)+1),
	)
	return newPool, core1_0.VKSuccess, nil
}

// AllocateSemaphore assigns a semaphore to semaphore, which must not currently hold one
func (p *SemaphorePool) AllocateSemaphore(semaphore *SemaphoreHelper) (common.VkResult, error) {
	p.logger.Debug("SemaphorePool::AllocateSemaphore")

	if semaphore.Valid() {
		panic("attempted to allocate a semaphore into a helper that already holds one")
	}

	poolIndex, entry, res, err := p.allocateEntry(p.createPool)
	if err != nil {
		return res, err
	}

	semaphore.init(poolIndex, p.pools[poolIndex][entry])
	return res, nil
}

// FreeSemaphore returns semaphore's slot to the pool. Freeing a helper that holds no semaphore
// does nothing.
func (p *SemaphorePool) FreeSemaphore(semaphore *SemaphoreHelper) {
	p.logger.Debug("SemaphorePool::FreeSemaphore")

	if !semaphore.Valid() {
		return
	}

	p.onEntryFreed(semaphore.poolIndex)
	semaphore.deinit()
}

// Destroy destroys every semaphore. The device must no longer be using any of them.
func (p *SemaphorePool) Destroy() {
	p.logger.Debug("SemaphorePool::Destroy")

	for _, semaphores := range p.pools {
		for _, semaphore := range semaphores {
			semaphore.Destroy()
		}
	}

	p.destroyEntryPool()
}

// SemaphoreHelper holds a single pooled semaphore
type SemaphoreHelper struct {
	poolIndex int
	semaphore NativeSemaphore
}

func (s *SemaphoreHelper) init(poolIndex int, semaphore NativeSemaphore) {
	s.poolIndex = poolIndex
	s.semaphore = semaphore
}

func (s *SemaphoreHelper) deinit() {
	s.poolIndex = 0
	s.semaphore = nil
}

func (s *SemaphoreHelper) Valid() bool { return s.semaphore != nil }

func (s *SemaphoreHelper) Semaphore() NativeSemaphore { return s.semaphore }

func (s *SemaphoreHelper) PoolIndex() int { return s.poolIndex }
