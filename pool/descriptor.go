package pool

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	pkgerrors "github.com/pkg/errors"
	"github.com/vkngwrapper/arsenal/helpers/garbage"
	"github.com/vkngwrapper/arsenal/helpers/serial"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// DefaultMaxSetsPerPool is the number of descriptor sets each native descriptor pool can hold
const DefaultMaxSetsPerPool = 128

// MaxDescriptorPools is the ceiling on native descriptor pools owned by a single DescriptorPool
const MaxDescriptorPools = 99999

// ErrTooManyPools is returned when a DescriptorPool would exceed MaxDescriptorPools
var ErrTooManyPools = pkgerrors.New("too many descriptor pools")

type descriptorPoolHelper struct {
	native   NativeDescriptorPool
	freeSets int
	serial   serial.Serial
}

func (h *descriptorPoolHelper) hasCapacity(setCount int) bool {
	return h.freeSets >= setCount
}

func (h *descriptorPoolHelper) init(backend DescriptorBackend, poolSizes []PoolSize, maxSets int) (common.VkResult, error) {
	native, res, err := backend.CreateDescriptorPool(poolSizes, maxSets)
	if err != nil {
		return res, errors.Wrapf(err, "failed to create descriptor pool with %d sets", maxSets)
	}

	// Reinitializing a reused pool replaces its native pool outright
	if h.native != nil {
		h.native.Destroy()
	}

	h.native = native
	h.freeSets = maxSets
	return res, nil
}

func (h *descriptorPoolHelper) allocateSets(layouts []core1_0.DescriptorSetLayout) ([]core1_0.DescriptorSet, common.VkResult, error) {
	if h.freeSets < len(layouts) {
		panic(fmt.Sprintf("attempted to allocate %d descriptor sets from a pool with %d free", len(layouts), h.freeSets))
	}

	sets, res, err := h.native.AllocateSets(layouts)
	if err != nil {
		return nil, res, err
	}

	h.freeSets -= len(layouts)
	return sets, res, nil
}

type refCountedPool struct {
	helper   descriptorPoolHelper
	refCount int
}

func (p *refCountedPool) isReferenced() bool { return p.refCount > 0 }

// Binding is a call site's shared reference to the native descriptor pool its sets came from.
// The pool cannot be reclaimed while any binding holds it.
type Binding struct {
	pool *refCountedPool
}

func (b *Binding) Valid() bool { return b.pool != nil }

func (b *Binding) set(pool *refCountedPool) {
	pool.refCount++
	b.Reset()
	b.pool = pool
}

// Reset drops the binding's reference
func (b *Binding) Reset() {
	if b.pool == nil {
		return
	}

	if b.pool.refCount <= 0 {
		panic("descriptor pool binding released more times than it was acquired")
	}
	b.pool.refCount--
	b.pool = nil
}

// Pool is the native pool the binding currently references
func (b *Binding) Pool() NativeDescriptorPool {
	if b.pool == nil {
		return nil
	}
	return b.pool.helper.native
}

func (b *Binding) FreeSets() int {
	if b.pool == nil {
		return 0
	}
	return b.pool.helper.freeSets
}

// DescriptorPool allocates descriptor sets from a growing list of native descriptor pools. Pools
// are never freed individually; a pool is reset and reused once no binding references it and its
// last use has retired.
type DescriptorPool struct {
	logger  *slog.Logger
	oracle  serial.Oracle
	backend DescriptorBackend

	maxSetsPerPool int
	setSizes       []PoolSize

	pools            []*refCountedPool
	currentPoolIndex int
}

// NewDescriptorPool creates a DescriptorPool along with its first native pool. setSizes are the
// descriptor counts of a single set.
func NewDescriptorPool(logger *slog.Logger, oracle serial.Oracle, backend DescriptorBackend, setSizes []PoolSize) (*DescriptorPool, common.VkResult, error) {
	if logger == nil {
		return nil, core1_0.VKErrorUnknown, errors.New("attempted to create a descriptor pool with a nil logger")
	}

	pool := &DescriptorPool{
		logger:         logger,
		oracle:         oracle,
		backend:        backend,
		maxSetsPerPool: DefaultMaxSetsPerPool,
		setSizes:       append([]PoolSize(nil), setSizes...),
	}

	first := &refCountedPool{}
	res, err := first.helper.init(backend, pool.poolSizes(), pool.maxSetsPerPool)
	if err != nil {
		return nil, res, err
	}
	pool.pools = append(pool.pools, first)

	return pool, res, nil
}

// poolSizes scales the per-set sizes up to a full pool
func (p *DescriptorPool) poolSizes() []PoolSize {
	sizes := make([]PoolSize, len(p.setSizes))
	for i, size := range p.setSizes {
		sizes[i] = PoolSize{Type: size.Type, Count: size.Count * p.maxSetsPerPool}
	}
	return sizes
}

// AllocateSets allocates one descriptor set per layout. binding's pool is used while it has room;
// otherwise binding is moved to the current pool, which is replaced first if it is also full.
func (p *DescriptorPool) AllocateSets(layouts []core1_0.DescriptorSetLayout, binding *Binding) (sets []core1_0.DescriptorSet, newPoolAllocated bool, res common.VkResult, err error) {
	p.logger.Debug("DescriptorPool::AllocateSets")

	setCount := len(layouts)
	if !binding.Valid() || !binding.pool.helper.hasCapacity(setCount) {
		if !p.pools[p.currentPoolIndex].helper.hasCapacity(setCount) {
			res, err = p.allocateNewPool()
			if err != nil {
				return nil, false, res, err
			}
			newPoolAllocated = true
		}

		// The old pool's sets may still be referenced by recorded work
		if binding.Valid() {
			binding.pool.helper.serial = p.oracle.CurrentSerial()
		}

		binding.set(p.pools[p.currentPoolIndex])
	}

	sets, res, err = binding.pool.helper.allocateSets(layouts)
	if err != nil {
		return nil, newPoolAllocated, res, errors.Wrap(err, "failed to allocate descriptor sets")
	}

	return sets, newPoolAllocated, res, nil
}

func (p *DescriptorPool) allocateNewPool() (common.VkResult, error) {
	found := -1

	for poolIndex, pool := range p.pools {
		if !pool.isReferenced() && !p.oracle.IsSerialInUse(pool.helper.serial) {
			found = poolIndex
			break
		}
	}

	if found < 0 {
		if len(p.pools)+1 >= MaxDescriptorPools {
			return core1_0.VKErrorTooManyObjects, errors.Wrapf(ErrTooManyPools, "descriptor pool count would reach %d", MaxDescriptorPools)
		}

		newPool := &refCountedPool{}
		res, err := newPool.helper.init(p.backend, p.poolSizes(), p.maxSetsPerPool)
		if err != nil {
			return res, err
		}

		p.pools = append(p.pools, newPool)
		p.currentPoolIndex = len(p.pools) - 1

		p.logger.LogAttrs(context.Background(), slog.LevelDebug, "DescriptorPool created native pool",
			slog.Int("PoolCount", len(p.pools)),
			slog.Int("MaxSets", p.maxSetsPerPool),
		)
		return res, nil
	}

	res, err := p.pools[found].helper.init(p.backend, p.poolSizes(), p.maxSetsPerPool)
	if err != nil {
		return res, err
	}
	p.currentPoolIndex = found

	p.logger.LogAttrs(context.Background(), slog.LevelDebug, "DescriptorPool reused native pool",
		slog.Int("PoolIndex", found),
	)
	return res, nil
}

// Release hands every native pool to releaser under the current serial. No binding may still
// reference any pool.
func (p *DescriptorPool) Release(releaser garbage.Releaser) {
	p.logger.Debug("DescriptorPool::Release")

	p.checkUnreferenced()

	currentSerial := p.oracle.CurrentSerial()
	for _, pool := range p.pools {
		releaser.ReleaseObjects(currentSerial, pool.helper.native)
	}

	p.pools = nil
	p.currentPoolIndex = 0
}

// Destroy immediately destroys every native pool. No binding may still reference any pool.
func (p *DescriptorPool) Destroy() {
	p.logger.Debug("DescriptorPool::Destroy")

	p.checkUnreferenced()

	for _, pool := range p.pools {
		pool.helper.native.Destroy()
	}

	p.pools = nil
	p.currentPoolIndex = 0
}

func (p *DescriptorPool) checkUnreferenced() {
	for poolIndex, pool := range p.pools {
		if pool.isReferenced() {
			panic(fmt.Sprintf("descriptor pool %d is still referenced by %d bindings", poolIndex, pool.refCount))
		}
	}
}

// SetMaxSetsPerPoolForTesting changes the capacity of pools created or reset from now on
func (p *DescriptorPool) SetMaxSetsPerPoolForTesting(maxSetsPerPool int) {
	if maxSetsPerPool <= 0 {
		panic(fmt.Sprintf("max sets per pool must be positive but was %d", maxSetsPerPool))
	}
	p.maxSetsPerPool = maxSetsPerPool
}

func (p *DescriptorPool) MaxSetsPerPool() int { return p.maxSetsPerPool }

func (p *DescriptorPool) PoolCount() int { return len(p.pools) }

func (p *DescriptorPool) CurrentPoolIndex() int { return p.currentPoolIndex }

// BuildStatsString returns a json description of every native pool
func (p *DescriptorPool) BuildStatsString() string {
	writer := jwriter.NewWriter()
	obj := writer.Object()
	obj.Name("MaxSetsPerPool").Int(p.maxSetsPerPool)
	obj.Name("CurrentPool").Int(p.currentPoolIndex)

	pools := obj.Name("Pools").Array()
	for _, pool := range p.pools {
		poolObj := pools.Object()
		poolObj.Name("FreeSets").Int(pool.helper.freeSets)
		poolObj.Name("References").Int(pool.refCount)
		poolObj.Name("Serial").String(pool.helper.serial.String())
		poolObj.End()
	}
	pools.End()

	obj.End()
	return string(writer.Bytes())
}
