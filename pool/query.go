package pool

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/helpers/command"
	"github.com/vkngwrapper/arsenal/helpers/serial"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// QueryPool hands out individual queries of a single type from a growing list of native query
// pools
type QueryPool struct {
	GrowingPool[NativeQueryPool]

	logger    *slog.Logger
	backend   QueryBackend
	queryType core1_0.QueryType
}

// NewQueryPool creates a QueryPool along with its first native pool
func NewQueryPool(logger *slog.Logger, oracle serial.Oracle, backend QueryBackend, queryType core1_0.QueryType, poolSize int) (*QueryPool, common.VkResult, error) {
	if logger == nil {
		return nil, core1_0.VKErrorUnknown, errors.New("attempted to create a query pool with a nil logger")
	}

	pool := &QueryPool{
		logger:    logger,
		backend:   backend,
		queryType: queryType,
	}
	pool.initEntryPool(oracle, poolSize)

	res, err := pool.allocateNewPool(pool.createPool)
	if err != nil {
		return nil, res, err
	}

	return pool, res, nil
}

func (p *QueryPool) createPool(poolSize int) (NativeQueryPool, common.VkResult, error) {
	queryPool, res, err := p.backend.CreateQueryPool(p.queryType, poolSize)
	if err != nil {
		return nil, res, errors.Wrapf(err, "failed to create query pool with %d queries", poolSize)
	}

	p.logger.LogAttrs(context.Background(), slog.LevelDebug, "QueryPool created native pool",
		slog.Int("QueryCount", poolSize),
		slog.Int("PoolCount", len(p.pools)+1),
	)
	return queryPool, res, nil
}

// AllocateQuery assigns a query to query, which must not currently hold one
func (p *QueryPool) AllocateQuery(query *QueryHelper) (common.VkResult, error) {
	p.logger.Debug("QueryPool::AllocateQuery")

	if query.Valid() {
		panic("attempted to allocate a query into a helper that already holds one")
	}

	poolIndex, entry, res, err := p.allocateEntry(p.createPool)
	if err != nil {
		return res, err
	}

	query.init(p, poolIndex, entry)
	return res, nil
}

// FreeQuery returns query's slot to the pool. Freeing a helper that holds no query does nothing.
func (p *QueryPool) FreeQuery(query *QueryHelper) {
	p.logger.Debug("QueryPool::FreeQuery")

	if !query.Valid() {
		return
	}
	if query.owner != p {
		panic("attempted to free a query into a pool that did not allocate it")
	}

	p.onEntryFreed(query.poolIndex)
	query.deinit()
}

func (p *QueryPool) QueryType() core1_0.QueryType { return p.queryType }

// Destroy destroys every native query pool. The device must no longer be using any of them.
func (p *QueryPool) Destroy() {
	p.logger.Debug("QueryPool::Destroy")

	for _, queryPool := range p.pools {
		queryPool.Destroy()
	}

	p.destroyEntryPool()
}

// QueryHelper is a single query slot
type QueryHelper struct {
	owner     *QueryPool
	poolIndex int
	query     int

	mostRecentSerial serial.Serial
}

func (q *QueryHelper) init(owner *QueryPool, poolIndex, query int) {
	q.owner = owner
	q.poolIndex = poolIndex
	q.query = query
}

func (q *QueryHelper) deinit() {
	q.owner = nil
	q.poolIndex = 0
	q.query = 0
}

func (q *QueryHelper) Valid() bool { return q.owner != nil }

func (q *QueryHelper) QueryPool() NativeQueryPool {
	if q.owner == nil {
		return nil
	}
	return q.owner.pools[q.poolIndex]
}

func (q *QueryHelper) PoolIndex() int { return q.poolIndex }

func (q *QueryHelper) Query() int { return q.query }

// BeginQuery resets the query and begins it
func (q *QueryHelper) BeginQuery(recorder command.Recorder) {
	queryPool := q.QueryPool()
	recorder.ResetQueryPool(queryPool, q.query, 1)
	recorder.BeginQuery(queryPool, q.query)
	q.mostRecentSerial = q.owner.oracle.CurrentSerial()
}

func (q *QueryHelper) EndQuery(recorder command.Recorder) {
	recorder.EndQuery(q.QueryPool(), q.query)
	q.mostRecentSerial = q.owner.oracle.CurrentSerial()
}

// WriteTimestamp resets the query and writes a timestamp to it once all prior commands complete
func (q *QueryHelper) WriteTimestamp(recorder command.Recorder) {
	queryPool := q.QueryPool()
	recorder.ResetQueryPool(queryPool, q.query, 1)
	recorder.WriteTimestamp(core1_0.PipelineStageBottomOfPipe, queryPool, q.query)
	q.mostRecentSerial = q.owner.oracle.CurrentSerial()
}

// HasPendingWork reports whether the commands that used this query have not been submitted yet.
// Once the current serial moves past the query's most recent use, the work is on its way.
func (q *QueryHelper) HasPendingWork() bool {
	if q.owner == nil {
		return false
	}
	return q.mostRecentSerial == q.owner.oracle.CurrentSerial()
}

func (q *QueryHelper) MostRecentSerial() serial.Serial { return q.mostRecentSerial }
