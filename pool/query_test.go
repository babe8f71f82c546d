package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/arsenal/helpers/command"
	"github.com/vkngwrapper/arsenal/helpers/serial"
	"github.com/vkngwrapper/core/v2/core1_0"
)

func TestQueryPool_CreatesFirstPoolEagerly(t *testing.T) {
	counter := serial.NewCounter(false)
	backend := &fakeQueryBackend{}

	queryPool, _, err := NewQueryPool(testLogger(), counter, backend, core1_0.QueryTypeOcclusion, 16)
	require.NoError(t, err)
	require.Equal(t, 1, queryPool.NativePoolsConstructed())
	require.Len(t, backend.created, 1)
	require.Equal(t, 16, backend.created[0].queryCount)
	require.Equal(t, core1_0.QueryTypeOcclusion, backend.created[0].queryType)

	var query QueryHelper
	_, err = queryPool.AllocateQuery(&query)
	require.NoError(t, err)
	require.Equal(t, 1, queryPool.NativePoolsConstructed())
	require.True(t, query.Valid())
	require.Same(t, backend.created[0], query.QueryPool())
}

func TestQueryPool_FailedCreation(t *testing.T) {
	counter := serial.NewCounter(false)
	backend := &fakeQueryBackend{fail: true}

	_, res, err := NewQueryPool(testLogger(), counter, backend, core1_0.QueryTypeOcclusion, 16)
	require.Error(t, err)
	require.Equal(t, core1_0.VKErrorOutOfDeviceMemory, res)
}

func TestQueryPool_ReusesRetiredPool(t *testing.T) {
	counter := serial.NewCounter(false)
	backend := &fakeQueryBackend{}

	queryPool, _, err := NewQueryPool(testLogger(), counter, backend, core1_0.QueryTypeTimestamp, 128)
	require.NoError(t, err)

	queries := make([]QueryHelper, 128)
	for i := range queries {
		_, err = queryPool.AllocateQuery(&queries[i])
		require.NoError(t, err)
		require.Equal(t, 0, queries[i].PoolIndex())
		require.Equal(t, i, queries[i].Query())
	}

	for i := range queries {
		queryPool.FreeQuery(&queries[i])
		require.False(t, queries[i].Valid())
	}

	// Freeing an empty helper is a no-op
	queryPool.FreeQuery(&queries[0])

	counter.Complete(counter.Submit())

	var next QueryHelper
	_, err = queryPool.AllocateQuery(&next)
	require.NoError(t, err)
	require.Equal(t, 1, queryPool.NativePoolsConstructed())
	require.Equal(t, 0, next.PoolIndex())
	require.Equal(t, 0, next.Query())
}

func TestQueryPool_PendingFreeForcesNewPool(t *testing.T) {
	counter := serial.NewCounter(false)
	backend := &fakeQueryBackend{}

	queryPool, _, err := NewQueryPool(testLogger(), counter, backend, core1_0.QueryTypeTimestamp, 2)
	require.NoError(t, err)

	queries := make([]QueryHelper, 2)
	for i := range queries {
		_, err = queryPool.AllocateQuery(&queries[i])
		require.NoError(t, err)
	}
	for i := range queries {
		queryPool.FreeQuery(&queries[i])
	}

	var next QueryHelper
	_, err = queryPool.AllocateQuery(&next)
	require.NoError(t, err)
	require.Equal(t, 2, queryPool.NativePoolsConstructed())
	require.Equal(t, 1, next.PoolIndex())
}

func TestQueryHelper_RecordsCommands(t *testing.T) {
	counter := serial.NewCounter(false)
	backend := &fakeQueryBackend{}

	queryPool, _, err := NewQueryPool(testLogger(), counter, backend, core1_0.QueryTypeOcclusion, 4)
	require.NoError(t, err)

	var query, query2 QueryHelper
	_, err = queryPool.AllocateQuery(&query)
	require.NoError(t, err)
	_, err = queryPool.AllocateQuery(&query2)
	require.NoError(t, err)

	require.Panics(t, func() {
		_, _ = queryPool.AllocateQuery(&query)
	})

	list := command.NewList()
	query2.BeginQuery(list)
	query2.EndQuery(list)
	query2.WriteTimestamp(list)

	commands := list.Commands()
	require.Len(t, commands, 5)
	require.Equal(t, command.KindResetQueryPool, commands[0].Kind)
	require.Equal(t, 1, commands[0].Query)
	require.Equal(t, 1, commands[0].QueryCount)
	require.Equal(t, command.KindBeginQuery, commands[1].Kind)
	require.Equal(t, command.KindEndQuery, commands[2].Kind)
	require.Equal(t, command.KindResetQueryPool, commands[3].Kind)
	require.Equal(t, command.KindWriteTimestamp, commands[4].Kind)
	require.Equal(t, core1_0.PipelineStageBottomOfPipe, commands[4].Stage)
	for _, recorded := range commands {
		require.Same(t, backend.created[0], recorded.QueryPool)
	}
}

func TestQueryHelper_HasPendingWork(t *testing.T) {
	counter := serial.NewCounter(false)
	backend := &fakeQueryBackend{}

	queryPool, _, err := NewQueryPool(testLogger(), counter, backend, core1_0.QueryTypeOcclusion, 4)
	require.NoError(t, err)

	var query QueryHelper
	require.False(t, query.HasPendingWork())

	_, err = queryPool.AllocateQuery(&query)
	require.NoError(t, err)

	list := command.NewList()
	query.BeginQuery(list)
	query.EndQuery(list)
	require.True(t, query.HasPendingWork())
	require.Equal(t, counter.CurrentSerial(), query.MostRecentSerial())

	counter.Submit()
	require.False(t, query.HasPendingWork())
}

func TestQueryPool_Destroy(t *testing.T) {
	counter := serial.NewCounter(false)
	backend := &fakeQueryBackend{}

	queryPool, _, err := NewQueryPool(testLogger(), counter, backend, core1_0.QueryTypeOcclusion, 1)
	require.NoError(t, err)

	queries := make([]QueryHelper, 3)
	for i := range queries {
		_, err = queryPool.AllocateQuery(&queries[i])
		require.NoError(t, err)
	}
	require.Len(t, backend.created, 3)

	queryPool.Destroy()
	for _, created := range backend.created {
		require.True(t, created.destroyed)
	}
	require.Equal(t, 0, queryPool.PoolCount())
}
