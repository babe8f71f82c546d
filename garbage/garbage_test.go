package garbage

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/arsenal/helpers/serial"
	"golang.org/x/exp/slog"
)

type destroyLog struct {
	destroyed []string
}

func (l *destroyLog) object(name string) Object {
	return Func(func() {
		l.destroyed = append(l.destroyed, name)
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard))
}

func TestCollector_CleanupRespectsSerials(t *testing.T) {
	log := &destroyLog{}
	counter := serial.NewCounter(false)
	collector := NewCollector(testLogger(), false)

	first := counter.Submit()
	second := counter.Submit()

	// Release out of order to make sure cleanup still destroys oldest first
	collector.ReleaseObjects(second, log.object("c"))
	collector.ReleaseObjects(first, log.object("a"), log.object("b"))
	collector.ReleaseObjects(second)
	require.Equal(t, 3, collector.PendingCount())

	require.Equal(t, 0, collector.Cleanup(counter))
	require.Empty(t, log.destroyed)

	counter.Complete(first)
	require.Equal(t, 2, collector.Cleanup(counter))
	require.Equal(t, []string{"a", "b"}, log.destroyed)
	require.Equal(t, 1, collector.PendingCount())

	counter.Complete(second)
	require.Equal(t, 1, collector.Cleanup(counter))
	require.Equal(t, []string{"a", "b", "c"}, log.destroyed)
	require.Equal(t, 0, collector.PendingCount())
}

func TestCollector_DestroyAll(t *testing.T) {
	log := &destroyLog{}
	counter := serial.NewCounter(false)
	collector := NewCollector(testLogger(), true)

	collector.ReleaseObjects(counter.CurrentSerial(), log.object("a"))
	collector.ReleaseObjects(serial.Zero, log.object("b"))

	require.Equal(t, 2, collector.DestroyAll())
	require.Equal(t, []string{"b", "a"}, log.destroyed)
	require.Equal(t, 0, collector.PendingCount())

	collector.ReleaseObjects(counter.CurrentSerial(), log.object("c"))
	require.Equal(t, 1, collector.PendingCount())
}

func TestQueue_DestroyAll(t *testing.T) {
	log := &destroyLog{}
	queue := NewQueue(testLogger(), false)

	queue.AddGarbage(log.object("a"), log.object("b"))
	queue.AddGarbage(log.object("c"))
	require.Equal(t, 3, queue.Len())
	require.Empty(t, log.destroyed)

	require.Equal(t, 3, queue.DestroyAll())
	require.Equal(t, []string{"a", "b", "c"}, log.destroyed)
	require.Equal(t, 0, queue.Len())
	require.Equal(t, 0, queue.DestroyAll())
}
