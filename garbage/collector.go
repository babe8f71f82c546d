package garbage

import (
	"context"

	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/arsenal/helpers/internal/utils"
	"github.com/vkngwrapper/arsenal/helpers/serial"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// Collector holds released objects until the serial they were released under has retired.
// It is the immediate-reuse release path: objects leave the collector as soon as the device
// confirms it is done with them.
type Collector struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex

	batches *swiss.Map[serial.Serial, []Object]
	serials []serial.Serial
}

var _ Releaser = &Collector{}

func NewCollector(logger *slog.Logger, threadSafe bool) *Collector {
	return &Collector{
		logger:  logger,
		mutex:   utils.OptionalMutex{UseMutex: threadSafe},
		batches: swiss.NewMap[serial.Serial, []Object](16),
	}
}

func (c *Collector) ReleaseObjects(releaseSerial serial.Serial, objects ...Object) {
	if len(objects) == 0 {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	batch, ok := c.batches.Get(releaseSerial)
	if !ok {
		index, _ := slices.BinarySearch(c.serials, releaseSerial)
		c.serials = slices.Insert(c.serials, index, releaseSerial)
	}
	c.batches.Put(releaseSerial, append(batch, objects...))
}

// PendingCount returns the number of objects still waiting for their serial to retire
func (c *Collector) PendingCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var count int
	for _, pendingSerial := range c.serials {
		batch, _ := c.batches.Get(pendingSerial)
		count += len(batch)
	}
	return count
}

// Cleanup destroys every object whose release serial has retired, oldest first, and returns the
// number of objects destroyed
func (c *Collector) Cleanup(oracle serial.Oracle) int {
	lastCompleted := oracle.LastCompletedSerial()

	c.mutex.Lock()
	var retired []Object
	retiredSerials := 0
	for _, pendingSerial := range c.serials {
		if pendingSerial > lastCompleted {
			break
		}

		batch, _ := c.batches.Get(pendingSerial)
		retired = append(retired, batch...)
		c.batches.Delete(pendingSerial)
		retiredSerials++
	}
	c.serials = c.serials[retiredSerials:]
	c.mutex.Unlock()

	for _, object := range retired {
		object.Destroy()
	}

	if len(retired) > 0 {
		c.logger.LogAttrs(context.Background(), slog.LevelDebug, "Collector::Cleanup",
			slog.Int("Destroyed", len(retired)),
			slog.Uint64("LastCompletedSerial", uint64(lastCompleted)),
		)
	}

	return len(retired)
}

// DestroyAll destroys every pending object regardless of serial. It must only be called once the
// device is idle.
func (c *Collector) DestroyAll() int {
	c.mutex.Lock()
	var pending []Object
	for _, pendingSerial := range c.serials {
		batch, _ := c.batches.Get(pendingSerial)
		pending = append(pending, batch...)
	}
	c.serials = nil
	c.batches = swiss.NewMap[serial.Serial, []Object](16)
	c.mutex.Unlock()

	for _, object := range pending {
		object.Destroy()
	}

	return len(pending)
}
