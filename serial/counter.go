package serial

import (
	"fmt"

	"github.com/vkngwrapper/arsenal/helpers/internal/utils"
)

// Counter is an Oracle driven by the owner of a queue: Submit is called whenever a batch of recorded
// work is submitted, and Complete is called when a fence or timeline value reports that a serial
// has finished.
type Counter struct {
	mutex utils.OptionalMutex

	current       Serial
	lastCompleted Serial
}

var _ Oracle = &Counter{}

// NewCounter creates a Counter whose first submission will use serial 1. If threadSafe is set, the
// counter may be shared between goroutines.
func NewCounter(threadSafe bool) *Counter {
	return &Counter{
		mutex:   utils.OptionalMutex{UseMutex: threadSafe},
		current: 1,
	}
}

func (c *Counter) CurrentSerial() Serial {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.current
}

func (c *Counter) LastCompletedSerial() Serial {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.lastCompleted
}

func (c *Counter) IsSerialInUse(serial Serial) bool {
	return serial > c.LastCompletedSerial()
}

// Submit closes out the current serial and returns it. Work recorded afterward is stamped with the
// next serial.
func (c *Counter) Submit() Serial {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	submitted := c.current
	c.current++
	return submitted
}

// Complete marks serial and everything before it as retired. Completing a serial that has not been
// submitted yet is a programming error.
func (c *Counter) Complete(serial Serial) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if serial >= c.current {
		panic(fmt.Sprintf("attempted to complete serial %d but only serials before %d have been submitted", serial, c.current))
	}

	if serial > c.lastCompleted {
		c.lastCompleted = serial
	}
}

// CompleteAll marks every submitted serial as retired
func (c *Counter) CompleteAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.lastCompleted = c.current - 1
}
