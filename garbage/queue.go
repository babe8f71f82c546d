package garbage

import (
	"github.com/vkngwrapper/arsenal/helpers/internal/utils"
	"golang.org/x/exp/slog"
)

// Queue collects objects for destruction at teardown, when no serial tracking is available anymore
type Queue struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex

	objects []Object
}

var _ Sink = &Queue{}

func NewQueue(logger *slog.Logger, threadSafe bool) *Queue {
	return &Queue{
		logger: logger,
		mutex:  utils.OptionalMutex{UseMutex: threadSafe},
	}
}

func (q *Queue) AddGarbage(objects ...Object) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.objects = append(q.objects, objects...)
}

func (q *Queue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return len(q.objects)
}

// DestroyAll destroys the queued objects in the order they were added
func (q *Queue) DestroyAll() int {
	q.mutex.Lock()
	objects := q.objects
	q.objects = nil
	q.mutex.Unlock()

	q.logger.Debug("Queue::DestroyAll", slog.Int("Count", len(objects)))

	for _, object := range objects {
		object.Destroy()
	}

	return len(objects)
}
