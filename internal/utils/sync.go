package utils

import (
	"sync"
)

// OptionalMutex is a mutex that only locks when UseMutex is set. Containers shared between
// a device and its contexts enable it; containers owned by a single recorder leave it off.
type OptionalMutex struct {
	Mutex    sync.Mutex
	UseMutex bool
}

func (m *OptionalMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}
