package utils

import (
	"sync"
)

// OptionalMutex is a sync.Mutex that can be switched off at construction time, for structures whose
// consumer has promised to synchronize access externally
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
