package hashmap

import (
	"sync"
	"time"

	"github.com/skybi/ticketdesk/internal/task"
)

type expiringEntry[V any] struct {
	value    V
	inserted time.Time
}

// ExpiringMap is a thread safe map whose values exist for a fixed lifetime after they were set.
// Expired values are invisible immediately and removed from memory by the cleanup task.
type ExpiringMap[K comparable, V any] struct {
	mtx         sync.Mutex
	underlying  map[K]*expiringEntry[V]
	lifetime    time.Duration
	cleanupTask *task.RepeatingTask
}

// NewExpiring creates a new expiring map whose values exist for a specific lifetime.
// Expired values will not be freed before ScheduleCleanupTask is called.
func NewExpiring[K comparable, V any](lifetime time.Duration) *ExpiringMap[K, V] {
	return &ExpiringMap[K, V]{
		underlying: make(map[K]*expiringEntry[V]),
		lifetime:   lifetime,
	}
}

// ScheduleCleanupTask schedules the task that frees expired values in a specific interval.
// StopCleanupTask has to be called as soon as the map is no longer needed; it would not be garbage collected
// otherwise.
func (obj *ExpiringMap[K, V]) ScheduleCleanupTask(tick time.Duration) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	if obj.cleanupTask != nil {
		return
	}
	obj.cleanupTask = task.NewRepeating(obj.cleanup, tick)
	obj.cleanupTask.Start()
}

// StopCleanupTask stops the cleanup task
func (obj *ExpiringMap[K, V]) StopCleanupTask() {
	obj.mtx.Lock()
	cleanupTask := obj.cleanupTask
	obj.cleanupTask = nil
	obj.mtx.Unlock()
	if cleanupTask != nil {
		cleanupTask.Stop(false)
	}
}

func (obj *ExpiringMap[K, V]) cleanup() {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	for key, entry := range obj.underlying {
		if obj.expired(entry) {
			delete(obj.underlying, key)
		}
	}
}

func (obj *ExpiringMap[K, V]) expired(entry *expiringEntry[V]) bool {
	return time.Since(entry.inserted) > obj.lifetime
}

// Size returns the amount of stored key-value pairs, including expired ones not freed yet
func (obj *ExpiringMap[K, V]) Size() int {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	return len(obj.underlying)
}

// Lookup returns the value assigned to the given key and whether it is present and not expired
func (obj *ExpiringMap[K, V]) Lookup(key K) (V, bool) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	entry, ok := obj.underlying[key]
	if !ok || obj.expired(entry) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set sets a key-value pair, renewing its lifetime
func (obj *ExpiringMap[K, V]) Set(key K, value V) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	obj.underlying[key] = &expiringEntry[V]{
		value:    value,
		inserted: time.Now(),
	}
}

// Unset deletes the value assigned to given key
func (obj *ExpiringMap[K, V]) Unset(key K) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	delete(obj.underlying, key)
}

// Swap removes the value assigned to the given key and returns it if it was present and not expired
func (obj *ExpiringMap[K, V]) Swap(key K) (V, bool) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()
	entry, ok := obj.underlying[key]
	delete(obj.underlying, key)
	if !ok || obj.expired(entry) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// BootstrappedManipulation allows a thread safe direct manipulation of the live values.
// Deletions are applied to the map; added and modified values are (re-)inserted with a fresh lifetime.
func (obj *ExpiringMap[K, V]) BootstrappedManipulation(action func(underlying map[K]V)) {
	obj.mtx.Lock()
	defer obj.mtx.Unlock()

	live := make(map[K]V, len(obj.underlying))
	for key, entry := range obj.underlying {
		if !obj.expired(entry) {
			live[key] = entry.value
		}
	}
	action(live)

	now := time.Now()
	for key, entry := range obj.underlying {
		value, ok := live[key]
		switch {
		case !ok:
			delete(obj.underlying, key)
		case !obj.expired(entry):
			entry.value = value
			delete(live, key)
		}
	}
	for key, value := range live {
		obj.underlying[key] = &expiringEntry[V]{value: value, inserted: now}
	}
}
