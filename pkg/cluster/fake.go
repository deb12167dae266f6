package cluster

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Applier used by package tests that exercise a
// translator's output without a real cluster.
type Fake struct {
	mu      sync.Mutex
	objects map[string]Object // key: namespace/kind/name
}

// NewFake constructs an empty Fake.
func NewFake() *Fake {
	return &Fake{objects: make(map[string]Object)}
}

func fakeKey(namespace, kind, name string) string {
	return namespace + "/" + kind + "/" + name
}

// Apply stores obj, keyed by its namespace/kind/name, overwriting any prior
// object at that key.
func (f *Fake) Apply(_ context.Context, obj Object) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta := obj.Meta()
	f.objects[fakeKey(meta.Namespace, obj.Kind(), meta.Name)] = obj
	return nil
}

// Delete removes the object at namespace/kind/name, erroring if absent.
func (f *Fake) Delete(_ context.Context, namespace, kind, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fakeKey(namespace, kind, name)
	if _, ok := f.objects[key]; !ok {
		return fmt.Errorf("no such object: %s", key)
	}
	delete(f.objects, key)
	return nil
}

// Get returns the object stored at namespace/kind/name, if any.
func (f *Fake) Get(namespace, kind, name string) (Object, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[fakeKey(namespace, kind, name)]
	return obj, ok
}

// ListNamespace returns every object currently stored under namespace.
func (f *Fake) ListNamespace(namespace string) []Object {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Object
	for key, obj := range f.objects {
		if len(key) > len(namespace) && key[:len(namespace)] == namespace && key[len(namespace)] == '/' {
			out = append(out, obj)
		}
	}
	return out
}

// Count returns the number of objects currently stored.
func (f *Fake) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}
