package instance

import (
	"context"
	"fmt"
	"sync"
)

// FakeStore is an in-memory NamespaceStore used by package tests and by
// other packages' tests that need a stand-in instance manager dependency.
type FakeStore struct {
	mu         sync.Mutex
	namespaces map[string]Namespace
}

// NewFakeStore constructs an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{namespaces: make(map[string]Namespace)}
}

// List returns every namespace whose labels are a superset of labels.
func (f *FakeStore) List(_ context.Context, labels map[string]string) ([]Namespace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Namespace
	for _, ns := range f.namespaces {
		if matches(ns.Labels, labels) {
			out = append(out, ns)
		}
	}
	return out, nil
}

func matches(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// Create adds a namespace in the Creating state (no pods yet).
func (f *FakeStore) Create(_ context.Context, name string, labels map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.namespaces[name]; ok {
		return fmt.Errorf("namespace %q already exists", name)
	}
	f.namespaces[name] = Namespace{Name: name, Labels: labels}
	return nil
}

// Delete removes a namespace, erroring if absent.
func (f *FakeStore) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.namespaces[name]; !ok {
		return fmt.Errorf("no such namespace %q", name)
	}
	delete(f.namespaces, name)
	return nil
}

// SetPodPhases sets the pod phases reported for an existing namespace, used
// by tests to drive it into Running/Creating/Terminating states.
func (f *FakeStore) SetPodPhases(name string, phases []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ns := f.namespaces[name]
	ns.PodPhases = phases
	f.namespaces[name] = ns
}

// SetTerminating marks an existing namespace as terminating.
func (f *FakeStore) SetTerminating(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ns := f.namespaces[name]
	ns.Terminating = true
	f.namespaces[name] = ns
}

// CountActive returns the number of stored namespaces in the Running state, satisfying
// pkg/metrics.InstanceSource for the active-instance gauge.
func (f *FakeStore) CountActive() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, ns := range f.namespaces {
		if ns.state() == StateRunning {
			count++
		}
	}
	return count, nil
}
