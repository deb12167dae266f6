package cluster

import (
	"context"
	"fmt"
)

// Applier applies cluster objects and removes them by namespace/kind/name.
// Implementations talk to a real cluster API (or, in tests, an in-memory
// fake); the translator and instance manager depend only on this interface,
// never on client-go, per spec.md's design notes.
type Applier interface {
	Apply(ctx context.Context, obj Object) error
	Delete(ctx context.Context, namespace, kind, name string) error
}

// Plan is an ordered, namespace-scoped set of objects the translator
// produced for one challenge instance. Objects are applied in order so that
// a Service's selector can reference a Deployment's pod labels once both
// exist, and deleted in reverse order.
type Plan struct {
	Namespace string
	Objects   []Object
}

// Apply applies every object in the plan, in order, stopping at the first
// error.
func Apply(ctx context.Context, a Applier, plan *Plan) error {
	for _, obj := range plan.Objects {
		if err := a.Apply(ctx, obj); err != nil {
			return fmt.Errorf("apply %s/%s: %w", obj.Kind(), obj.Meta().Name, err)
		}
	}
	return nil
}

// Teardown deletes every object in the plan in reverse order.
func Teardown(ctx context.Context, a Applier, plan *Plan) error {
	for i := len(plan.Objects) - 1; i >= 0; i-- {
		obj := plan.Objects[i]
		if err := a.Delete(ctx, plan.Namespace, obj.Kind(), obj.Meta().Name); err != nil {
			return fmt.Errorf("delete %s/%s: %w", obj.Kind(), obj.Meta().Name, err)
		}
	}
	return nil
}
