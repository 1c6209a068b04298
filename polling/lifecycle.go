package polling

import (
	"context"

	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/persistence"
)

const SUBSCRIPTION_KEY = "subscriptionId"

// Lifecycle is implemented by connectors that register something remote
// when a trigger is switched on and must clean it up when switched off.
type Lifecycle interface {
	OnEnable(ctx context.Context, hooks Hooks) error
	OnDisable(ctx context.Context, hooks Hooks) error
}

// Hooks gives lifecycle callbacks access to the trigger's flow scope.
type Hooks struct {
	Store persistence.ScopedStore
	Scope model.Scope
}

type subscription struct {
	Id string `json:"id"`
}

// EnsureSubscription returns the stored subscription id, calling create and
// storing its result only when none exists yet.
func (h Hooks) EnsureSubscription(ctx context.Context, create func(ctx context.Context) (string, error)) (string, error) {
	existing, err := persistence.GetJSON[subscription](ctx, h.Store, h.Scope, SUBSCRIPTION_KEY)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.Id, nil
	}
	id, err := create(ctx)
	if err != nil {
		return "", err
	}
	if err := persistence.PutJSON(ctx, h.Store, h.Scope, SUBSCRIPTION_KEY, subscription{Id: id}); err != nil {
		return "", err
	}
	return id, nil
}

// Subscription returns the stored subscription id, if any.
func (h Hooks) Subscription(ctx context.Context) (string, bool, error) {
	existing, err := persistence.GetJSON[subscription](ctx, h.Store, h.Scope, SUBSCRIPTION_KEY)
	if err != nil || existing == nil {
		return "", false, err
	}
	return existing.Id, true, nil
}
