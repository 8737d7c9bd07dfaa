// Package notify implements the notification surfaces behind alert.Dispatcher.
package notify

import (
	"context"
	"fmt"

	"budgetwatch/internal/store"
)

const (
	permissionPrefix  = "notification_permission:"
	permissionGranted = "granted"
	permissionDenied  = "denied"
)

// PermissionGate stores whether an owner allowed push notifications.
// Owners that never answered are treated as not granted.
type PermissionGate struct {
	kv store.KeyValueStore
}

func NewPermissionGate(kv store.KeyValueStore) *PermissionGate {
	return &PermissionGate{kv: kv}
}

func (g *PermissionGate) Granted(ctx context.Context, ownerID string) (bool, error) {
	entry, err := g.kv.Get(ctx, permissionPrefix+ownerID)
	if err != nil {
		return false, fmt.Errorf("read notification permission: %w", err)
	}
	return entry.Value == permissionGranted, nil
}

func (g *PermissionGate) Set(ctx context.Context, ownerID string, granted bool) error {
	value := permissionDenied
	if granted {
		value = permissionGranted
	}
	if err := g.kv.Set(ctx, permissionPrefix+ownerID, value); err != nil {
		return fmt.Errorf("write notification permission: %w", err)
	}
	return nil
}
