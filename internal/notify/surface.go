package notify

import (
	"context"

	"budgetwatch/internal/alert"
)

type (
	// Sender pushes an alert through one transport.
	Sender interface {
		Send(ctx context.Context, req alert.Request) error
	}

	// Linker is implemented by senders that need a per-owner destination
	// before anything can be delivered.
	Linker interface {
		Linked(ctx context.Context, ownerID string) (bool, error)
	}
)

// Surface combines a permission gate with a sender into an alert.Notifier.
type Surface struct {
	gate   *PermissionGate
	sender Sender
}

var _ alert.Notifier = (*Surface)(nil)

func NewSurface(gate *PermissionGate, sender Sender) *Surface {
	return &Surface{gate: gate, sender: sender}
}

func (s *Surface) HasPermission(ctx context.Context, ownerID string) (bool, error) {
	return s.gate.Granted(ctx, ownerID)
}

// RequestPermission grants delivery for owner. Senders that need a linked
// destination refuse until the owner has linked one.
func (s *Surface) RequestPermission(ctx context.Context, ownerID string) (bool, error) {
	granted := true
	if l, ok := s.sender.(Linker); ok {
		linked, err := l.Linked(ctx, ownerID)
		if err != nil {
			return false, err
		}
		granted = linked
	}
	if err := s.gate.Set(ctx, ownerID, granted); err != nil {
		return false, err
	}
	return granted, nil
}

func (s *Surface) NotifyNow(ctx context.Context, req alert.Request) error {
	return s.sender.Send(ctx, req)
}
