// Package principal resolves session owners against the user-management
// backend. When no backend is configured, owner IDs are accepted as given.
package principal

import (
	"context"
	"fmt"
	"strings"

	"github.com/workos/workos-go/v6/pkg/usermanagement"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

// OwnerResolver validates that an owner ID names a real user.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, ownerID string) (string, error)
}

// Passthrough accepts any non-empty owner ID without an external lookup.
type Passthrough struct{}

func (Passthrough) ResolveOwner(_ context.Context, ownerID string) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", interview.NewInvalidRequestErrorWithParam("owner_id is required", "owner_id")
	}
	return ownerID, nil
}

// WorkOS resolves owner IDs through WorkOS user management. An unknown user
// surfaces as invalid_request so callers cannot create sessions for
// identities that do not exist.
type WorkOS struct {
	client *usermanagement.Client
}

func NewWorkOS(apiKey string) *WorkOS {
	return &WorkOS{client: usermanagement.NewClient(apiKey)}
}

func (w *WorkOS) ResolveOwner(ctx context.Context, ownerID string) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", interview.NewInvalidRequestErrorWithParam("owner_id is required", "owner_id")
	}
	user, err := w.client.GetUser(ctx, usermanagement.GetUserOpts{User: ownerID})
	if err != nil {
		return "", interview.NewInvalidRequestErrorWithParam(
			fmt.Sprintf("owner_id does not resolve to a known user: %v", err), "owner_id")
	}
	return user.ID, nil
}
