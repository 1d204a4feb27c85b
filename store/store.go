// Package store hides the transactional storage behind a small interface so
// the settlement algorithm reads the same against Postgres row locks and the
// in-memory double used in tests and single-instance dev runs.
package store

import (
	"context"
	"errors"
	"time"

	"oceanx-economy-service/models"
)

var (
	ErrClaimNotFound  = errors.New("claim not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrDuplicateClaim = errors.New("claim id already registered")
)

// SettleFunc runs with exclusive locks held on the claim row and the claim's
// player row. Returning nil commits both records; any error rolls the whole
// transaction back.
type SettleFunc func(claim *models.Claim, player *models.Player) error

// MutateFunc runs with an exclusive lock held on the player row. The returned
// events are appended in the same transaction as the player update.
type MutateFunc func(player *models.Player) ([]models.ResourceEvent, error)

type Store interface {
	// CreateClaim registers a freshly issued claim. ErrDuplicateClaim when
	// the claim id is already present.
	CreateClaim(ctx context.Context, claim *models.Claim) error
	ClaimByID(ctx context.Context, claimID string) (*models.Claim, error)

	// SettleClaim locks the claim row (ErrClaimNotFound when absent) and the
	// owning player row, creating the player at tier 1 on first touch, then
	// runs fn under the lock and persists both records iff fn returns nil.
	SettleClaim(ctx context.Context, claimID string, fn SettleFunc) error

	// EnsurePlayer returns the player row for a wallet, creating a tier-1
	// zero-balance row when none exists.
	EnsurePlayer(ctx context.Context, wallet string) (*models.Player, error)
	PlayerByWallet(ctx context.Context, wallet string) (*models.Player, error)

	// MutatePlayer locks the player row for wallet, runs fn, and persists the
	// player plus the returned audit events in one transaction.
	MutatePlayer(ctx context.Context, wallet string, fn MutateFunc) (*models.Player, error)

	// EventsAfter returns up to limit audit events created strictly after the
	// given time, oldest first. Used by the audit archiver.
	EventsAfter(ctx context.Context, after time.Time, limit int) ([]models.ResourceEvent, error)
}
