package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"oceanx-economy-service/models"
)

// MemoryStore implements Store with plain maps behind one mutex. It is the
// test double for the settlement concurrency discipline and a stand-in for
// local runs without Postgres. The single mutex is a stricter serialization
// than the per-row locks of GormStore, so anything correct here may still be
// wrong under Postgres, but nothing correct under Postgres fails here.
type MemoryStore struct {
	mu      sync.Mutex
	claims  map[string]*models.Claim
	players map[string]*models.Player
	events  []models.ResourceEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims:  make(map[string]*models.Claim),
		players: make(map[string]*models.Player),
	}
}

func (s *MemoryStore) CreateClaim(ctx context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[claim.ClaimID]; ok {
		return ErrDuplicateClaim
	}
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = time.Now()
	}
	cp := *claim
	s.claims[claim.ClaimID] = &cp
	return nil
}

func (s *MemoryStore) ClaimByID(ctx context.Context, claimID string) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return nil, ErrClaimNotFound
	}
	cp := *claim
	return &cp, nil
}

func (s *MemoryStore) SettleClaim(ctx context.Context, claimID string, fn SettleFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return ErrClaimNotFound
	}

	// Work on copies so a failing fn leaves no partial mutation behind,
	// including the first-touch player creation.
	player, exists := s.players[claim.Wallet]
	var playerCopy models.Player
	if exists {
		playerCopy = *player
	} else {
		playerCopy = models.Player{
			ID:            uuid.NewString(),
			WalletAddress: claim.Wallet,
			SubmarineTier: 1,
		}
	}
	claimCopy := *claim
	if err := fn(&claimCopy, &playerCopy); err != nil {
		return err
	}
	*claim = claimCopy
	if exists {
		*player = playerCopy
	} else {
		s.players[claim.Wallet] = &playerCopy
	}
	return nil
}

func (s *MemoryStore) EnsurePlayer(ctx context.Context, wallet string) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.playerLocked(wallet)
	return &cp, nil
}

func (s *MemoryStore) PlayerByWallet(ctx context.Context, wallet string) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[wallet]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	cp := *player
	return &cp, nil
}

func (s *MemoryStore) MutatePlayer(ctx context.Context, wallet string, fn MutateFunc) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// First touch builds the row off-map so a failing fn leaves nothing
	// behind, matching the transaction rollback of the Postgres store.
	player, exists := s.players[wallet]
	var playerCopy models.Player
	if exists {
		playerCopy = *player
	} else {
		playerCopy = models.Player{
			ID:            uuid.NewString(),
			WalletAddress: wallet,
			SubmarineTier: 1,
		}
	}
	events, err := fn(&playerCopy)
	if err != nil {
		return nil, err
	}
	if exists {
		*player = playerCopy
	} else {
		player = &playerCopy
		s.players[wallet] = player
	}

	now := time.Now()
	for i := range events {
		events[i].ID = uuid.NewString()
		events[i].PlayerID = player.ID
		events[i].WalletAddress = player.WalletAddress
		events[i].CreatedAt = now
		s.events = append(s.events, events[i])
	}
	cp := *player
	return &cp, nil
}

func (s *MemoryStore) EventsAfter(ctx context.Context, after time.Time, limit int) ([]models.ResourceEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ResourceEvent
	for _, ev := range s.events {
		if ev.CreatedAt.After(after) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Events returns a copy of every audit row, oldest first. Test helper.
func (s *MemoryStore) Events() []models.ResourceEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ResourceEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *MemoryStore) playerLocked(wallet string) *models.Player {
	player, ok := s.players[wallet]
	if !ok {
		player = &models.Player{
			ID:            uuid.NewString(),
			WalletAddress: wallet,
			SubmarineTier: 1,
		}
		s.players[wallet] = player
	}
	return player
}
