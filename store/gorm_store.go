package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oceanx-economy-service/models"
)

// GormStore is the production Store backed by Postgres. Exclusive row locks
// are taken with SELECT ... FOR UPDATE; every multi-row mutation runs inside
// one transaction bounded by TxTimeout so a wedged settlement rolls back
// instead of holding the claim row.
type GormStore struct {
	DB        *gorm.DB
	TxTimeout time.Duration
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db, TxTimeout: 5 * time.Second}
}

func (s *GormStore) CreateClaim(ctx context.Context, claim *models.Claim) error {
	err := s.DB.WithContext(ctx).Create(claim).Error
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateClaim
	}
	return err
}

func (s *GormStore) ClaimByID(ctx context.Context, claimID string) (*models.Claim, error) {
	var claim models.Claim
	if err := s.DB.WithContext(ctx).First(&claim, "claim_id = ?", claimID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	return &claim, nil
}

func (s *GormStore) SettleClaim(ctx context.Context, claimID string, fn SettleFunc) error {
	ctx, cancel := context.WithTimeout(ctx, s.TxTimeout)
	defer cancel()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var claim models.Claim
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&claim, "claim_id = ?", claimID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClaimNotFound
			}
			return err
		}

		player, err := lockOrCreatePlayer(tx, claim.Wallet)
		if err != nil {
			return err
		}

		if err := fn(&claim, player); err != nil {
			return err
		}

		if err := tx.Save(&claim).Error; err != nil {
			return err
		}
		return tx.Save(player).Error
	})
}

func (s *GormStore) EnsurePlayer(ctx context.Context, wallet string) (*models.Player, error) {
	var player models.Player
	err := s.DB.WithContext(ctx).First(&player, "wallet_address = ?", wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		player = models.Player{WalletAddress: wallet, SubmarineTier: 1}
		if createErr := s.DB.WithContext(ctx).Create(&player).Error; createErr != nil {
			// Lost a create race; the row exists now.
			if isUniqueViolation(createErr) {
				err = s.DB.WithContext(ctx).First(&player, "wallet_address = ?", wallet).Error
				if err != nil {
					return nil, err
				}
				return &player, nil
			}
			return nil, createErr
		}
		return &player, nil
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *GormStore) PlayerByWallet(ctx context.Context, wallet string) (*models.Player, error) {
	var player models.Player
	if err := s.DB.WithContext(ctx).First(&player, "wallet_address = ?", wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return &player, nil
}

func (s *GormStore) MutatePlayer(ctx context.Context, wallet string, fn MutateFunc) (*models.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, s.TxTimeout)
	defer cancel()

	var out *models.Player
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		player, err := lockOrCreatePlayer(tx, wallet)
		if err != nil {
			return err
		}

		events, err := fn(player)
		if err != nil {
			return err
		}

		if err := tx.Save(player).Error; err != nil {
			return err
		}
		for i := range events {
			events[i].PlayerID = player.ID
			events[i].WalletAddress = player.WalletAddress
		}
		if len(events) > 0 {
			if err := tx.Create(&events).Error; err != nil {
				return err
			}
		}
		out = player
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) EventsAfter(ctx context.Context, after time.Time, limit int) ([]models.ResourceEvent, error) {
	var events []models.ResourceEvent
	err := s.DB.WithContext(ctx).
		Where("created_at > ?", after).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// lockOrCreatePlayer takes the player row FOR UPDATE, creating a tier-1 row
// on first touch so claims issued before the wallet ever mined still settle.
func lockOrCreatePlayer(tx *gorm.DB, wallet string) (*models.Player, error) {
	var player models.Player
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&player, "wallet_address = ?", wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		player = models.Player{WalletAddress: wallet, SubmarineTier: 1}
		if err := tx.Create(&player).Error; err != nil {
			return nil, err
		}
		return &player, nil
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate key"))
}
