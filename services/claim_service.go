package services

import (
	"context"
	"errors"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"oceanx-economy-service/models"
	"oceanx-economy-service/ratelimit"
	"oceanx-economy-service/store"
)

// AmountPolicy recomputes the server-authoritative OCX amount for a claim,
// independently of anything the client sent. The default policy returns the
// amount the reward calculator recorded at issue time; deployments with
// dynamic economy rules inject their own.
type AmountPolicy func(claim *models.Claim) int64

// RecordedAmount trusts the amount fixed on the claim row when it was issued.
func RecordedAmount(claim *models.Claim) int64 { return claim.Amount }

// SettleRequest is the wire shape of a claim submission.
type SettleRequest struct {
	Payload   ClaimPayload `json:"payload"`
	Signature string       `json:"signature"`
}

// SettleResult is returned only after the settlement transaction committed.
type SettleResult struct {
	ClaimID      string    `json:"claimId"`
	Wallet       string    `json:"wallet"`
	Amount       int64     `json:"amount"`
	NewBalance   int64     `json:"newBalance"`
	SettlementID string    `json:"settlementId"`
	ClaimedAt    time.Time `json:"claimedAt"`
}

// ClaimService verifies signed claims and settles them atomically: the claim
// row is locked, checked unused and unexpired, marked consumed and the player
// balance credited in one transaction. Concurrent submissions of the same
// claim serialize on the row lock; exactly one credits, the rest see
// CLAIM_ALREADY_USED.
type ClaimService struct {
	Store    store.Store
	Verifier *SignatureVerifier
	Limiter  ratelimit.Limiter
	Allowed  AmountPolicy

	now func() time.Time
}

func NewClaimService(st store.Store, verifier *SignatureVerifier, limiter ratelimit.Limiter) *ClaimService {
	return &ClaimService{
		Store:    st,
		Verifier: verifier,
		Limiter:  limiter,
		Allowed:  RecordedAmount,
		now:      time.Now,
	}
}

// Settle runs the full claim pipeline for the authenticated sessionWallet.
func (s *ClaimService) Settle(ctx context.Context, sessionWallet string, req SettleRequest) (*SettleResult, *EconomyError) {
	requested, eerr := s.validate(req)
	if eerr != nil {
		return nil, eerr
	}

	if ok, retryAfter := s.Limiter.Allow("claim:" + sessionWallet); !ok {
		return nil, &EconomyError{
			Kind:       KindRateLimited,
			Message:    "claim attempts are rate limited",
			RetryAfter: retryAfter,
		}
	}

	if valid, reason := s.Verifier.Verify(req.Payload, req.Signature); !valid {
		log.Printf("🚫 [CLAIM] Invalid signature for claim %s wallet %s (sig %s): %s",
			req.Payload.ClaimID, req.Payload.Wallet, TruncateSig(req.Signature), reason)
		return nil, Errf(KindInvalidSignature, "signature verification failed")
	}

	var result SettleResult
	err := s.Store.SettleClaim(ctx, req.Payload.ClaimID, func(claim *models.Claim, player *models.Player) error {
		if claim.Used {
			return Errf(KindClaimAlreadyUsed, "claim %s was already settled", claim.ClaimID)
		}
		now := s.now()
		if now.Unix() > claim.ExpiresAt {
			return Errf(KindSignatureExpired, "claim %s expired at %d", claim.ClaimID, claim.ExpiresAt)
		}
		serverAmount := s.Allowed(claim)
		if requested != serverAmount {
			return Errf(KindAmountMismatch, "requested %d, server-authoritative amount is %d", requested, serverAmount)
		}
		if !strings.EqualFold(claim.Wallet, sessionWallet) {
			return Errf(KindUnauthorizedWallet, "claim %s does not belong to the calling wallet", claim.ClaimID)
		}

		settlementID := uuid.NewString()
		claim.Used = true
		usedAt := now
		claim.UsedAt = &usedAt
		claim.SettlementID = &settlementID
		player.OcxBalance += serverAmount

		result = SettleResult{
			ClaimID:      claim.ClaimID,
			Wallet:       claim.Wallet,
			Amount:       serverAmount,
			NewBalance:   player.OcxBalance,
			SettlementID: settlementID,
			ClaimedAt:    usedAt,
		}
		return nil
	})
	if err != nil {
		var econ *EconomyError
		if errors.As(err, &econ) {
			log.Printf("🚫 [CLAIM] Rejected claim %s for wallet %s: %s", req.Payload.ClaimID, sessionWallet, econ.Kind)
			return nil, econ
		}
		if errors.Is(err, store.ErrClaimNotFound) {
			return nil, Errf(KindClaimNotFound, "no claim with id %s", req.Payload.ClaimID)
		}
		log.Printf("❌ [CLAIM] Settlement transaction failed for claim %s: %v", req.Payload.ClaimID, err)
		return nil, Errf(KindTransactionFailed, "settlement transaction failed")
	}

	s.Limiter.Record("claim:" + sessionWallet)
	log.Printf("✅ [CLAIM] Settled %s for %s: +%d OCX (settlement %s)",
		result.ClaimID, result.Wallet, result.Amount, result.SettlementID)
	return &result, nil
}

// validate enforces the payload shape and returns the requested amount.
func (s *ClaimService) validate(req SettleRequest) (int64, *EconomyError) {
	p := req.Payload
	if p.ClaimID == "" {
		return 0, Errf(KindInvalidPayload, "claimId is required")
	}
	if !common.IsHexAddress(p.Wallet) {
		return 0, Errf(KindInvalidPayload, "wallet is not a valid address")
	}
	if req.Signature == "" {
		return 0, Errf(KindInvalidPayload, "signature is required")
	}
	amount, ok := new(big.Int).SetString(p.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		return 0, Errf(KindInvalidPayload, "amount must be a positive decimal integer")
	}
	if !amount.IsInt64() {
		return 0, Errf(KindInvalidPayload, "amount exceeds the supported range")
	}
	return amount.Int64(), nil
}

// RegisterClaim persists a claim issued by the reward calculator so it can be
// settled later. Gateway-only; the calculator signs the matching payload.
func (s *ClaimService) RegisterClaim(ctx context.Context, claim *models.Claim) *EconomyError {
	if claim.ClaimID == "" || !common.IsHexAddress(claim.Wallet) || claim.Amount <= 0 || claim.ExpiresAt <= 0 {
		return Errf(KindInvalidPayload, "claim_id, wallet, positive amount and expires_at are required")
	}
	claim.Wallet = strings.ToLower(claim.Wallet)
	if err := s.Store.CreateClaim(ctx, claim); err != nil {
		if errors.Is(err, store.ErrDuplicateClaim) {
			return Errf(KindInvalidPayload, "claim %s is already registered", claim.ClaimID)
		}
		log.Printf("❌ [CLAIM] Failed to register claim %s: %v", claim.ClaimID, err)
		return Errf(KindTransactionFailed, "failed to register claim")
	}
	return nil
}
