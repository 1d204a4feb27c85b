package services

import (
	"context"
	"crypto/ecdsa"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oceanx-economy-service/models"
	"oceanx-economy-service/ratelimit"
	"oceanx-economy-service/store"
)

const testWallet = "0x1111111111111111111111111111111111111111"

type claimFixture struct {
	store   *store.MemoryStore
	service *ClaimService
	key     *ecdsa.PrivateKey
}

func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()
	verifier, key := newTestVerifier(t)
	st := store.NewMemoryStore()
	svc := NewClaimService(st, verifier, ratelimit.NewCooldown(0))
	return &claimFixture{store: st, service: svc, key: key}
}

// issue registers a claim row and returns the matching signed request.
func (f *claimFixture) issue(t *testing.T, claimID string, amount int64, expiresAt int64) SettleRequest {
	t.Helper()
	require.NoError(t, f.store.CreateClaim(context.Background(), &models.Claim{
		ClaimID:   claimID,
		Wallet:    testWallet,
		Amount:    amount,
		ExpiresAt: expiresAt,
	}))
	payload := ClaimPayload{
		ClaimID:   claimID,
		Wallet:    testWallet,
		Amount:    strconv.FormatInt(amount, 10),
		ExpiresAt: expiresAt,
	}
	return SettleRequest{
		Payload:   payload,
		Signature: signPayload(t, f.service.Verifier, f.key, payload),
	}
}

func TestSettleHappyPath(t *testing.T) {
	f := newClaimFixture(t)
	req := f.issue(t, "claim-1", 50, time.Now().Add(time.Hour).Unix())

	result, eerr := f.service.Settle(context.Background(), testWallet, req)
	require.Nil(t, eerr)
	assert.Equal(t, int64(50), result.Amount)
	assert.Equal(t, int64(50), result.NewBalance)
	assert.NotEmpty(t, result.SettlementID)

	claim, err := f.store.ClaimByID(context.Background(), "claim-1")
	require.NoError(t, err)
	assert.True(t, claim.Used)
	require.NotNil(t, claim.UsedAt)
}

func TestSettleReplayIsRejected(t *testing.T) {
	f := newClaimFixture(t)
	req := f.issue(t, "claim-1", 50, time.Now().Add(time.Hour).Unix())

	_, eerr := f.service.Settle(context.Background(), testWallet, req)
	require.Nil(t, eerr)

	// Identical payload and signature a second time: no second credit.
	_, eerr = f.service.Settle(context.Background(), testWallet, req)
	require.NotNil(t, eerr)
	assert.Equal(t, KindClaimAlreadyUsed, eerr.Kind)

	player, err := f.store.PlayerByWallet(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, int64(50), player.OcxBalance)
}

func TestSettleAtMostOnceUnderConcurrency(t *testing.T) {
	f := newClaimFixture(t)
	req := f.issue(t, "claim-1", 75, time.Now().Add(time.Hour).Unix())

	const attempts = 16
	results := make([]*EconomyError, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.service.Settle(context.Background(), testWallet, req)
		}(i)
	}
	wg.Wait()

	var successes, replays int
	for _, eerr := range results {
		switch {
		case eerr == nil:
			successes++
		case eerr.Kind == KindClaimAlreadyUsed:
			replays++
		default:
			t.Fatalf("unexpected error kind %s", eerr.Kind)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, replays)

	player, err := f.store.PlayerByWallet(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, int64(75), player.OcxBalance)
}

func TestSettleExpiryBoundary(t *testing.T) {
	f := newClaimFixture(t)
	now := time.Now()
	f.service.now = func() time.Time { return now }

	expired := f.issue(t, "claim-old", 50, now.Unix()-1)
	_, eerr := f.service.Settle(context.Background(), testWallet, expired)
	require.NotNil(t, eerr)
	assert.Equal(t, KindSignatureExpired, eerr.Kind)

	fresh := f.issue(t, "claim-new", 50, now.Add(24*time.Hour).Unix())
	_, eerr = f.service.Settle(context.Background(), testWallet, fresh)
	assert.Nil(t, eerr)
}

func TestSettleAmountMismatch(t *testing.T) {
	f := newClaimFixture(t)
	req := f.issue(t, "claim-1", 50, time.Now().Add(time.Hour).Unix())

	// The client asks for more than the server-authoritative amount. The
	// signature check is bypassed here on purpose: even a request that forges
	// a valid signature flow must fail on the recomputed amount.
	inflated := req
	inflated.Payload.Amount = "500"
	inflated.Signature = signPayload(t, f.service.Verifier, f.key, inflated.Payload)

	_, eerr := f.service.Settle(context.Background(), testWallet, inflated)
	require.NotNil(t, eerr)
	assert.Equal(t, KindAmountMismatch, eerr.Kind)

	claim, err := f.store.ClaimByID(context.Background(), "claim-1")
	require.NoError(t, err)
	assert.False(t, claim.Used, "rejected settlement must not consume the claim")
}

func TestSettleWalletMismatch(t *testing.T) {
	f := newClaimFixture(t)
	req := f.issue(t, "claim-1", 50, time.Now().Add(time.Hour).Unix())

	_, eerr := f.service.Settle(context.Background(), "0x2222222222222222222222222222222222222222", req)
	require.NotNil(t, eerr)
	assert.Equal(t, KindUnauthorizedWallet, eerr.Kind)
}

func TestSettleUnknownClaim(t *testing.T) {
	f := newClaimFixture(t)
	payload := ClaimPayload{
		ClaimID:   "claim-missing",
		Wallet:    testWallet,
		Amount:    "50",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
	req := SettleRequest{
		Payload:   payload,
		Signature: signPayload(t, f.service.Verifier, f.key, payload),
	}

	_, eerr := f.service.Settle(context.Background(), testWallet, req)
	require.NotNil(t, eerr)
	assert.Equal(t, KindClaimNotFound, eerr.Kind)
}

func TestSettleForgedSignature(t *testing.T) {
	f := newClaimFixture(t)
	req := f.issue(t, "claim-1", 50, time.Now().Add(time.Hour).Unix())

	forged := req
	forged.Payload.Amount = "9999"
	// original signature kept

	_, eerr := f.service.Settle(context.Background(), testWallet, forged)
	require.NotNil(t, eerr)
	assert.Equal(t, KindInvalidSignature, eerr.Kind)
}

func TestSettleInvalidPayload(t *testing.T) {
	f := newClaimFixture(t)

	cases := map[string]SettleRequest{
		"missing claim id": {Payload: ClaimPayload{Wallet: testWallet, Amount: "50", ExpiresAt: 1}, Signature: "0xff"},
		"bad wallet":       {Payload: ClaimPayload{ClaimID: "c", Wallet: "not-an-address", Amount: "50", ExpiresAt: 1}, Signature: "0xff"},
		"bad amount":       {Payload: ClaimPayload{ClaimID: "c", Wallet: testWallet, Amount: "12.5", ExpiresAt: 1}, Signature: "0xff"},
		"zero amount":      {Payload: ClaimPayload{ClaimID: "c", Wallet: testWallet, Amount: "0", ExpiresAt: 1}, Signature: "0xff"},
		"no signature":     {Payload: ClaimPayload{ClaimID: "c", Wallet: testWallet, Amount: "50", ExpiresAt: 1}},
	}
	for name, req := range cases {
		_, eerr := f.service.Settle(context.Background(), testWallet, req)
		require.NotNil(t, eerr, name)
		assert.Equal(t, KindInvalidPayload, eerr.Kind, name)
	}
}

func TestSettleRateLimited(t *testing.T) {
	f := newClaimFixture(t)
	f.service.Limiter = ratelimit.NewCooldown(time.Minute)

	first := f.issue(t, "claim-1", 50, time.Now().Add(time.Hour).Unix())
	second := f.issue(t, "claim-2", 50, time.Now().Add(time.Hour).Unix())

	_, eerr := f.service.Settle(context.Background(), testWallet, first)
	require.Nil(t, eerr)

	_, eerr = f.service.Settle(context.Background(), testWallet, second)
	require.NotNil(t, eerr)
	assert.Equal(t, KindRateLimited, eerr.Kind)
	assert.Greater(t, eerr.RetryAfter, time.Duration(0))

	// The rejected claim stays settleable.
	claim, err := f.store.ClaimByID(context.Background(), "claim-2")
	require.NoError(t, err)
	assert.False(t, claim.Used)
}

func TestRegisterClaimValidation(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()

	eerr := f.service.RegisterClaim(ctx, &models.Claim{ClaimID: "c1", Wallet: testWallet, Amount: 10, ExpiresAt: 100})
	assert.Nil(t, eerr)

	// duplicate id
	eerr = f.service.RegisterClaim(ctx, &models.Claim{ClaimID: "c1", Wallet: testWallet, Amount: 10, ExpiresAt: 100})
	require.NotNil(t, eerr)
	assert.Equal(t, KindInvalidPayload, eerr.Kind)

	eerr = f.service.RegisterClaim(ctx, &models.Claim{ClaimID: "", Wallet: testWallet, Amount: 10, ExpiresAt: 100})
	require.NotNil(t, eerr)

	eerr = f.service.RegisterClaim(ctx, &models.Claim{ClaimID: "c2", Wallet: testWallet, Amount: -5, ExpiresAt: 100})
	require.NotNil(t, eerr)
}
