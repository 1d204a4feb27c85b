package services

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ClaimPayload is the signed portion of a claim submission. The signature
// binds exactly these fields; changing any of them invalidates it.
type ClaimPayload struct {
	ClaimID string `json:"claimId"`
	Wallet  string `json:"wallet"`
	// Amount is a decimal integer string (arbitrary precision on the wire).
	Amount    string `json:"amount"`
	ExpiresAt int64  `json:"expiresAt"`
}

// SignatureVerifier checks that a claim payload was signed by the backend
// signing key. It recomputes the EIP-712 digest the issuer produced — same
// field order, types and domain separator — recovers the signer and compares
// it against the single authorized address. It never consults storage.
type SignatureVerifier struct {
	domainName        string
	domainVersion     string
	chainID           int64
	verifyingContract string
	authorizedSigner  common.Address
}

func NewSignatureVerifier(domainName, domainVersion string, chainID int64, verifyingContract, authorizedSigner string) (*SignatureVerifier, error) {
	if !common.IsHexAddress(authorizedSigner) {
		return nil, fmt.Errorf("authorized signer %q is not a hex address", authorizedSigner)
	}
	if !common.IsHexAddress(verifyingContract) {
		return nil, fmt.Errorf("verifying contract %q is not a hex address", verifyingContract)
	}
	return &SignatureVerifier{
		domainName:        domainName,
		domainVersion:     domainVersion,
		chainID:           chainID,
		verifyingContract: verifyingContract,
		authorizedSigner:  common.HexToAddress(authorizedSigner),
	}, nil
}

func (v *SignatureVerifier) typedData(p ClaimPayload) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Claim": {
				{Name: "claimId", Type: "string"},
				{Name: "wallet", Type: "address"},
				{Name: "amount", Type: "uint256"},
				{Name: "expiresAt", Type: "uint256"},
			},
		},
		PrimaryType: "Claim",
		Domain: apitypes.TypedDataDomain{
			Name:              v.domainName,
			Version:           v.domainVersion,
			ChainId:           math.NewHexOrDecimal256(v.chainID),
			VerifyingContract: v.verifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"claimId":   p.ClaimID,
			"wallet":    p.Wallet,
			"amount":    p.Amount,
			"expiresAt": strconv.FormatInt(p.ExpiresAt, 10),
		},
	}
}

// Digest returns the EIP-712 hash the issuer signs. Exported so the issuance
// side (and tests) can produce signatures against the same encoding.
func (v *SignatureVerifier) Digest(p ClaimPayload) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(v.typedData(p))
	if err != nil {
		return nil, err
	}
	return digest, nil
}

// Verify reports whether sigHex is a valid signature over p by the authorized
// signer. Malformed input yields (false, reason), never an error or panic.
func (v *SignatureVerifier) Verify(p ClaimPayload, sigHex string) (bool, string) {
	if p.ClaimID == "" || !common.IsHexAddress(p.Wallet) {
		return false, "malformed payload"
	}
	if _, ok := new(big.Int).SetString(p.Amount, 10); !ok {
		return false, "amount is not a decimal integer"
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return false, "signature is not hex"
	}
	if len(raw) != crypto.SignatureLength {
		return false, fmt.Sprintf("signature length %d, want %d", len(raw), crypto.SignatureLength)
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, raw)
	// Wallets emit V as 27/28; recovery wants 0/1.
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return false, "invalid recovery id"
	}

	digest, err := v.Digest(p)
	if err != nil {
		return false, "digest computation failed"
	}

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return false, "signature recovery failed"
	}
	if crypto.PubkeyToAddress(*pub) != v.authorizedSigner {
		return false, "recovered signer is not authorized"
	}
	return true, ""
}

// TruncateSig shortens a signature for diagnostics. Raw signatures never hit
// the logs in full.
func TruncateSig(sigHex string) string {
	if len(sigHex) <= 12 {
		return sigHex
	}
	return sigHex[:12] + "…"
}
