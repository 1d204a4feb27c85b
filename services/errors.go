package services

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind is the machine-readable rejection code returned to clients.
// Callers use it to tell "retry with a new claim" from "already settled"
// from "fatal misuse".
type ErrorKind string

const (
	KindInvalidPayload     ErrorKind = "INVALID_PAYLOAD"
	KindInvalidSignature   ErrorKind = "INVALID_SIGNATURE"
	KindClaimNotFound      ErrorKind = "CLAIM_NOT_FOUND"
	KindClaimAlreadyUsed   ErrorKind = "CLAIM_ALREADY_USED"
	KindSignatureExpired   ErrorKind = "SIGNATURE_EXPIRED"
	KindAmountMismatch     ErrorKind = "AMOUNT_MISMATCH"
	KindUnauthorizedWallet ErrorKind = "UNAUTHORIZED_WALLET"
	KindNothingToTrade     ErrorKind = "NOTHING_TO_TRADE"
	KindTradeLimitExceeded ErrorKind = "TRADE_LIMIT_EXCEEDED"
	KindRateLimited        ErrorKind = "RATE_LIMITED"
	KindTransactionFailed  ErrorKind = "TRANSACTION_FAILED"
	KindInternalError      ErrorKind = "INTERNAL_ERROR"
)

// EconomyError is the typed failure every economy operation returns.
// RetryAfter is set only on rate-limit rejections.
type EconomyError struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration
}

func (e *EconomyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Errf(kind ErrorKind, format string, args ...interface{}) *EconomyError {
	return &EconomyError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps an error kind to its response status.
func (e *EconomyError) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidPayload, KindAmountMismatch, KindNothingToTrade, KindTradeLimitExceeded:
		return fiber.StatusBadRequest
	case KindInvalidSignature:
		return fiber.StatusUnauthorized
	case KindUnauthorizedWallet:
		return fiber.StatusForbidden
	case KindClaimNotFound:
		return fiber.StatusNotFound
	case KindClaimAlreadyUsed:
		return fiber.StatusConflict
	case KindSignatureExpired:
		return fiber.StatusGone
	case KindRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
