package binance

import (
	"context"
	"errors"
	"fmt"

	"github.com/adshao/go-binance/v2/common"
)

var (
	// ErrEmptyResponse is the venue answering 200 with no body. It is
	// transient; the same request should simply be sent again.
	ErrEmptyResponse = errors.New("binance: empty server response")
	ErrRateLimited   = errors.New("binance: rate limited")
	ErrAuth          = errors.New("binance: authentication rejected")
	ErrTransport     = errors.New("binance: transport error")
)

// venue error codes
const (
	codeTooManyRequests = -1003
	codeTooManyOrders   = -1015
	codeBadSignature    = -1022
	codeRejectedMBXKey  = -2014
	codeInvalidAPIKey   = -2015
)

// Classify maps an SDK error onto the package's sentinel errors. The original
// error stays in the chain.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrAuth), errors.Is(err, ErrTransport):
		return err
	case errors.Is(err, context.Canceled):
		return err
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case codeTooManyRequests, codeTooManyOrders:
			return fmt.Errorf("%w: %w", ErrRateLimited, err)
		case codeBadSignature, codeRejectedMBXKey, codeInvalidAPIKey:
			return fmt.Errorf("%w: %w", ErrAuth, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// Retryable reports whether err is the transient empty-response condition.
func Retryable(err error) bool {
	return errors.Is(err, ErrEmptyResponse)
}
