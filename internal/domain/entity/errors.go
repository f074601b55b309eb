package entity

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPriceQueryUnsupportedAsset means the oracle cannot price the pair; try another oracle.
	ErrPriceQueryUnsupportedAsset = errors.New("price query unsupported asset")

	// ErrNoPriceForGivenTimestamp means the oracle has no data point for the timestamp.
	ErrNoPriceForGivenTimestamp = errors.New("no price for given timestamp")

	// ErrRemote covers transport, authentication and malformed-response failures.
	ErrRemote = errors.New("remote error")
)

// UnsupportedAssetError reports a pair the oracle cannot serve.
type UnsupportedAssetError struct {
	Oracle string
	From   string
	To     string
}

func (e *UnsupportedAssetError) Error() string {
	return fmt.Sprintf("%s: cannot price %s in %s: %v", e.Oracle, e.From, e.To, ErrPriceQueryUnsupportedAsset)
}

func (e *UnsupportedAssetError) Is(target error) bool {
	return target == ErrPriceQueryUnsupportedAsset
}

// NoPriceError reports a missing data point for a timestamp.
type NoPriceError struct {
	Oracle    string
	From      string
	To        string
	Timestamp time.Time
}

func (e *NoPriceError) Error() string {
	return fmt.Sprintf("%s: no %s/%s price at %d: %v", e.Oracle, e.From, e.To, e.Timestamp.Unix(), ErrNoPriceForGivenTimestamp)
}

func (e *NoPriceError) Is(target error) bool {
	return target == ErrNoPriceForGivenTimestamp
}

// RemoteError wraps a failure talking to the oracle's backend.
type RemoteError struct {
	Oracle string
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Oracle, ErrRemote, e.Err)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError wraps err as a RemoteError for the given oracle.
func NewRemoteError(oracle string, err error) error {
	return &RemoteError{Oracle: oracle, Err: err}
}
