// Package errs classifies the failure modes the reward engine and payer can
// hit, per the propagation policy in the spec's error-handling design: some
// kinds are fatal at startup, some abort the current cycle for a retry, and
// some are logged and swallowed.
package errs

import (
	"errors"
	"fmt"
)

// Kind distinguishes the handling policy a caller should apply to an error.
type Kind uint8

const (
	// KindConfig is a fatal startup error — the process should exit non-zero.
	KindConfig Kind = iota
	// KindDatabase is operation-local; the current cycle aborts and is retried.
	KindDatabase
	// KindChainRPC means a chain RPC call failed; the current cycle aborts and retries.
	KindChainRPC
	// KindReceiptTimeout means a transaction receipt never arrived within the deadline;
	// the transaction stays PENDING and is reconciled on a later cycle.
	KindReceiptTimeout
	// KindPriceNotSynced means the price oracle has no row at or before the
	// requested block; the block is skipped and retried by the watcher.
	KindPriceNotSynced
	// KindDataInconsistency is logged and never aborts a cycle.
	KindDataInconsistency
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindDatabase:
		return "DatabaseError"
	case KindChainRPC:
		return "ChainRpcError"
	case KindReceiptTimeout:
		return "ReceiptTimeout"
	case KindPriceNotSynced:
		return "PriceNotSynced"
	case KindDataInconsistency:
		return "DataInconsistency"
	default:
		return "UnknownError"
	}
}

// Error wraps an underlying error with a Kind so callers can branch on
// errors.As without string-matching messages.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, errs.New(KindPriceNotSynced, "", nil)) style checks work,
// and more usefully so the Kind-specific sentinels below compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New builds an *Error of the given kind, wrapping err with an operation label.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Config wraps err as a fatal configuration error.
func Config(op string, err error) *Error { return New(KindConfig, op, err) }

// Database wraps err as an operation-local database failure.
func Database(op string, err error) *Error { return New(KindDatabase, op, err) }

// ChainRPC wraps err as a chain RPC failure.
func ChainRPC(op string, err error) *Error { return New(KindChainRPC, op, err) }

// ReceiptTimeout wraps err as a receipt-wait timeout.
func ReceiptTimeout(op string, err error) *Error { return New(KindReceiptTimeout, op, err) }

// DataInconsistency wraps err (or a bare message via errors.New upstream) as
// a non-fatal data inconsistency to be logged.
func DataInconsistency(op string, err error) *Error { return New(KindDataInconsistency, op, err) }

// ErrPriceNotSynced is returned by the Data Access Gateway when no
// ChainLinkPriceEvent row exists at or before the requested block.
var ErrPriceNotSynced = New(KindPriceNotSynced, "latest_chainlink_price", errors.New("price feed has no synced row at or before requested block"))

// KindOf extracts the Kind of err, defaulting to KindDatabase when err is not
// a classified *Error (an unclassified error from a dependency is treated as
// operation-local, the safest default policy).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDatabase
}
