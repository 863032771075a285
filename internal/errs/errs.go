// Package errs defines the error kinds shared across the soundprint core and
// the propagation policy between them (decode/feature/persist/index/timeout/
// auth/catalog).
package errs

import (
	"fmt"

	xerrors "github.com/mdobak/go-xerrors"
)

// Kind classifies an error so callers can branch with errors.Is without
// parsing messages.
type Kind string

const (
	// KindDecode marks a bad or unsupported container/codec, or truncated input.
	KindDecode Kind = "decode"
	// KindFeature marks a DSP failure during extraction. Always absorbed into
	// a degraded Fingerprint by the extractor; never meant to reach a caller.
	KindFeature Kind = "feature"
	// KindPersist marks a metadata store failure. Always propagated.
	KindPersist Kind = "persist"
	// KindIndex marks a schema mismatch or an operation on an unusable index.
	KindIndex Kind = "index"
	// KindTimeout marks a deadline exceeded on I/O or a catalog call.
	KindTimeout Kind = "timeout"
	// KindAuth marks missing catalog credentials. Disables the adapter silently.
	KindAuth Kind = "auth"
	// KindCatalog marks a catalog transport or parse failure.
	KindCatalog Kind = "catalog"
)

// Error wraps a cause with a Kind and a stack trace via go-xerrors, so
// log output keeps the chain while callers can still switch on Kind.
type Error struct {
	Kind Kind
	Op   string
	err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// New wraps err with a Kind and an operation label, attaching a stack trace.
// err may be nil, in which case New returns nil — convenient for
// `return errs.New(...)` tail calls guarded by `if err != nil`.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, err: xerrors.New(err)}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
