package interact

import (
	"errors"
	"fmt"
)

// Economic rejections. These are legitimate outcomes a well-behaved client
// can run into; the client is told which one occurred.
var (
	ErrInsufficientGold = errors.New("insufficient gold")
	ErrBagFull          = errors.New("bag is full")
	ErrAlreadyKnown     = errors.New("ability already known")
	ErrAlreadyCrafted   = errors.New("ability already crafted")
	ErrSpellbookFull    = errors.New("ability limit reached")
)

// ErrSessionClosed aborts a transaction whose session disconnected while the
// request was in flight. Not a verdict on the client: no kick, no tampering
// record, the transaction just never runs.
var ErrSessionClosed = errors.New("session closed")

// TamperError marks a request no unmodified client can produce: forged
// object IDs, out-of-range interactions, merchant indices past the end of
// the offering, craft combinations the UI cannot assemble. The session is
// kicked and the reason goes to the audit trail only, never to the client.
type TamperError struct {
	Reason string
}

func (e *TamperError) Error() string {
	return fmt.Sprintf("tampering: %s", e.Reason)
}

func tamper(format string, args ...interface{}) error {
	return &TamperError{Reason: fmt.Sprintf(format, args...)}
}

// IsTampering reports whether err carries a tampering verdict.
func IsTampering(err error) bool {
	var te *TamperError
	return errors.As(err, &te)
}
