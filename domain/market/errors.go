package market

import "errors"

// Business errors reject the offending event and leave book state
// untouched. ErrInvariantViolation means the feed or an upstream
// component produced an impossible state; callers must stop processing
// instead of continuing on corrupted data.
var (
	ErrDuplicateSymbol    = errors.New("duplicate symbol")
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrDuplicateOrderID   = errors.New("duplicate order id")
	ErrUnknownOrderID     = errors.New("unknown order id")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrOverExecution      = errors.New("over-execution")
	ErrInvariantViolation = errors.New("invariant violation")
)

// IsFatal reports whether err must abort the feed.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
