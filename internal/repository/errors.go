package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrOwnerNotFound is returned by an OwnerDirectory when no owner matches.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrInvalidTransition is returned by TryClaim for a move the ticket
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid ticket status transition")
	// ErrPriceOutOfRange is returned when a price does not fit the price column.
	ErrPriceOutOfRange = errors.New("ticket price out of range")
)

// PartialBatchError reports a batch insert that stored only some tickets.
type PartialBatchError struct {
	Requested int
	StoredIDs []string
	Err       error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("batch insert stored %d of %d tickets [%s]: %v",
		len(e.StoredIDs), e.Requested, strings.Join(e.StoredIDs, ","), e.Err)
}

func (e *PartialBatchError) Unwrap() error {
	return e.Err
}

const (
	pgForeignKeyViolation = "23503"
	pgInvalidTextRep      = "22P02"
	pgNumericOutOfRange   = "22003"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
