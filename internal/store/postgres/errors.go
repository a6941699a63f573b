package postgres

import (
	"errors"

	"github.com/lib/pq"

	"github.com/Koolhand111/eva-finance/internal/domain"
)

// pqErrorCode classes, from the Postgres error code table: connection
// failures and deadlocks are store-transient (§7); everything else,
// unique_violation included, is store-permanent.
const (
	codeUniqueViolation     = "23505"
	codeDeadlockDetected    = "40P01"
	codeSerializationFail   = "40001"
	codeConnectionException = "08000"
	codeConnectionDoesNotExist = "08003"
	codeConnectionFailure   = "08006"
)

// isUniqueViolation reports whether err is a Postgres unique_violation.
// Nothing calls it: the idempotent inserts use ON CONFLICT DO NOTHING and
// never see that error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == codeUniqueViolation
	}
	return false
}

func isTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeDeadlockDetected, codeSerializationFail, codeConnectionException,
			codeConnectionDoesNotExist, codeConnectionFailure:
			return true
		}
	}
	return false
}

// wrapStoreErr classifies a Postgres error into the store-transient /
// store-permanent kinds of spec.md §7.
func wrapStoreErr(stage, message string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return domain.NewStoreTransient(stage, message, err)
	}
	return domain.NewStorePermanent(stage, message, err)
}
