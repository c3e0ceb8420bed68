package sqlconnector

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
	"github.com/satishbabariya/prisma-engine/internal/core/schema"
)

var sentinelErrors = map[error]struct{ code, message string }{
	coreerrors.ErrUniqueConstraint:     {coreerrors.CodeUniqueViolation, "Unique constraint failed"},
	coreerrors.ErrForeignKeyConstraint: {coreerrors.CodeForeignKey, "Foreign key constraint failed"},
	coreerrors.ErrNullConstraint:       {coreerrors.CodeNullConstraint, "Null constraint violation"},
	coreerrors.ErrWriteConflict:        {coreerrors.CodeWriteConflict, "Transaction failed due to a write conflict or a deadlock. Please retry your transaction"},
}

// classify maps a driver error onto the engine's error taxonomy. Typed
// driver errors are checked first; anything else falls back to message
// matching in coreerrors.ClassifyError.
func classify(model *schema.Model, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := coreerrors.As(err); ok {
		return err
	}

	var classified *coreerrors.Error
	if sentinel := driverSentinel(err); sentinel != nil {
		e := sentinelErrors[sentinel]
		classified = coreerrors.Executionf(e.code, "%s", e.message).WithCause(fmt.Errorf("%w: %w", sentinel, err))
	} else {
		var ok bool
		if classified, ok = coreerrors.As(coreerrors.ClassifyError(err)); !ok {
			return err
		}
	}
	if model != nil {
		classified = classified.WithModel(model.Name)
	}
	return classified
}

// driverSentinel inspects typed driver errors.
func driverSentinel(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return coreerrors.ErrUniqueConstraint
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
			return coreerrors.ErrForeignKeyConstraint
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintNotNull:
			return coreerrors.ErrNullConstraint
		case sqliteErr.Code == sqlite3.ErrBusy, sqliteErr.Code == sqlite3.ErrLocked:
			return coreerrors.ErrWriteConflict
		}
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return coreerrors.ErrUniqueConstraint
		case "foreign_key_violation":
			return coreerrors.ErrForeignKeyConstraint
		case "not_null_violation":
			return coreerrors.ErrNullConstraint
		case "serialization_failure", "deadlock_detected":
			return coreerrors.ErrWriteConflict
		}
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return coreerrors.ErrUniqueConstraint
		case 1451, 1452:
			return coreerrors.ErrForeignKeyConstraint
		case 1048, 1364:
			return coreerrors.ErrNullConstraint
		case 1205, 1213:
			return coreerrors.ErrWriteConflict
		}
	}
	return nil
}
