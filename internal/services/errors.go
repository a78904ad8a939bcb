package services

import (
	"errors"
	"fmt"

	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/internal/repository"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/nimasrn/store-ledger/pkg/prom"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrCustomerNotFound    = fmt.Errorf("customer %w", ErrNotFound)
	ErrProductNotFound     = fmt.Errorf("product %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrSaleNotFound        = fmt.Errorf("sale %w", ErrNotFound)

	ErrValidation        = model.ErrValidation
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotEditable       = errors.New("not editable")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrTransactionAbort  = errors.New("transaction aborted")
)

var knownErrors = []error{
	ErrNotFound,
	ErrValidation,
	ErrInsufficientStock,
	ErrNotEditable,
	ErrDuplicateKey,
	ErrTransactionAbort,
}

// fromRepo maps repository sentinels onto service sentinels. notFound is the
// entity-specific not-found error to report.
func fromRepo(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrDuplicateKey):
		return ErrDuplicateKey
	case errors.Is(err, repository.ErrInsufficientStock):
		return ErrInsufficientStock
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %v", ErrTransactionAbort, err)
	}
	return err
}

// classify passes taxonomy errors through untouched and turns anything else
// into ErrTransactionAbort. The atomic unit has already been rolled back by
// the time it runs.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			if errors.Is(err, ErrTransactionAbort) {
				logger.Error("[services] operation aborted", "op", op, "error", err)
				prom.IncOperationAbort(op)
			}
			return err
		}
	}
	logger.Error("[services] operation aborted", "op", op, "error", err)
	prom.IncOperationAbort(op)
	return fmt.Errorf("%s: %w: %v", op, ErrTransactionAbort, err)
}
