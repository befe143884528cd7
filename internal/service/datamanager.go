// Package service contains the Data Manager: the one place that reads and
// writes users and items.
//
// THE LAYERS:
//
//	Handler (HTTP layer)     → parses forms, renders pages, sets flash messages
//	DataManager (this layer) → validates, enforces uniqueness, runs transactions
//	Repository (data layer)  → SQL against SQLite or PostgreSQL
//
// OUTCOMES:
// Writes return the affected record or an *apperror.AppError. Handlers branch
// on the error kind with errors.Is (ErrValidation, ErrConflict, ErrNotFound,
// ErrStorage) and show the error's Message to the user.
//
// Reads are forgiving: a storage fault is logged and reported as "nothing
// there" (an empty slice or nil), so a page can still render.
//
// TRANSACTIONS:
// Every write runs inside store.WithinTx. The uniqueness pre-check and the
// write share one transaction, and any error rolls the whole thing back.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// DataManager is the facade over the persistence layer.
type DataManager struct {
	store  repository.TxStore
	hasher model.PasswordHasher
	logger *slog.Logger
}

// NewDataManager wires the store and password hasher. The store handle is
// injected here and nowhere else; there is no package-level connection.
func NewDataManager(store repository.TxStore, hasher model.PasswordHasher, logger *slog.Logger) *DataManager {
	return &DataManager{
		store:  store,
		hasher: hasher,
		logger: logger,
	}
}

// fault passes typed outcomes through and turns anything else into a logged
// storage error carrying userMessage.
func (m *DataManager) fault(ctx context.Context, op string, err error, userMessage string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && !errors.Is(err, apperror.ErrStorage) {
		return appErr
	}
	m.logger.ErrorContext(ctx, "storage fault", "op", op, "error", err)
	return apperror.Storage(userMessage, err)
}

// lookup runs a single-record read, mapping "not found" to (nil, nil) so
// callers can tell absence from a fault.
func lookup[T any](v *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}
