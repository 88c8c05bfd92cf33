// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store is the relational persistence layer for the commerce
// assistant. It wraps a gorm handle over an embedded SQLite database and
// exposes one repository method per required operation; business rules
// live above it in the engine and policy packages.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Sentinel errors returned by repository methods.
var (
	// ErrNotFound reports that a looked-up row does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrInsufficientStock reports that a stock decrement would go negative.
	ErrInsufficientStock = errors.New("store: insufficient stock")
)

// Store is the repository facade. All methods accept a context and are
// safe for concurrent use; gorm manages the underlying connection pool.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path and migrates the
// schema.
//
// Description:
//
//	Uses the pure-Go SQLite driver so the binary stays CGO-free. The gorm
//	logger is silenced; persistence-level logging happens through slog at
//	the call sites that care.
//
// Inputs:
//   - path: Database file path. ":memory:" is accepted for tests.
//
// Outputs:
//   - *Store: The ready store.
//   - error: Non-nil if the database cannot be opened or migrated.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: opening database %q: %w", path, err)
	}

	if err := db.AutoMigrate(
		&User{},
		&Product{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&Shipment{},
		&Review{},
		&SupportTicket{},
		&TicketMessage{},
		&ReturnRequest{},
	); err != nil {
		return nil, fmt.Errorf("store: migrating schema: %w", err)
	}

	slog.Debug("store opened", slog.String("path", path))
	return &Store{db: db}, nil
}

// Transaction runs fn inside a single database transaction. The *Store
// passed to fn shares the transaction handle; returning an error rolls
// everything back.
//
// Thread Safety: Safe for concurrent use; each call gets its own
// transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(txdb *gorm.DB) error {
		return fn(&Store{db: txdb})
	})
}

// translateErr maps gorm's not-found to the package sentinel.
func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
