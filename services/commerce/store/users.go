// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// =============================================================================
// User Repository
// =============================================================================

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("store: creating user: %w", err)
	}
	return nil
}

// GetUser fetches a user by id. Returns ErrNotFound when absent.
func (s *Store) GetUser(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &u, nil
}

// CountUserOrders returns the number of orders a user has placed,
// regardless of status. A count of zero marks the next order as the
// user's first for discount purposes.
func (s *Store) CountUserOrders(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Order{}).
		Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: counting orders for user %d: %w", userID, err)
	}
	return n, nil
}

// AddUserSpend increases a user's cumulative spend. Spend is monotonically
// non-decreasing; amount must be positive and is only applied by
// successful order commits.
func (s *Store) AddUserSpend(ctx context.Context, userID uint, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("store: spend delta must be non-negative, got %v", amount)
	}
	res := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		UpdateColumn("total_spent", gorm.Expr("total_spent + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("store: adding spend for user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserTier stores a newly inferred tier for the user.
func (s *Store) UpdateUserTier(ctx context.Context, userID uint, tier string) error {
	res := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		UpdateColumn("tier", tier)
	if res.Error != nil {
		return fmt.Errorf("store: updating tier for user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
