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
	"time"
)

// =============================================================================
// Order Repository
// =============================================================================

// InsertOrder persists an order and its items in one create. The caller
// (the transaction engine) is responsible for wrapping this in a
// Transaction together with the stock, spend, and tier writes.
func (s *Store) InsertOrder(ctx context.Context, o *Order) error {
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("store: inserting order: %w", err)
	}
	return nil
}

// GetOrderByID fetches an order with its items by numeric id.
func (s *Store) GetOrderByID(ctx context.Context, id uint) (*Order, error) {
	var o Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&o, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &o, nil
}

// GetOrderByNo fetches an order with its items by its human-readable
// order number.
func (s *Store) GetOrderByNo(ctx context.Context, orderNo string) (*Order, error) {
	var o Order
	if err := s.db.WithContext(ctx).Preload("Items").
		Where("order_no = ?", orderNo).First(&o).Error; err != nil {
		return nil, translateErr(err)
	}
	return &o, nil
}

// ListUserOrders returns a user's orders, newest first, optionally
// filtered by status.
func (s *Store) ListUserOrders(ctx context.Context, userID uint, status string) ([]Order, error) {
	query := s.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var orders []Order
	if err := query.Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("store: listing orders for user %d: %w", userID, err)
	}
	return orders, nil
}

// UpdateOrderStatus transitions an order to a new status, stamping the
// matching timestamp column (paid_at, shipped_at, delivered_at) when the
// transition defines one.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID uint, status string) error {
	updates := map[string]any{"status": status}
	now := time.Now()
	switch status {
	case OrderStatusPaid:
		updates["paid_at"] = &now
		updates["payment_status"] = PaymentStatusPaid
	case OrderStatusShipped:
		updates["shipped_at"] = &now
	case OrderStatusDelivered:
		updates["delivered_at"] = &now
	}

	res := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", orderID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("store: updating order %d status: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
