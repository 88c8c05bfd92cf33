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
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// =============================================================================
// Payment & Shipment Repository
// =============================================================================

// CreatePayment records a settlement for an order.
func (s *Store) CreatePayment(ctx context.Context, p *Payment) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("store: creating payment: %w", err)
	}
	return nil
}

// GetPaymentByOrder fetches the most recent payment for an order.
func (s *Store) GetPaymentByOrder(ctx context.Context, orderID uint) (*Payment, error) {
	var p Payment
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id DESC").First(&p).Error; err != nil {
		return nil, translateErr(err)
	}
	return &p, nil
}

// CreateShipment records a shipment for an order. Its presence blocks
// cancellation from then on.
func (s *Store) CreateShipment(ctx context.Context, sh *Shipment) error {
	if err := s.db.WithContext(ctx).Create(sh).Error; err != nil {
		return fmt.Errorf("store: creating shipment: %w", err)
	}
	return nil
}

// GetShipmentByOrder fetches the shipment for an order.
func (s *Store) GetShipmentByOrder(ctx context.Context, orderID uint) (*Shipment, error) {
	var sh Shipment
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id DESC").First(&sh).Error; err != nil {
		return nil, translateErr(err)
	}
	return &sh, nil
}

// GetShipmentByTrackingNo fetches a shipment by its tracking number.
func (s *Store) GetShipmentByTrackingNo(ctx context.Context, trackingNo string) (*Shipment, error) {
	var sh Shipment
	if err := s.db.WithContext(ctx).
		Where("tracking_no = ?", trackingNo).First(&sh).Error; err != nil {
		return nil, translateErr(err)
	}
	return &sh, nil
}

// HasShipment reports whether any shipment record exists for an order.
func (s *Store) HasShipment(ctx context.Context, orderID uint) (bool, error) {
	var sh Shipment
	err := s.db.WithContext(ctx).
		Select("id").Where("order_id = ?", orderID).First(&sh).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("store: checking shipment for order %d: %w", orderID, err)
}

// MarkShipmentDelivered transitions a shipment to delivered.
func (s *Store) MarkShipmentDelivered(ctx context.Context, shipmentID uint) error {
	res := s.db.WithContext(ctx).Model(&Shipment{}).
		Where("id = ?", shipmentID).
		Updates(map[string]any{"status": ShipmentStatusDelivered, "delivered_at": gorm.Expr("CURRENT_TIMESTAMP")})
	if res.Error != nil {
		return fmt.Errorf("store: marking shipment %d delivered: %w", shipmentID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
