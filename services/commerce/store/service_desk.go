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
)

// =============================================================================
// Support Ticket & Return Repository
// =============================================================================

// CreateTicket opens a support ticket, optionally with a first message
// from the customer.
func (s *Store) CreateTicket(ctx context.Context, t *SupportTicket, initialMessage string) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("store: creating support ticket: %w", err)
	}
	if initialMessage != "" {
		msg := TicketMessage{TicketID: t.ID, Sender: "customer", Content: initialMessage}
		if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
			return fmt.Errorf("store: creating ticket message: %w", err)
		}
	}
	return nil
}

// GetTicket fetches a support ticket by id.
func (s *Store) GetTicket(ctx context.Context, id uint) (*SupportTicket, error) {
	var t SupportTicket
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &t, nil
}

// CreateReturnRequest opens a return or exchange against an order.
func (s *Store) CreateReturnRequest(ctx context.Context, r *ReturnRequest) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("store: creating return request: %w", err)
	}
	return nil
}

// ListOrderReturns returns the return requests opened against an order.
func (s *Store) ListOrderReturns(ctx context.Context, orderID uint) ([]ReturnRequest, error) {
	var returns []ReturnRequest
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).Order("id").
		Find(&returns).Error; err != nil {
		return nil, fmt.Errorf("store: listing returns for order %d: %w", orderID, err)
	}
	return returns, nil
}
