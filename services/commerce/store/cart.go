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
// Cart Repository
// =============================================================================

// CartLine joins a cart item with its product for display.
type CartLine struct {
	Item    CartItem `json:"item"`
	Product Product  `json:"product"`
}

// AddToCart adds quantity units of a product to the user's cart. Adding a
// product already present increases its quantity.
func (s *Store) AddToCart(ctx context.Context, userID, productID uint, quantity int) (*CartItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("store: cart quantity must be positive, got %d", quantity)
	}
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	var item CartItem
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error
	switch {
	case err == nil:
		item.Quantity += quantity
		if err := s.db.WithContext(ctx).Save(&item).Error; err != nil {
			return nil, fmt.Errorf("store: updating cart item: %w", err)
		}
		return &item, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
		if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
			return nil, fmt.Errorf("store: creating cart item: %w", err)
		}
		return &item, nil
	default:
		return nil, fmt.Errorf("store: reading cart item: %w", err)
	}
}

// ViewCart lists the user's cart lines with product details.
func (s *Store) ViewCart(ctx context.Context, userID uint) ([]CartLine, error) {
	var items []CartItem
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).Order("id").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("store: listing cart for user %d: %w", userID, err)
	}

	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		product, err := s.GetProduct(ctx, item.ProductID)
		if err != nil {
			// A product removed from the catalog leaves a dangling cart
			// row; skip it rather than failing the whole view.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		lines = append(lines, CartLine{Item: item, Product: *product})
	}
	return lines, nil
}

// RemoveFromCart deletes a product from the user's cart. Removing an
// absent line returns ErrNotFound.
func (s *Store) RemoveFromCart(ctx context.Context, userID, productID uint) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&CartItem{})
	if res.Error != nil {
		return fmt.Errorf("store: removing cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCart removes every line from the user's cart.
func (s *Store) ClearCart(ctx context.Context, userID uint) error {
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("store: clearing cart for user %d: %w", userID, err)
	}
	return nil
}
