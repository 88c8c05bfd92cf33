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
// Product Repository
// =============================================================================

// SearchQuery holds the optional filters for SearchProducts. The keyword
// is OR-matched against name, description, and model.
type SearchQuery struct {
	Keyword       string
	Category      string
	Brand         string
	MinPrice      *float64
	MaxPrice      *float64
	AvailableOnly bool
	Limit         int
}

const defaultSearchLimit = 20

// CreateProduct inserts a new catalog entry.
func (s *Store) CreateProduct(ctx context.Context, p *Product) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("store: creating product: %w", err)
	}
	return nil
}

// GetProduct fetches a product by id. Returns ErrNotFound when absent.
func (s *Store) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var p Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &p, nil
}

// SearchProducts lists catalog entries matching the query filters.
func (s *Store) SearchProducts(ctx context.Context, q SearchQuery) ([]Product, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	query := s.db.WithContext(ctx).Model(&Product{})
	if q.Keyword != "" {
		like := "%" + q.Keyword + "%"
		query = query.Where("name LIKE ? OR description LIKE ? OR model LIKE ?", like, like, like)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.Brand != "" {
		query = query.Where("brand = ?", q.Brand)
	}
	if q.MinPrice != nil {
		query = query.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		query = query.Where("price <= ?", *q.MaxPrice)
	}
	if q.AvailableOnly {
		query = query.Where("is_available = ? AND stock > 0", true)
	}

	var products []Product
	if err := query.Order("id").Limit(limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("store: searching products: %w", err)
	}
	return products, nil
}

// UpdateStock applies a stock delta to a product. The guard clause keeps
// stock non-negative; a decrement past zero returns ErrInsufficientStock
// without modifying the row.
func (s *Store) UpdateStock(ctx context.Context, productID uint, delta int) error {
	res := s.db.WithContext(ctx).Model(&Product{}).
		Where("id = ? AND stock + ? >= 0", productID, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("store: updating stock for product %d: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing product from an over-decrement.
		if _, err := s.GetProduct(ctx, productID); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}

// CheckStock reports whether a product has at least quantity units
// available.
func (s *Store) CheckStock(ctx context.Context, productID uint, quantity int) (bool, int, error) {
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return false, 0, err
	}
	return p.IsAvailable && p.Stock >= quantity, p.Stock, nil
}

// ListRecommendations returns the highest-rated available products in a
// category, excluding the reference product itself.
func (s *Store) ListRecommendations(ctx context.Context, category string, excludeID uint, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 5
	}
	query := s.db.WithContext(ctx).Model(&Product{}).
		Where("is_available = ? AND stock > 0", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var products []Product
	if err := query.Order("rating DESC, id").Limit(limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("store: listing recommendations: %w", err)
	}
	return products, nil
}

// ListProductReviews returns the most recent reviews for a product.
func (s *Store) ListProductReviews(ctx context.Context, productID uint, limit int) ([]Review, error) {
	if limit <= 0 {
		limit = 10
	}
	var reviews []Review
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").Limit(limit).
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("store: listing reviews for product %d: %w", productID, err)
	}
	return reviews, nil
}
