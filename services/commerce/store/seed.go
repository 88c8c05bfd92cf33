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

// SeedDemoData inserts a small demo catalog and a few customers so the
// assistant is usable out of the box. It is a no-op when users already
// exist.
func (s *Store) SeedDemoData(ctx context.Context) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&User{}).Count(&n).Error; err != nil {
		return fmt.Errorf("store: counting users before seed: %w", err)
	}
	if n > 0 {
		return nil
	}

	users := []User{
		{Username: "alice", Phone: "13800000001", Address: "88 Harbor Road, Seattle", Tier: "Regular", TotalSpent: 0},
		{Username: "bob", Phone: "13800000002", Address: "12 Summit Ave, Anchorage", IsRemoteArea: true, Tier: "VIP", TotalSpent: 6200},
		{Username: "carol", Phone: "13800000003", Address: "301 Pine Street, Portland", Tier: "SVIP", TotalSpent: 15800},
	}
	for i := range users {
		if err := s.CreateUser(ctx, &users[i]); err != nil {
			return err
		}
	}

	products := []Product{
		{Name: "Aurora X1 Smartphone", Description: "6.7 inch flagship phone with satellite messaging", Model: "AX1-256", Category: "phone", Brand: "Aurora", Price: 5999, Stock: 40, Rating: 4.8, IsAvailable: true},
		{Name: "Aurora X1 Lite", Description: "Compact phone for everyday use", Model: "AX1L-128", Category: "phone", Brand: "Aurora", Price: 2999, Stock: 80, Rating: 4.5, IsAvailable: true},
		{Name: "Tundra Pro Laptop", Description: "14 inch workstation laptop, 32GB RAM", Model: "TP14-32", Category: "electronics", Brand: "Tundra", Price: 9499, Stock: 15, Rating: 4.7, IsAvailable: true},
		{Name: "Kodiak Wireless Earbuds", Description: "Noise cancelling earbuds with 30h battery", Model: "KWE-2", Category: "accessory", Brand: "Kodiak", Price: 499, Stock: 200, Rating: 4.4, IsAvailable: true},
		{Name: "Kodiak Fast Charger 65W", Description: "GaN wall charger with dual USB-C", Model: "KFC-65", Category: "accessory", Brand: "Kodiak", Price: 129, Stock: 300, Rating: 4.6, IsAvailable: true},
		{Name: "Extended Care Plan", Description: "Two-year accidental damage coverage", Model: "ECP-24", Category: "service", Brand: "Aleutian", Price: 399, Stock: 9999, Rating: 4.2, IsAvailable: true},
	}
	for i := range products {
		if err := s.CreateProduct(ctx, &products[i]); err != nil {
			return err
		}
	}

	reviews := []Review{
		{ProductID: 1, UserID: 2, Rating: 5, Content: "Satellite messaging saved a fishing trip."},
		{ProductID: 1, UserID: 3, Rating: 5, Content: "Best camera I have used on a phone."},
		{ProductID: 4, UserID: 1, Rating: 4, Content: "Great sound, case is a little bulky."},
	}
	for i := range reviews {
		if err := s.db.WithContext(ctx).Create(&reviews[i]).Error; err != nil {
			return fmt.Errorf("store: seeding reviews: %w", err)
		}
	}

	return nil
}
