// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/store"
)

// =============================================================================
// Cart Tools
// =============================================================================

// addToCartTool adds a product line to a user's cart.
//
// Thread Safety: Safe for concurrent use.
type addToCartTool struct {
	store *store.Store
}

// NewAddToCartTool creates the add_to_cart tool.
func NewAddToCartTool(s *store.Store) Tool {
	return &addToCartTool{store: s}
}

func (t *addToCartTool) Name() string           { return "add_to_cart" }
func (t *addToCartTool) Category() ToolCategory { return CategoryCart }

func (t *addToCartTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "add_to_cart",
		Description: "Add a quantity of a product to the customer's cart. " +
			"Adding a product already in the cart increases its quantity.",
		Parameters: map[string]ParamDef{
			"user_id":    {Type: ParamTypeInt, Description: "Customer id", Required: true},
			"product_id": {Type: ParamTypeInt, Description: "Catalog id of the product", Required: true},
			"quantity":   {Type: ParamTypeInt, Description: "Units to add", Default: 1},
		},
		Category:    CategoryCart,
		SideEffects: true,
		Timeout:     5 * time.Second,
	}
}

func (t *addToCartTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	userID, ok := parseUintParam(params["user_id"])
	if !ok {
		return failure(start, "user_id must be a positive integer"), nil
	}
	productID, ok := parseUintParam(params["product_id"])
	if !ok {
		return failure(start, "product_id must be a positive integer"), nil
	}
	quantity, ok := parseIntParam(params["quantity"])
	if !ok || quantity <= 0 {
		return failure(start, "quantity must be a positive integer"), nil
	}

	item, err := t.store.AddToCart(ctx, userID, productID, quantity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failure(start, "product %d does not exist", productID), nil
		}
		return nil, err
	}

	text := fmt.Sprintf("Added %d unit(s) of product %d; cart line now holds %d.",
		quantity, productID, item.Quantity)
	return success(start, item, text), nil
}

// viewCartTool lists the customer's cart with product details and totals.
//
// Thread Safety: Safe for concurrent use.
type viewCartTool struct {
	store *store.Store
}

// NewViewCartTool creates the view_cart tool.
func NewViewCartTool(s *store.Store) Tool {
	return &viewCartTool{store: s}
}

func (t *viewCartTool) Name() string           { return "view_cart" }
func (t *viewCartTool) Category() ToolCategory { return CategoryCart }

func (t *viewCartTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "view_cart",
		Description: "List the customer's cart lines with product details and a running total.",
		Parameters: map[string]ParamDef{
			"user_id": {Type: ParamTypeInt, Description: "Customer id", Required: true},
		},
		Category: CategoryCart,
		Timeout:  5 * time.Second,
	}
}

func (t *viewCartTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	userID, ok := parseUintParam(params["user_id"])
	if !ok {
		return failure(start, "user_id must be a positive integer"), nil
	}

	lines, err := t.store.ViewCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	var total float64
	var sb strings.Builder
	if len(lines) == 0 {
		sb.WriteString("The cart is empty.")
	} else {
		fmt.Fprintf(&sb, "%d line(s) in cart:\n", len(lines))
		for _, line := range lines {
			lineTotal := float64(line.Item.Quantity) * line.Product.Price
			total += lineTotal
			fmt.Fprintf(&sb, "  • [%d] %s x%d — %.2f\n",
				line.Product.ID, line.Product.Name, line.Item.Quantity, lineTotal)
		}
		fmt.Fprintf(&sb, "Cart total: %.2f", total)
	}
	return success(start, map[string]any{
		"lines": lines,
		"total": total,
	}, sb.String()), nil
}

// removeFromCartTool deletes a product line from the cart.
//
// Thread Safety: Safe for concurrent use.
type removeFromCartTool struct {
	store *store.Store
}

// NewRemoveFromCartTool creates the remove_from_cart tool.
func NewRemoveFromCartTool(s *store.Store) Tool {
	return &removeFromCartTool{store: s}
}

func (t *removeFromCartTool) Name() string           { return "remove_from_cart" }
func (t *removeFromCartTool) Category() ToolCategory { return CategoryCart }

func (t *removeFromCartTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "remove_from_cart",
		Description: "Remove a product line from the customer's cart entirely.",
		Parameters: map[string]ParamDef{
			"user_id":    {Type: ParamTypeInt, Description: "Customer id", Required: true},
			"product_id": {Type: ParamTypeInt, Description: "Catalog id of the product to remove", Required: true},
		},
		Category:    CategoryCart,
		SideEffects: true,
		Timeout:     5 * time.Second,
	}
}

func (t *removeFromCartTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	userID, ok := parseUintParam(params["user_id"])
	if !ok {
		return failure(start, "user_id must be a positive integer"), nil
	}
	productID, ok := parseUintParam(params["product_id"])
	if !ok {
		return failure(start, "product_id must be a positive integer"), nil
	}

	if err := t.store.RemoveFromCart(ctx, userID, productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failure(start, "product %d is not in the cart", productID), nil
		}
		return nil, err
	}

	return success(start, map[string]any{
		"user_id":    userID,
		"product_id": productID,
		"removed":    true,
	}, fmt.Sprintf("Removed product %d from the cart.", productID)), nil
}
