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
// Catalog Tools
// =============================================================================

// searchProductsTool queries the catalog with optional filters.
//
// Thread Safety: Safe for concurrent use. All operations are read-only.
type searchProductsTool struct {
	store *store.Store
}

// NewSearchProductsTool creates the search_products tool.
func NewSearchProductsTool(s *store.Store) Tool {
	return &searchProductsTool{store: s}
}

func (t *searchProductsTool) Name() string           { return "search_products" }
func (t *searchProductsTool) Category() ToolCategory { return CategoryCatalog }

func (t *searchProductsTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "search_products",
		Description: "Search the product catalog by keyword and optional filters. " +
			"The keyword matches product name, description, and model number. " +
			"Use when the customer is browsing or asking what is available.",
		Parameters: map[string]ParamDef{
			"keyword":  {Type: ParamTypeString, Description: "Search keyword matched against name, description, and model"},
			"category": {Type: ParamTypeString, Description: "Restrict to a category (phone, electronics, accessory, service)"},
			"brand":    {Type: ParamTypeString, Description: "Restrict to a brand"},
			"min_price": {
				Type:        ParamTypeFloat,
				Description: "Minimum price filter",
			},
			"max_price": {
				Type:        ParamTypeFloat,
				Description: "Maximum price filter",
			},
			"limit": {Type: ParamTypeInt, Description: "Maximum results to return", Default: 10},
		},
		Category: CategoryCatalog,
		Timeout:  5 * time.Second,
	}
}

func (t *searchProductsTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()

	q := store.SearchQuery{AvailableOnly: true}
	if keyword, ok := parseStringParam(params["keyword"]); ok {
		q.Keyword = strings.TrimSpace(keyword)
	}
	if category, ok := parseStringParam(params["category"]); ok {
		q.Category = strings.TrimSpace(category)
	}
	if brand, ok := parseStringParam(params["brand"]); ok {
		q.Brand = strings.TrimSpace(brand)
	}
	if minPrice, ok := parseFloatParam(params["min_price"]); ok {
		q.MinPrice = &minPrice
	}
	if maxPrice, ok := parseFloatParam(params["max_price"]); ok {
		q.MaxPrice = &maxPrice
	}
	if limit, ok := parseIntParam(params["limit"]); ok {
		q.Limit = limit
	}
	if q.Keyword == "" && q.Category == "" && q.Brand == "" {
		return failure(start, "provide at least one of keyword, category, or brand"), nil
	}

	products, err := t.store.SearchProducts(ctx, q)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if len(products) == 0 {
		sb.WriteString("No products matched the search.")
	} else {
		fmt.Fprintf(&sb, "Found %d product(s):\n", len(products))
		for _, p := range products {
			fmt.Fprintf(&sb, "  • [%d] %s (%s) — %.2f, %d in stock\n",
				p.ID, p.Name, p.Category, p.Price, p.Stock)
		}
	}
	return success(start, map[string]any{
		"count":    len(products),
		"products": products,
	}, sb.String()), nil
}

// productDetailTool fetches one catalog entry.
//
// Thread Safety: Safe for concurrent use.
type productDetailTool struct {
	store *store.Store
}

// NewProductDetailTool creates the get_product_detail tool.
func NewProductDetailTool(s *store.Store) Tool {
	return &productDetailTool{store: s}
}

func (t *productDetailTool) Name() string           { return "get_product_detail" }
func (t *productDetailTool) Category() ToolCategory { return CategoryCatalog }

func (t *productDetailTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "get_product_detail",
		Description: "Get the full detail of one product: price, stock, rating, " +
			"description. Use after a search when the customer asks about a specific item.",
		Parameters: map[string]ParamDef{
			"product_id": {Type: ParamTypeInt, Description: "Catalog id of the product", Required: true},
		},
		Category: CategoryCatalog,
		Timeout:  5 * time.Second,
	}
}

func (t *productDetailTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	productID, ok := parseUintParam(params["product_id"])
	if !ok {
		return failure(start, "product_id must be a positive integer"), nil
	}

	product, err := t.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failure(start, "product %d does not exist", productID), nil
		}
		return nil, err
	}

	text := fmt.Sprintf("%s (%s, %s) — %.2f, rating %.1f, %d in stock.\n%s",
		product.Name, product.Brand, product.Category, product.Price,
		product.Rating, product.Stock, product.Description)
	return success(start, product, text), nil
}

// checkStockTool checks availability for a requested quantity.
//
// Thread Safety: Safe for concurrent use.
type checkStockTool struct {
	store *store.Store
}

// NewCheckStockTool creates the check_stock tool.
func NewCheckStockTool(s *store.Store) Tool {
	return &checkStockTool{store: s}
}

func (t *checkStockTool) Name() string           { return "check_stock" }
func (t *checkStockTool) Category() ToolCategory { return CategoryCatalog }

func (t *checkStockTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "check_stock",
		Description: "Check whether a product has enough stock for a requested " +
			"quantity. Use before creating an order when the customer names a quantity.",
		Parameters: map[string]ParamDef{
			"product_id": {Type: ParamTypeInt, Description: "Catalog id of the product", Required: true},
			"quantity":   {Type: ParamTypeInt, Description: "Requested quantity", Default: 1},
		},
		Category: CategoryCatalog,
		Timeout:  5 * time.Second,
	}
}

func (t *checkStockTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	productID, ok := parseUintParam(params["product_id"])
	if !ok {
		return failure(start, "product_id must be a positive integer"), nil
	}
	quantity, ok := parseIntParam(params["quantity"])
	if !ok || quantity <= 0 {
		return failure(start, "quantity must be a positive integer"), nil
	}

	enough, stock, err := t.store.CheckStock(ctx, productID, quantity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failure(start, "product %d does not exist", productID), nil
		}
		return nil, err
	}

	text := fmt.Sprintf("Product %d has %d in stock; requested %d: %v",
		productID, stock, quantity, enough)
	return success(start, map[string]any{
		"product_id": productID,
		"requested":  quantity,
		"stock":      stock,
		"sufficient": enough,
	}, text), nil
}

// recommendationsTool lists highest-rated alternatives in a category.
//
// Thread Safety: Safe for concurrent use.
type recommendationsTool struct {
	store *store.Store
}

// NewRecommendationsTool creates the get_product_recommendations tool.
func NewRecommendationsTool(s *store.Store) Tool {
	return &recommendationsTool{store: s}
}

func (t *recommendationsTool) Name() string           { return "get_product_recommendations" }
func (t *recommendationsTool) Category() ToolCategory { return CategoryCatalog }

func (t *recommendationsTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "get_product_recommendations",
		Description: "Recommend the highest-rated in-stock products, optionally " +
			"within a category or relative to a reference product (which is excluded).",
		Parameters: map[string]ParamDef{
			"category":   {Type: ParamTypeString, Description: "Category to recommend within"},
			"product_id": {Type: ParamTypeInt, Description: "Reference product to exclude; its category is used when category is omitted"},
			"limit":      {Type: ParamTypeInt, Description: "Maximum recommendations", Default: 5},
		},
		Category: CategoryCatalog,
		Timeout:  5 * time.Second,
	}
}

func (t *recommendationsTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()

	category, _ := parseStringParam(params["category"])
	limit, _ := parseIntParam(params["limit"])

	var excludeID uint
	if productID, ok := parseUintParam(params["product_id"]); ok {
		excludeID = productID
		if category == "" {
			product, err := t.store.GetProduct(ctx, productID)
			if err == nil {
				category = product.Category
			} else if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		}
	}

	products, err := t.store.ListRecommendations(ctx, category, excludeID, limit)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if len(products) == 0 {
		sb.WriteString("No recommendations available.")
	} else {
		fmt.Fprintf(&sb, "Top %d recommendation(s):\n", len(products))
		for _, p := range products {
			fmt.Fprintf(&sb, "  • [%d] %s — %.2f, rating %.1f\n", p.ID, p.Name, p.Price, p.Rating)
		}
	}
	return success(start, map[string]any{
		"count":    len(products),
		"products": products,
	}, sb.String()), nil
}

// reviewsTool lists recent reviews for a product.
//
// Thread Safety: Safe for concurrent use.
type reviewsTool struct {
	store *store.Store
}

// NewReviewsTool creates the get_product_reviews tool.
func NewReviewsTool(s *store.Store) Tool {
	return &reviewsTool{store: s}
}

func (t *reviewsTool) Name() string           { return "get_product_reviews" }
func (t *reviewsTool) Category() ToolCategory { return CategoryCatalog }

func (t *reviewsTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "get_product_reviews",
		Description: "List the most recent customer reviews for a product.",
		Parameters: map[string]ParamDef{
			"product_id": {Type: ParamTypeInt, Description: "Catalog id of the product", Required: true},
			"limit":      {Type: ParamTypeInt, Description: "Maximum reviews to return", Default: 5},
		},
		Category: CategoryCatalog,
		Timeout:  5 * time.Second,
	}
}

func (t *reviewsTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	productID, ok := parseUintParam(params["product_id"])
	if !ok {
		return failure(start, "product_id must be a positive integer"), nil
	}
	limit, _ := parseIntParam(params["limit"])

	reviews, err := t.store.ListProductReviews(ctx, productID, limit)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if len(reviews) == 0 {
		sb.WriteString("No reviews yet for this product.")
	} else {
		fmt.Fprintf(&sb, "%d review(s):\n", len(reviews))
		for _, r := range reviews {
			fmt.Fprintf(&sb, "  • %d/5 — %s\n", r.Rating, r.Content)
		}
	}
	return success(start, map[string]any{
		"count":   len(reviews),
		"reviews": reviews,
	}, sb.String()), nil
}
