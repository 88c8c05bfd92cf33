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
	"time"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/engine"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/policy"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/store"
)

// =============================================================================
// Customer Service Tools
// =============================================================================

// supportTicketTool opens a customer-service case.
//
// Thread Safety: Safe for concurrent use.
type supportTicketTool struct {
	store *store.Store
	now   func() time.Time
}

// NewSupportTicketTool creates the create_support_ticket tool.
func NewSupportTicketTool(s *store.Store) Tool {
	return &supportTicketTool{store: s, now: time.Now}
}

func (t *supportTicketTool) Name() string           { return "create_support_ticket" }
func (t *supportTicketTool) Category() ToolCategory { return CategoryService }

func (t *supportTicketTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "create_support_ticket",
		Description: "Open a support ticket for an issue the tools cannot resolve " +
			"directly, optionally linked to an order.",
		Parameters: map[string]ParamDef{
			"user_id":     {Type: ParamTypeInt, Description: "Customer id", Required: true},
			"subject":     {Type: ParamTypeString, Description: "Short issue summary", Required: true},
			"description": {Type: ParamTypeString, Description: "Full issue description", Required: true},
			"category": {
				Type:        ParamTypeString,
				Description: "Issue category",
				Default:     "general",
				Enum:        []any{"general", "order", "payment", "shipping", "product", "return"},
			},
			"priority": {
				Type:        ParamTypeString,
				Description: "Ticket priority",
				Default:     "medium",
				Enum:        []any{"low", "medium", "high"},
			},
			"order_id": {Type: ParamTypeString, Description: "Related order id or order number"},
		},
		Category:    CategoryService,
		SideEffects: true,
		Timeout:     5 * time.Second,
	}
}

func (t *supportTicketTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	userID, ok := parseUintParam(params["user_id"])
	if !ok {
		return failure(start, "user_id must be a positive integer"), nil
	}
	subject, ok := parseStringParam(params["subject"])
	if !ok || subject == "" {
		return failure(start, "subject is required"), nil
	}
	description, ok := parseStringParam(params["description"])
	if !ok || description == "" {
		return failure(start, "description is required"), nil
	}
	category, _ := parseStringParam(params["category"])
	priority, _ := parseStringParam(params["priority"])

	ticket := &store.SupportTicket{
		TicketNo:    engine.FormatTicketNo(t.now(), userID),
		UserID:      userID,
		Subject:     subject,
		Description: description,
		Category:    category,
		Priority:    priority,
		Status:      "open",
	}
	if rawOrder, present := params["order_id"]; present && rawOrder != nil {
		ref, err := engine.ParseOrderRef(rawOrder)
		if err != nil {
			return failure(start, "%v", err), nil
		}
		var order *store.Order
		if ref.OrderNo != "" {
			order, err = t.store.GetOrderByNo(ctx, ref.OrderNo)
		} else {
			order, err = t.store.GetOrderByID(ctx, ref.ID)
		}
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return failure(start, "unknown order %s", ref.String()), nil
			}
			return nil, err
		}
		ticket.OrderID = &order.ID
	}

	if err := t.store.CreateTicket(ctx, ticket, description); err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Ticket %s opened with %s priority.", ticket.TicketNo, ticket.Priority)
	return success(start, ticket, text), nil
}

// processReturnTool runs the return-eligibility policy and opens the
// return when the item qualifies.
//
// Thread Safety: Safe for concurrent use.
type processReturnTool struct {
	engine *engine.Engine
}

// NewProcessReturnTool creates the process_return tool.
func NewProcessReturnTool(e *engine.Engine) Tool {
	return &processReturnTool{engine: e}
}

func (t *processReturnTool) Name() string           { return "process_return" }
func (t *processReturnTool) Category() ToolCategory { return CategoryService }

func (t *processReturnTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "process_return",
		Description: "Request a return or exchange for a delivered order. " +
			"Eligibility depends on product category, activation state, packaging, " +
			"and the member-tier return window; refusals explain the governing rule.",
		Parameters: map[string]ParamDef{
			"order_id": {Type: ParamTypeString, Description: "Order id or order number", Required: true},
			"user_id":  {Type: ParamTypeInt, Description: "Customer id", Required: true},
			"type": {
				Type:        ParamTypeString,
				Description: "Request type",
				Default:     "return",
				Enum:        []any{"return", "exchange"},
			},
			"reason": {Type: ParamTypeString, Description: "Customer-stated reason", Required: true},
			"product_category": {
				Type:        ParamTypeString,
				Description: "Category of the item being returned",
				Required:    true,
				Enum:        []any{"phone", "electronics", "accessory", "service"},
			},
			"is_activated":     {Type: ParamTypeBool, Description: "Whether a phone or electronics item has been activated", Default: false},
			"packaging_intact": {Type: ParamTypeBool, Description: "Whether accessory packaging is intact", Default: true},
			"is_defective":     {Type: ParamTypeBool, Description: "Whether the customer reports a quality defect", Default: false},
		},
		Category:    CategoryService,
		SideEffects: true,
		Timeout:     10 * time.Second,
	}
}

func (t *processReturnTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	ref, err := engine.ParseOrderRef(params["order_id"])
	if err != nil {
		return failure(start, "%v", err), nil
	}
	userID, ok := parseUintParam(params["user_id"])
	if !ok {
		return failure(start, "user_id must be a positive integer"), nil
	}
	reason, ok := parseStringParam(params["reason"])
	if !ok || reason == "" {
		return failure(start, "reason is required"), nil
	}
	category, ok := parseStringParam(params["product_category"])
	if !ok || category == "" {
		return failure(start, "product_category is required"), nil
	}
	returnType, _ := parseStringParam(params["type"])
	if returnType == "" {
		returnType = "return"
	}
	isActivated, _ := parseBoolParam(params["is_activated"])
	packagingIntact, _ := parseBoolParam(params["packaging_intact"])
	isDefective, _ := parseBoolParam(params["is_defective"])

	// A reported defect overrides the activation restriction for phones
	// and electronics.
	if isDefective {
		isActivated = false
	}

	outcome, err := t.engine.ProcessReturn(ctx, engine.ReturnInput{
		OrderRef:        ref,
		UserID:          userID,
		Type:            returnType,
		Reason:          reason,
		ProductCategory: category,
		IsActivated:     isActivated,
		PackagingIntact: packagingIntact,
	})
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			return failure(start, "%s", verr.Msg), nil
		}
		return nil, err
	}

	var text string
	if outcome.Approved {
		text = fmt.Sprintf("Return %s approved (%s).", outcome.ReturnNo, outcome.Policy.RuleID)
	} else {
		text = fmt.Sprintf("Return refused: %s (%s).", outcome.Policy.Justification, outcome.Policy.RuleID)
	}
	return success(start, outcome, text), nil
}

// userProfileTool returns the customer's profile with derived membership
// facts.
//
// Thread Safety: Safe for concurrent use.
type userProfileTool struct {
	store *store.Store
}

// NewUserProfileTool creates the get_user_profile tool.
func NewUserProfileTool(s *store.Store) Tool {
	return &userProfileTool{store: s}
}

func (t *userProfileTool) Name() string           { return "get_user_profile" }
func (t *userProfileTool) Category() ToolCategory { return CategoryService }

func (t *userProfileTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "get_user_profile",
		Description: "Get the customer's profile: membership tier, cumulative spend, " +
			"order count, and saved shipping details.",
		Parameters: map[string]ParamDef{
			"user_id": {Type: ParamTypeInt, Description: "Customer id", Required: true},
		},
		Category: CategoryService,
		Timeout:  5 * time.Second,
	}
}

func (t *userProfileTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	userID, ok := parseUintParam(params["user_id"])
	if !ok {
		return failure(start, "user_id must be a positive integer"), nil
	}

	user, err := t.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failure(start, "user %d does not exist", userID), nil
		}
		return nil, err
	}
	orderCount, err := t.store.CountUserOrders(ctx, userID)
	if err != nil {
		return nil, err
	}

	inferredTier := policy.InferTier(user.TotalSpent)
	nextTier, remaining := policy.SpendToNextTier(user.TotalSpent)
	text := fmt.Sprintf("%s is a %s member with %.2f cumulative spend and %d order(s).",
		user.Username, inferredTier, user.TotalSpent, orderCount)
	output := map[string]any{
		"user":          user,
		"inferred_tier": inferredTier,
		"order_count":   orderCount,
	}
	if nextTier != "" {
		output["next_tier"] = nextTier
		output["spend_to_next_tier"] = remaining
		text += fmt.Sprintf(" Spend %.2f more to reach %s.", remaining, nextTier)
	}
	return success(start, output, text), nil
}
