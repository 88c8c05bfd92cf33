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

	"github.com/AleutianAI/AleutianCommerce/services/commerce/engine"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/store"
)

// =============================================================================
// Order Tools
// =============================================================================

// createOrderTool runs the full order-creation pipeline.
//
// Description:
//
//	Delegates to the transaction engine: price and stock resolution,
//	discount and shipping policy composition, structural validation,
//	and the single-transaction commit. Missing shipping details fall
//	back to the customer's profile.
//
// Thread Safety: Safe for concurrent use.
type createOrderTool struct {
	store  *store.Store
	engine *engine.Engine
}

// NewCreateOrderTool creates the create_order tool.
func NewCreateOrderTool(s *store.Store, e *engine.Engine) Tool {
	return &createOrderTool{store: s, engine: e}
}

func (t *createOrderTool) Name() string           { return "create_order" }
func (t *createOrderTool) Category() ToolCategory { return CategoryOrder }

func (t *createOrderTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "create_order",
		Description: "Create an order for the customer from explicit item lines. " +
			"Pricing, membership discounts, and shipping fees are computed " +
			"server-side; the response includes the policy breakdown. " +
			"Shipping address and contact phone default to the customer's profile.",
		Parameters: map[string]ParamDef{
			"user_id": {Type: ParamTypeInt, Description: "Customer id", Required: true},
			"items": {
				Type:        ParamTypeArray,
				Description: `Order lines: [{"product_id": n, "quantity": n}]; unit_price is optional and server-resolved when omitted`,
				Required:    true,
			},
			"shipping_address": {Type: ParamTypeString, Description: "Delivery address; defaults to the profile address"},
			"contact_phone":    {Type: ParamTypeString, Description: "Contact phone; defaults to the profile phone"},
		},
		Category:      CategoryOrder,
		SideEffects:   true,
		CheckoutClass: true,
		Timeout:       10 * time.Second,
	}
}

func (t *createOrderTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	userID, ok := parseUintParam(params["user_id"])
	if !ok {
		return failure(start, "user_id must be a positive integer"), nil
	}
	items, err := parseItemsParam(params["items"])
	if err != nil {
		return failure(start, "%v", err), nil
	}

	address, _ := parseStringParam(params["shipping_address"])
	phone, _ := parseStringParam(params["contact_phone"])
	if address == "" || phone == "" {
		user, err := t.store.GetUser(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return failure(start, "user %d does not exist", userID), nil
			}
			return nil, err
		}
		if address == "" {
			address = user.Address
		}
		if phone == "" {
			phone = user.Phone
		}
	}
	if address == "" {
		return failure(start, "no shipping address given and the profile has none on file"), nil
	}

	result, err := t.engine.CreateOrder(ctx, engine.CreateOrderInput{
		UserID:          userID,
		Items:           items,
		ShippingAddress: address,
		ContactPhone:    phone,
	})
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			return failure(start, "%s", verr.Msg), nil
		}
		return nil, err
	}

	text := fmt.Sprintf(
		"Order %s created: gross %.2f, discount %.2f (%s), net %.2f, shipping %.2f (%s), payable %.2f.",
		result.Order.OrderNo, result.Order.TotalAmount, result.Order.DiscountAmount,
		result.Inference.Discount.RuleID, result.Order.FinalAmount,
		result.Order.ShippingFee, result.Inference.Shipping.RuleID, result.PayableTotal)
	return success(start, result, text), nil
}

// orderDetailTool assembles the composite order view.
//
// Thread Safety: Safe for concurrent use.
type orderDetailTool struct {
	engine *engine.Engine
}

// NewOrderDetailTool creates the get_order_detail tool.
func NewOrderDetailTool(e *engine.Engine) Tool {
	return &orderDetailTool{engine: e}
}

func (t *orderDetailTool) Name() string           { return "get_order_detail" }
func (t *orderDetailTool) Category() ToolCategory { return CategoryOrder }

func (t *orderDetailTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "get_order_detail",
		Description: "Get an order's full state: status, amounts, items, payment, " +
			"and shipment. Accepts a numeric order id or an order number like " +
			"ORD20250102030405....",
		Parameters: map[string]ParamDef{
			"order_id": {Type: ParamTypeString, Description: "Order id or order number", Required: true},
		},
		Category: CategoryOrder,
		Timeout:  5 * time.Second,
	}
}

func (t *orderDetailTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	ref, err := engine.ParseOrderRef(params["order_id"])
	if err != nil {
		return failure(start, "%v", err), nil
	}

	detail, err := t.engine.GetOrderDetail(ctx, ref)
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			return failure(start, "%s", verr.Msg), nil
		}
		return nil, err
	}

	text := fmt.Sprintf("Order %s is %s; payable %.2f (net %.2f + shipping %.2f).",
		detail.Order.OrderNo, detail.Order.Status,
		detail.Order.FinalAmount+detail.Order.ShippingFee,
		detail.Order.FinalAmount, detail.Order.ShippingFee)
	return success(start, detail, text), nil
}

// cancelOrderTool runs the cancellation state machine.
//
// Description:
//
//	A denial is a successful observation carrying the policy rule and
//	justification, not an error; the model is expected to relay the
//	reason (and suggest the return flow for shipped orders).
//
// Thread Safety: Safe for concurrent use.
type cancelOrderTool struct {
	engine *engine.Engine
}

// NewCancelOrderTool creates the cancel_order tool.
func NewCancelOrderTool(e *engine.Engine) Tool {
	return &cancelOrderTool{engine: e}
}

func (t *cancelOrderTool) Name() string           { return "cancel_order" }
func (t *cancelOrderTool) Category() ToolCategory { return CategoryOrder }

func (t *cancelOrderTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "cancel_order",
		Description: "Attempt to cancel an order. Pending orders cancel within 24h, " +
			"paid orders within 12h if unshipped; shipped orders must use the return " +
			"flow instead. The response states the governing rule either way.",
		Parameters: map[string]ParamDef{
			"order_id": {Type: ParamTypeString, Description: "Order id or order number", Required: true},
		},
		Category:    CategoryOrder,
		SideEffects: true,
		Timeout:     5 * time.Second,
	}
}

func (t *cancelOrderTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	ref, err := engine.ParseOrderRef(params["order_id"])
	if err != nil {
		return failure(start, "%v", err), nil
	}

	result, err := t.engine.CancelOrder(ctx, ref)
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			return failure(start, "%s", verr.Msg), nil
		}
		return nil, err
	}

	var text string
	if result.Cancelled {
		text = fmt.Sprintf("Order %s cancelled (%s).", result.Order.OrderNo, result.Policy.RuleID)
	} else {
		text = fmt.Sprintf("Order %s cannot be cancelled: %s (%s).",
			result.Order.OrderNo, result.Policy.Justification, result.Policy.RuleID)
	}
	return success(start, result, text), nil
}

// userOrdersTool lists a customer's orders.
//
// Thread Safety: Safe for concurrent use.
type userOrdersTool struct {
	store *store.Store
}

// NewUserOrdersTool creates the get_user_orders tool.
func NewUserOrdersTool(s *store.Store) Tool {
	return &userOrdersTool{store: s}
}

func (t *userOrdersTool) Name() string           { return "get_user_orders" }
func (t *userOrdersTool) Category() ToolCategory { return CategoryOrder }

func (t *userOrdersTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "get_user_orders",
		Description: "List the customer's orders, newest first, optionally filtered by status.",
		Parameters: map[string]ParamDef{
			"user_id": {Type: ParamTypeInt, Description: "Customer id", Required: true},
			"status": {
				Type:        ParamTypeString,
				Description: "Optional status filter",
				Enum:        []any{"pending", "paid", "shipped", "delivered", "cancelled", "returned"},
			},
		},
		Category: CategoryOrder,
		Timeout:  5 * time.Second,
	}
}

func (t *userOrdersTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	userID, ok := parseUintParam(params["user_id"])
	if !ok {
		return failure(start, "user_id must be a positive integer"), nil
	}
	status, _ := parseStringParam(params["status"])

	orders, err := t.store.ListUserOrders(ctx, userID, status)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if len(orders) == 0 {
		sb.WriteString("No orders found.")
	} else {
		fmt.Fprintf(&sb, "%d order(s):\n", len(orders))
		for _, o := range orders {
			fmt.Fprintf(&sb, "  • %s — %s, payable %.2f\n",
				o.OrderNo, o.Status, o.FinalAmount+o.ShippingFee)
		}
	}
	return success(start, map[string]any{
		"count":  len(orders),
		"orders": orders,
	}, sb.String()), nil
}
