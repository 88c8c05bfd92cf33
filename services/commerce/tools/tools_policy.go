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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/engine"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/policy"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/store"
)

// =============================================================================
// Policy Tools
// =============================================================================

// explainPolicyTool previews the discount and shipping rules that would
// govern an order of a given amount, without creating anything.
//
// Thread Safety: Safe for concurrent use.
type explainPolicyTool struct {
	store *store.Store
}

// NewExplainPolicyTool creates the policy_explain_discount tool.
func NewExplainPolicyTool(s *store.Store) Tool {
	return &explainPolicyTool{store: s}
}

func (t *explainPolicyTool) Name() string           { return "policy_explain_discount" }
func (t *explainPolicyTool) Category() ToolCategory { return CategoryPolicy }

func (t *explainPolicyTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "policy_explain_discount",
		Description: "Preview the discount and shipping rules that would apply to an " +
			"order of a given amount for this customer. Read-only; use it to answer " +
			"\"how much would I pay\" questions before creating the order.",
		Parameters: map[string]ParamDef{
			"user_id":      {Type: ParamTypeInt, Description: "Customer id", Required: true},
			"order_amount": {Type: ParamTypeFloat, Description: "Prospective gross order amount", Required: true},
		},
		Category: CategoryPolicy,
		Timeout:  5 * time.Second,
	}
}

func (t *explainPolicyTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	userID, ok := parseUintParam(params["user_id"])
	if !ok {
		return failure(start, "user_id must be a positive integer"), nil
	}
	amount, ok := parseFloatParam(params["order_amount"])
	if !ok || amount < 0 {
		return failure(start, "order_amount must be a non-negative number"), nil
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

	tier := policy.InferTier(user.TotalSpent)
	discount, err := policy.InferDiscount(tier, amount, orderCount == 0)
	if err != nil {
		var inferr *policy.InferenceError
		if errors.As(err, &inferr) {
			return failure(start, "%v", inferr), nil
		}
		return nil, err
	}
	net := amount * discount.Rate
	shipping, err := policy.InferShipping(tier, net, user.IsRemoteArea)
	if err != nil {
		var inferr *policy.InferenceError
		if errors.As(err, &inferr) {
			return failure(start, "%v", inferr), nil
		}
		return nil, err
	}

	text := fmt.Sprintf(
		"As a %s member: %s (%s), paying %.2f after discount. Shipping: %s (%s), fee %.2f; payable %.2f.",
		tier, discount.Justification, discount.RuleID, net,
		shipping.Justification, shipping.RuleID, shipping.Cost, net+shipping.Cost)
	return success(start, map[string]any{
		"tier":         tier,
		"order_amount": amount,
		"discount":     discount,
		"net_amount":   net,
		"shipping":     shipping,
		"payable":      net + shipping.Cost,
	}, text), nil
}

// validateOrderTool runs the structural conformance check on an order
// document.
//
// Description:
//
//	Accepts either an existing order reference, whose stored state is
//	projected into a document, or an inline document object supplied by
//	the model. The report is always a successful observation: a
//	non-conforming document is a finding, not a fault.
//
// Thread Safety: Safe for concurrent use.
type validateOrderTool struct {
	engine    *engine.Engine
	validator engine.StructuralValidator
}

// NewValidateOrderTool creates the policy_validate_order tool. This is
// the gate-clearing check required before checkout-class work completes.
func NewValidateOrderTool(e *engine.Engine, v engine.StructuralValidator) Tool {
	return &validateOrderTool{engine: e, validator: v}
}

func (t *validateOrderTool) Name() string           { return "policy_validate_order" }
func (t *validateOrderTool) Category() ToolCategory { return CategoryPolicy }

func (t *validateOrderTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "policy_validate_order",
		Description: "Validate an order against the structural schema and monetary " +
			"invariants (net = gross - discount, subtotal = quantity * unit price). " +
			"Pass order_id to check a stored order, or document to check an inline " +
			"order document. Must be run after any order-creating or payment step.",
		Parameters: map[string]ParamDef{
			"order_id": {Type: ParamTypeString, Description: "Order id or order number of a stored order"},
			"document": {Type: ParamTypeObject, Description: "Inline order document to validate instead of a stored order"},
		},
		Category:   CategoryPolicy,
		Validation: true,
		Timeout:    10 * time.Second,
	}
}

func (t *validateOrderTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()

	var doc *engine.OrderDocument
	if rawDoc, present := params["document"]; present && rawDoc != nil {
		decoded, err := decodeOrderDocument(rawDoc)
		if err != nil {
			return failure(start, "%v", err), nil
		}
		doc = decoded
	} else if rawOrder, present := params["order_id"]; present && rawOrder != nil {
		ref, err := engine.ParseOrderRef(rawOrder)
		if err != nil {
			return failure(start, "%v", err), nil
		}
		order, err := t.engine.ResolveOrder(ctx, ref)
		if err != nil {
			var verr *engine.ValidationError
			if errors.As(err, &verr) {
				return failure(start, "%s", verr.Msg), nil
			}
			return nil, err
		}
		doc = documentFromStoredOrder(order)
	} else {
		return failure(start, "provide order_id or document"), nil
	}

	report, err := t.validator.ValidateOrder(ctx, doc)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Validation passed: %s", report.Report)
	if !report.Conforms {
		text = fmt.Sprintf("Validation failed: %s", report.Report)
	}
	return success(start, report, text), nil
}

// decodeOrderDocument converts the model-supplied object into a typed
// document via a JSON round trip, so the struct tags drive coercion.
func decodeOrderDocument(raw any) (*engine.OrderDocument, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document must be an object")
	}
	buf, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("document is not encodable: %w", err)
	}
	var doc engine.OrderDocument
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("document does not match the order schema: %w", err)
	}
	return &doc, nil
}

// documentFromStoredOrder projects a persisted order into the document
// shape the structural check expects.
func documentFromStoredOrder(order *store.Order) *engine.OrderDocument {
	doc := &engine.OrderDocument{
		OrderNo:         order.OrderNo,
		UserID:          order.UserID,
		Status:          order.Status,
		GrossAmount:     order.TotalAmount,
		DiscountAmount:  order.DiscountAmount,
		NetAmount:       order.FinalAmount,
		ShippingFee:     order.ShippingFee,
		ShippingAddress: order.ShippingAddress,
		ContactPhone:    order.ContactPhone,
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, engine.OrderItemDocument{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	return doc
}
