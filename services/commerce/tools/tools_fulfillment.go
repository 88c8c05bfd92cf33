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
	"github.com/AleutianAI/AleutianCommerce/services/commerce/store"
)

// =============================================================================
// Payment & Shipment Tools
// =============================================================================

// processPaymentTool settles a pending order.
//
// Thread Safety: Safe for concurrent use.
type processPaymentTool struct {
	engine *engine.Engine
}

// NewProcessPaymentTool creates the process_payment tool.
func NewProcessPaymentTool(e *engine.Engine) Tool {
	return &processPaymentTool{engine: e}
}

func (t *processPaymentTool) Name() string           { return "process_payment" }
func (t *processPaymentTool) Category() ToolCategory { return CategoryFulfillment }

func (t *processPaymentTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "process_payment",
		Description: "Pay a pending order. When amount is omitted the payable total " +
			"(net amount plus shipping fee) is charged; an explicit amount must match it.",
		Parameters: map[string]ParamDef{
			"order_id": {Type: ParamTypeString, Description: "Order id or order number", Required: true},
			"method": {
				Type:        ParamTypeString,
				Description: "Payment method",
				Default:     "card",
				Enum:        []any{"card", "wallet", "transfer"},
			},
			"amount": {Type: ParamTypeFloat, Description: "Amount to charge; defaults to the payable total"},
		},
		Category:      CategoryFulfillment,
		SideEffects:   true,
		CheckoutClass: true,
		Timeout:       10 * time.Second,
	}
}

func (t *processPaymentTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()
	ref, err := engine.ParseOrderRef(params["order_id"])
	if err != nil {
		return failure(start, "%v", err), nil
	}
	method, _ := parseStringParam(params["method"])
	if method == "" {
		method = "card"
	}

	amount, hasAmount := parseFloatParam(params["amount"])
	if !hasAmount {
		order, err := t.engine.ResolveOrder(ctx, ref)
		if err != nil {
			var verr *engine.ValidationError
			if errors.As(err, &verr) {
				return failure(start, "%s", verr.Msg), nil
			}
			return nil, err
		}
		amount = order.FinalAmount + order.ShippingFee
	}

	payment, err := t.engine.ProcessPayment(ctx, ref, method, amount)
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			return failure(start, "%s", verr.Msg), nil
		}
		return nil, err
	}

	text := fmt.Sprintf("Payment %s of %.2f accepted via %s.",
		payment.PaymentNo, payment.Amount, payment.Method)
	return success(start, payment, text), nil
}

// trackShipmentTool looks a shipment up by tracking number or order.
//
// Thread Safety: Safe for concurrent use.
type trackShipmentTool struct {
	store  *store.Store
	engine *engine.Engine
}

// NewTrackShipmentTool creates the track_shipment tool.
func NewTrackShipmentTool(s *store.Store, e *engine.Engine) Tool {
	return &trackShipmentTool{store: s, engine: e}
}

func (t *trackShipmentTool) Name() string           { return "track_shipment" }
func (t *trackShipmentTool) Category() ToolCategory { return CategoryFulfillment }

func (t *trackShipmentTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "track_shipment",
		Description: "Track a shipment by tracking number (SF...) or by the order " +
			"it belongs to. Returns carrier, status, and the delivery estimate.",
		Parameters: map[string]ParamDef{
			"tracking_no": {Type: ParamTypeString, Description: "Tracking number"},
			"order_id":    {Type: ParamTypeString, Description: "Order id or order number, used when tracking_no is omitted"},
		},
		Category: CategoryFulfillment,
		Timeout:  5 * time.Second,
	}
}

func (t *trackShipmentTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	start := time.Now()

	var (
		shipment *store.Shipment
		err      error
	)
	if trackingNo, ok := parseStringParam(params["tracking_no"]); ok && trackingNo != "" {
		shipment, err = t.store.GetShipmentByTrackingNo(ctx, trackingNo)
		if errors.Is(err, store.ErrNotFound) {
			return failure(start, "no shipment with tracking number %s", trackingNo), nil
		}
	} else if rawOrder, present := params["order_id"]; present {
		ref, refErr := engine.ParseOrderRef(rawOrder)
		if refErr != nil {
			return failure(start, "%v", refErr), nil
		}
		order, resolveErr := t.engine.ResolveOrder(ctx, ref)
		if resolveErr != nil {
			var verr *engine.ValidationError
			if errors.As(resolveErr, &verr) {
				return failure(start, "%s", verr.Msg), nil
			}
			return nil, resolveErr
		}
		shipment, err = t.store.GetShipmentByOrder(ctx, order.ID)
		if errors.Is(err, store.ErrNotFound) {
			return failure(start, "order %s has not shipped yet", order.OrderNo), nil
		}
	} else {
		return failure(start, "provide tracking_no or order_id"), nil
	}
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Shipment %s via %s is %s; estimated %d day(s).",
		shipment.TrackingNo, shipment.Carrier, shipment.Status, shipment.EstimatedDays)
	if shipment.DeliveredAt != nil {
		text = fmt.Sprintf("Shipment %s via %s was delivered on %s.",
			shipment.TrackingNo, shipment.Carrier, shipment.DeliveredAt.Format("2006-01-02"))
	}
	return success(start, shipment, text), nil
}
