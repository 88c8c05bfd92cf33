// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/policy"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/store"
)

// =============================================================================
// Payment, Shipment, Return, Detail
// =============================================================================

// ProcessPayment settles a pending order.
//
// Description:
//
//	Only pending orders accept payment, and the paid amount must match
//	the payable total (net amount plus shipping fee). The payment record
//	and the status transition commit together.
func (e *Engine) ProcessPayment(ctx context.Context, ref OrderRef, method string, amount float64) (*store.Payment, error) {
	order, err := e.ResolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	if order.Status != store.OrderStatusPending {
		return nil, validationErrorf("order %s is %s; only pending orders accept payment",
			order.OrderNo, order.Status)
	}
	payable := round2(order.FinalAmount + order.ShippingFee)
	if math.Abs(amount-payable) > amountEpsilon {
		return nil, validationErrorf("payment amount %.2f does not match payable total %.2f",
			amount, payable)
	}

	payment := &store.Payment{
		PaymentNo: FormatPaymentNo(e.now()),
		OrderID:   order.ID,
		Method:    method,
		Amount:    amount,
		Status:    "success",
	}
	err = e.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}
		return tx.UpdateOrderStatus(ctx, order.ID, store.OrderStatusPaid)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("payment processed",
		slog.String("order_no", order.OrderNo),
		slog.String("payment_no", payment.PaymentNo),
		slog.Float64("amount", amount),
	)
	return payment, nil
}

// ShipOrder dispatches a paid order, creating its shipment record and
// transitioning the status. The delivery estimate is re-inferred from the
// owner's tier so SVIP orders show next-day delivery.
func (e *Engine) ShipOrder(ctx context.Context, ref OrderRef, carrier string) (*store.Shipment, error) {
	order, err := e.ResolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	if order.Status != store.OrderStatusPaid {
		return nil, validationErrorf("order %s is %s; only paid orders can ship",
			order.OrderNo, order.Status)
	}
	user, err := e.store.GetUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}
	shippingEstimate, err := policy.InferShipping(policy.Tier(user.Tier), order.FinalAmount, user.IsRemoteArea)
	if err != nil {
		return nil, err
	}

	now := e.now()
	shipment := &store.Shipment{
		TrackingNo:    FormatTrackingNo(now),
		OrderID:       order.ID,
		Carrier:       carrier,
		Status:        store.ShipmentStatusInTransit,
		EstimatedDays: shippingEstimate.EstimatedDays,
		ShippedAt:     now,
	}
	err = e.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateShipment(ctx, shipment); err != nil {
			return err
		}
		return tx.UpdateOrderStatus(ctx, order.ID, store.OrderStatusShipped)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("order shipped",
		slog.String("order_no", order.OrderNo),
		slog.String("tracking_no", shipment.TrackingNo),
	)
	return shipment, nil
}

// ReturnInput is a return or exchange request.
type ReturnInput struct {
	OrderRef        OrderRef
	UserID          uint
	Type            string
	Reason          string
	ProductCategory string
	IsActivated     bool
	PackagingIntact bool
}

// ReturnOutcome is the result of a return request. Policy is populated
// for refusals too.
type ReturnOutcome struct {
	Approved bool                 `json:"approved"`
	ReturnNo string               `json:"return_no,omitempty"`
	Policy   *policy.ReturnResult `json:"policy"`
}

// ProcessReturn applies the return-eligibility policy and, when the item
// qualifies, opens the return request and transitions the order.
func (e *Engine) ProcessReturn(ctx context.Context, in ReturnInput) (*ReturnOutcome, error) {
	order, err := e.ResolveOrder(ctx, in.OrderRef)
	if err != nil {
		return nil, err
	}
	if order.UserID != in.UserID {
		return nil, validationErrorf("order %s does not belong to user %d", order.OrderNo, in.UserID)
	}
	if order.Status != store.OrderStatusDelivered {
		return nil, validationErrorf("order %s is %s; only delivered orders can be returned",
			order.OrderNo, order.Status)
	}

	user, err := e.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	eligibility := policy.InferReturnEligibility(
		policy.Tier(user.Tier), in.ProductCategory, in.IsActivated, in.PackagingIntact)

	if !eligibility.Returnable {
		return &ReturnOutcome{Approved: false, Policy: eligibility}, nil
	}
	if order.DeliveredAt != nil {
		daysSinceDelivery := e.now().Sub(*order.DeliveredAt).Hours() / 24
		if daysSinceDelivery > float64(eligibility.WindowDays) {
			denied := *eligibility
			denied.Returnable = false
			denied.Justification = "the return window has closed"
			return &ReturnOutcome{Approved: false, Policy: &denied}, nil
		}
	}

	request := &store.ReturnRequest{
		ReturnNo: FormatReturnNo(e.now(), order.ID),
		OrderID:  order.ID,
		UserID:   in.UserID,
		Type:     in.Type,
		Reason:   in.Reason,
		Status:   "approved",
	}
	err = e.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateReturnRequest(ctx, request); err != nil {
			return err
		}
		return tx.UpdateOrderStatus(ctx, order.ID, store.OrderStatusReturned)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("return approved",
		slog.String("order_no", order.OrderNo),
		slog.String("return_no", request.ReturnNo),
	)
	return &ReturnOutcome{Approved: true, ReturnNo: request.ReturnNo, Policy: eligibility}, nil
}

// OrderDetail is the composite view returned by detail lookups. Shipment
// and Payment are nil when no record exists yet.
type OrderDetail struct {
	Order    *store.Order    `json:"order"`
	User     *store.User     `json:"user"`
	Shipment *store.Shipment `json:"shipment,omitempty"`
	Payment  *store.Payment  `json:"payment,omitempty"`
}

// GetOrderDetail resolves an order by id or number and assembles the
// detail view.
func (e *Engine) GetOrderDetail(ctx context.Context, ref OrderRef) (*OrderDetail, error) {
	order, err := e.ResolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	user, err := e.store.GetUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}

	detail := &OrderDetail{Order: order, User: user}
	if shipment, err := e.store.GetShipmentByOrder(ctx, order.ID); err == nil {
		detail.Shipment = shipment
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if payment, err := e.store.GetPaymentByOrder(ctx, order.ID); err == nil {
		detail.Payment = payment
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return detail, nil
}
