// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine contains the order transaction engine: the single place
// that turns a create-order or cancel-order request into persisted state.
// It composes the policy layer, the structural validator, and the store,
// and guarantees that a failed validation leaves no side effects behind.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/policy"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/store"
)

var engineTracer = otel.Tracer("commerce.engine")

// Engine orchestrates order creation, cancellation, and the follow-on
// status transitions (payment, shipment, return).
//
// Thread Safety: Safe for concurrent use; all state lives in the store.
type Engine struct {
	store     *store.Store
	validator StructuralValidator
	logger    *slog.Logger

	// now is injectable for tests that need deterministic numbers and
	// cancellation windows.
	now func() time.Time
}

// New constructs an Engine over a store and a structural validator.
func New(s *store.Store, v StructuralValidator) *Engine {
	return &Engine{
		store:     s,
		validator: v,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// ItemInput is one requested order line. UnitPrice overrides the catalog
// price when set; it must be positive.
type ItemInput struct {
	ProductID uint     `json:"product_id"`
	Quantity  int      `json:"quantity"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
}

// CreateOrderInput is the full create-order request.
type CreateOrderInput struct {
	UserID          uint        `json:"user_id"`
	Items           []ItemInput `json:"items"`
	ShippingAddress string      `json:"shipping_address"`
	ContactPhone    string      `json:"contact_phone"`
}

// Inference is the policy breakdown returned alongside a created order so
// the caller can explain the pricing to the customer.
type Inference struct {
	Tier         policy.Tier            `json:"tier"`
	TierUpgraded bool                   `json:"tier_upgraded"`
	Discount     *policy.DiscountResult `json:"discount"`
	Shipping     *policy.ShippingResult `json:"shipping"`
}

// CreateOrderResult is the outcome of a successful order commit.
type CreateOrderResult struct {
	Order        *store.Order      `json:"order"`
	Inference    Inference         `json:"inference"`
	PayableTotal float64           `json:"payable_total"`
	Validation   *ValidationReport `json:"validation"`
}

// CreateOrder runs the full order-creation pipeline.
//
// Description:
//
//	Resolves every item against the catalog (price and stock), composes
//	the discount and shipping policies on the user's facts, submits the
//	prospective order to the structural check, and only then commits.
//	The commit is one transaction covering the order insert, the stock
//	decrements, the spend update, and any tier upgrade, so a failure at
//	any write rolls everything back.
//
// Outputs:
//   - *CreateOrderResult: Order plus policy breakdown on success.
//   - error: *ValidationError for business violations (no side effects),
//     *policy.InferenceError for malformed policy input, or a wrapped
//     store error.
func (e *Engine) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.CreateOrder",
		trace.WithAttributes(
			attribute.Int("user_id", int(in.UserID)),
			attribute.Int("items", len(in.Items)),
		),
	)
	defer span.End()

	if len(in.Items) == 0 {
		return nil, validationErrorf("order must contain at least one item")
	}

	user, err := e.store.GetUser(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, validationErrorf("unknown user %d", in.UserID)
		}
		return nil, err
	}

	// Resolve every line before touching anything: price resolution and
	// stock checks fail fast with no partial commit.
	var (
		gross      float64
		orderItems = make([]store.OrderItem, 0, len(in.Items))
	)
	for i, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, validationErrorf("items[%d]: quantity must be positive, got %d", i, item.Quantity)
		}
		product, err := e.store.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, validationErrorf("items[%d]: unknown product %d", i, item.ProductID)
			}
			return nil, err
		}
		if !product.IsAvailable || product.Stock < item.Quantity {
			return nil, validationErrorf("items[%d]: insufficient stock for %q (have %d, want %d)",
				i, product.Name, product.Stock, item.Quantity)
		}

		// Explicit price wins, else catalog price; neither may be zero.
		unitPrice := product.Price
		if item.UnitPrice != nil {
			unitPrice = *item.UnitPrice
		}
		if unitPrice <= 0 {
			return nil, validationErrorf("items[%d]: unresolved unit price for product %d", i, item.ProductID)
		}

		subtotal := round2(float64(item.Quantity) * unitPrice)
		gross += subtotal
		orderItems = append(orderItems, store.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
			Subtotal:  subtotal,
		})
	}
	gross = round2(gross)

	orderCount, err := e.store.CountUserOrders(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	isFirstOrder := orderCount == 0

	inferredTier := policy.InferTier(user.TotalSpent)
	discount, err := policy.InferDiscount(inferredTier, gross, isFirstOrder)
	if err != nil {
		return nil, err
	}
	discountAmount := round2(gross * (1 - discount.Rate))
	net := round2(gross - discountAmount)

	// Shipping is computed on the post-discount amount.
	shipping, err := policy.InferShipping(inferredTier, net, user.IsRemoteArea)
	if err != nil {
		return nil, err
	}
	payable := round2(net + shipping.Cost)

	now := e.now()
	order := &store.Order{
		OrderNo:         FormatOrderNo(now, in.UserID),
		UserID:          in.UserID,
		Status:          store.OrderStatusPending,
		PaymentStatus:   store.PaymentStatusUnpaid,
		TotalAmount:     gross,
		DiscountAmount:  discountAmount,
		FinalAmount:     net,
		ShippingFee:     shipping.Cost,
		ShippingAddress: in.ShippingAddress,
		ContactPhone:    in.ContactPhone,
		Items:           orderItems,
	}

	// Structural check before any write. A non-conforming document aborts
	// with no stock change, no order row, and no spend update.
	doc := documentFromOrder(order)
	report, err := e.validator.ValidateOrder(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("engine: structural check failed to run: %w", err)
	}
	if !report.Conforms {
		span.SetAttributes(attribute.Bool("validation_failed", true))
		return nil, &ValidationError{
			Msg:    "order document failed structural validation: " + report.Report,
			Report: report.Report,
		}
	}

	tierUpgraded := policy.HigherTier(inferredTier, policy.Tier(user.Tier))
	err = e.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := tx.UpdateStock(ctx, item.ProductID, -item.Quantity); err != nil {
				return err
			}
		}
		if err := tx.AddUserSpend(ctx, in.UserID, payable); err != nil {
			return err
		}
		if tierUpgraded {
			if err := tx.UpdateUserTier(ctx, in.UserID, string(inferredTier)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			// Raced with a concurrent order between the check and the
			// decrement; the transaction rolled back.
			return nil, validationErrorf("insufficient stock detected at commit time")
		}
		return nil, err
	}

	e.logger.Info("order created",
		slog.String("order_no", order.OrderNo),
		slog.Uint64("user_id", uint64(in.UserID)),
		slog.Float64("payable", payable),
		slog.String("discount_rule", discount.RuleID),
		slog.String("shipping_rule", shipping.RuleID),
		slog.Bool("tier_upgraded", tierUpgraded),
	)
	span.SetAttributes(attribute.String("order_no", order.OrderNo))

	return &CreateOrderResult{
		Order: order,
		Inference: Inference{
			Tier:         inferredTier,
			TierUpgraded: tierUpgraded,
			Discount:     discount,
			Shipping:     shipping,
		},
		PayableTotal: payable,
		Validation:   report,
	}, nil
}

// CancelOrderResult is the outcome of a cancellation attempt. Policy is
// populated for denials too so the caller can explain the refusal.
type CancelOrderResult struct {
	Order     *store.Order               `json:"order"`
	Cancelled bool                       `json:"cancelled"`
	Policy    *policy.CancellationResult `json:"policy"`
}

// CancelOrder runs the cancellation state machine against an order and
// mutates its status only when the machine allows it.
func (e *Engine) CancelOrder(ctx context.Context, ref OrderRef) (*CancelOrderResult, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.CancelOrder",
		trace.WithAttributes(attribute.String("order_ref", ref.String())),
	)
	defer span.End()

	order, err := e.ResolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}

	hasShipment, err := e.store.HasShipment(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	hours := e.now().Sub(order.CreatedAt).Hours()

	decision := policy.InferCancellation(order.Status, hours, hasShipment)
	span.SetAttributes(
		attribute.Bool("allowed", decision.Allowed),
		attribute.String("rule", decision.RuleID),
	)

	if !decision.Allowed {
		e.logger.Info("cancellation denied",
			slog.String("order_no", order.OrderNo),
			slog.String("rule", decision.RuleID),
		)
		return &CancelOrderResult{Order: order, Cancelled: false, Policy: decision}, nil
	}

	if err := e.store.UpdateOrderStatus(ctx, order.ID, store.OrderStatusCancelled); err != nil {
		return nil, err
	}
	order.Status = store.OrderStatusCancelled

	e.logger.Info("order cancelled",
		slog.String("order_no", order.OrderNo),
		slog.String("rule", decision.RuleID),
	)
	return &CancelOrderResult{Order: order, Cancelled: true, Policy: decision}, nil
}

// ResolveOrder fetches an order by either side of an OrderRef.
func (e *Engine) ResolveOrder(ctx context.Context, ref OrderRef) (*store.Order, error) {
	var (
		order *store.Order
		err   error
	)
	if ref.OrderNo != "" {
		order, err = e.store.GetOrderByNo(ctx, ref.OrderNo)
	} else {
		order, err = e.store.GetOrderByID(ctx, ref.ID)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, validationErrorf("unknown order %s", ref.String())
		}
		return nil, err
	}
	return order, nil
}

// documentFromOrder builds the structural representation of a prospective
// order.
func documentFromOrder(o *store.Order) *OrderDocument {
	items := make([]OrderItemDocument, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDocument{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	return &OrderDocument{
		OrderNo:         o.OrderNo,
		UserID:          o.UserID,
		Status:          o.Status,
		GrossAmount:     o.TotalAmount,
		DiscountAmount:  o.DiscountAmount,
		NetAmount:       o.FinalAmount,
		ShippingFee:     o.ShippingFee,
		ShippingAddress: o.ShippingAddress,
		ContactPhone:    o.ContactPhone,
		Items:           items,
	}
}

// round2 rounds to two decimal places for monetary arithmetic.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
