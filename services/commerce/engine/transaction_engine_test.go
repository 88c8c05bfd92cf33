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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/policy"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "commerce.db"))
	require.NoError(t, err)
	return New(s, NewSchemaValidator()), s
}

func seedUser(t *testing.T, s *store.Store, u *store.User) *store.User {
	t.Helper()
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, s *store.Store, p *store.Product) *store.Product {
	t.Helper()
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func TestCreateOrder_FirstOrderDiscount(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	user := seedUser(t, s, &store.User{Username: "alice", Tier: string(policy.TierRegular)})
	product := seedProduct(t, s, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory",
		Price: 100, Stock: 10, IsAvailable: true,
	})

	result, err := e.CreateOrder(ctx, CreateOrderInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: "88 Harbor Road, Seattle",
		ContactPhone:    "13800000001",
	})
	require.NoError(t, err)

	assert.Equal(t, policy.RuleFirstOrderDiscount, result.Inference.Discount.RuleID)
	assert.InDelta(t, 200.0, result.Order.TotalAmount, 1e-9)
	assert.InDelta(t, 4.0, result.Order.DiscountAmount, 1e-9)
	assert.InDelta(t, 196.0, result.Order.FinalAmount, 1e-9)
	// Net amount invariant holds on the persisted row.
	assert.InDelta(t, result.Order.TotalAmount-result.Order.DiscountAmount,
		result.Order.FinalAmount, 1e-9)
	assert.Equal(t, policy.RuleFlatShipping, result.Inference.Shipping.RuleID)
	assert.InDelta(t, 15.0, result.Order.ShippingFee, 1e-9)
	assert.InDelta(t, 211.0, result.PayableTotal, 1e-9)
	assert.True(t, result.Validation.Conforms)

	// Stock decremented and spend recorded.
	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Stock)
	owner, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 211.0, owner.TotalSpent, 1e-9)
}

func TestCreateOrder_SubCentUnitPricePassesStructuralCheck(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	user := seedUser(t, s, &store.User{Username: "alice", Tier: string(policy.TierRegular)})
	product := seedProduct(t, s, &store.Product{
		Name: "Denali USB Cable", Category: "accessory",
		Price: 25, Stock: 10, IsAvailable: true,
	})

	// An explicit three-decimal price: the cent-rounded subtotal must
	// still pass the engine's own pre-commit structural check.
	unitPrice := 19.999
	result, err := e.CreateOrder(ctx, CreateOrderInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 2, UnitPrice: &unitPrice}},
		ShippingAddress: "88 Harbor Road, Seattle",
		ContactPhone:    "13800000001",
	})
	require.NoError(t, err)

	require.True(t, result.Validation.Conforms, result.Validation.Report)
	require.Len(t, result.Order.Items, 1)
	assert.InDelta(t, 19.999, result.Order.Items[0].UnitPrice, 1e-9)
	assert.InDelta(t, 40.0, result.Order.Items[0].Subtotal, 1e-9)
	assert.InDelta(t, 40.0, result.Order.TotalAmount, 1e-9)
}

func TestCreateOrder_VolumeDiscountAndTierUpgrade(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	user := seedUser(t, s, &store.User{
		Username: "bob", Tier: string(policy.TierRegular), TotalSpent: 6200,
	})
	product := seedProduct(t, s, &store.Product{
		Name: "Tundra Pro Laptop", Category: "electronics",
		Price: 6000, Stock: 5, IsAvailable: true,
	})
	// An earlier order so the first-order rule stays out of the way.
	require.NoError(t, s.InsertOrder(ctx, &store.Order{
		OrderNo: "ORD202501010000000001", UserID: user.ID,
		Status: store.OrderStatusDelivered, TotalAmount: 1, FinalAmount: 1,
	}))

	result, err := e.CreateOrder(ctx, CreateOrderInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: "12 Glacier Bay, Nome",
		ContactPhone:    "13800000002",
	})
	require.NoError(t, err)

	// Volume beats the VIP rate (0.90 < 0.95); the VIP rule stays visible
	// as an alternative.
	assert.Equal(t, policy.TierVIP, result.Inference.Tier)
	assert.Equal(t, policy.RuleVolumeDiscount10k, result.Inference.Discount.RuleID)
	assert.InDelta(t, 0.90, result.Inference.Discount.Rate, 1e-9)
	assert.InDelta(t, 10800.0, result.Order.FinalAmount, 1e-9)
	assert.Equal(t, policy.RuleVIPShipping, result.Inference.Shipping.RuleID)
	assert.True(t, result.Inference.Shipping.Free)
	assert.True(t, result.Inference.TierUpgraded)

	owner, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, string(policy.TierVIP), owner.Tier)
}

func TestCreateOrder_InsufficientStockNoSideEffects(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	user := seedUser(t, s, &store.User{Username: "alice"})
	product := seedProduct(t, s, &store.Product{
		Name: "Aurora X1 Smartphone", Category: "phone",
		Price: 5999, Stock: 1, IsAvailable: true,
	})

	_, err := e.CreateOrder(ctx, CreateOrderInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: "88 Harbor Road, Seattle",
		ContactPhone:    "13800000001",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "insufficient stock")

	// No order row, no stock change, no spend.
	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
	count, err := s.CountUserOrders(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	owner, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, owner.TotalSpent)
}

func TestCreateOrder_InputValidation(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	user := seedUser(t, s, &store.User{Username: "alice"})
	product := seedProduct(t, s, &store.Product{
		Name: "Kodiak Fast Charger", Price: 129, Stock: 10, IsAvailable: true,
	})

	tests := []struct {
		name string
		in   CreateOrderInput
	}{
		{"no items", CreateOrderInput{UserID: user.ID}},
		{"unknown user", CreateOrderInput{
			UserID: 9999,
			Items:  []ItemInput{{ProductID: product.ID, Quantity: 1}},
		}},
		{"unknown product", CreateOrderInput{
			UserID: user.ID,
			Items:  []ItemInput{{ProductID: 9999, Quantity: 1}},
		}},
		{"zero quantity", CreateOrderInput{
			UserID: user.ID,
			Items:  []ItemInput{{ProductID: product.ID, Quantity: 0}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.ShippingAddress = "88 Harbor Road, Seattle"
			tt.in.ContactPhone = "13800000001"
			_, err := e.CreateOrder(ctx, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

// rejectingValidator simulates an external conformance check that refuses
// every document.
type rejectingValidator struct{}

func (rejectingValidator) ValidateOrder(ctx context.Context, doc *OrderDocument) (*ValidationReport, error) {
	return &ValidationReport{
		Conforms:   false,
		Violations: []string{"shape constraint violated"},
		Report:     "1 violation(s): shape constraint violated",
	}, nil
}

func TestCreateOrder_StructuralRejectionAbortsCommit(t *testing.T) {
	_, s := newTestEngine(t)
	e := New(s, rejectingValidator{})
	ctx := context.Background()
	user := seedUser(t, s, &store.User{Username: "alice"})
	product := seedProduct(t, s, &store.Product{
		Name: "Kodiak Fast Charger", Price: 129, Stock: 10, IsAvailable: true,
	})

	_, err := e.CreateOrder(ctx, CreateOrderInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: "88 Harbor Road, Seattle",
		ContactPhone:    "13800000001",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Report, "shape constraint violated")

	got, err := s.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)
	count, err := s.CountUserOrders(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func placeOrder(t *testing.T, e *Engine, s *store.Store) (*store.User, *store.Order) {
	t.Helper()
	ctx := context.Background()
	user := seedUser(t, s, &store.User{Username: "alice", Tier: string(policy.TierRegular)})
	product := seedProduct(t, s, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory",
		Price: 100, Stock: 10, IsAvailable: true,
	})
	result, err := e.CreateOrder(ctx, CreateOrderInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: "88 Harbor Road, Seattle",
		ContactPhone:    "13800000001",
	})
	require.NoError(t, err)
	return user, result.Order
}

func TestCancelOrder_Windows(t *testing.T) {
	ctx := context.Background()

	t.Run("pending inside 24h", func(t *testing.T) {
		e, s := newTestEngine(t)
		_, order := placeOrder(t, e, s)
		e.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		result, err := e.CancelOrder(ctx, OrderRef{OrderNo: order.OrderNo})
		require.NoError(t, err)
		assert.True(t, result.Cancelled)
		assert.Equal(t, policy.RulePending24hWindow, result.Policy.RuleID)
		assert.Equal(t, store.OrderStatusCancelled, result.Order.Status)

		persisted, err := s.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, store.OrderStatusCancelled, persisted.Status)
	})

	t.Run("pending past 24h", func(t *testing.T) {
		e, s := newTestEngine(t)
		_, order := placeOrder(t, e, s)
		e.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

		result, err := e.CancelOrder(ctx, OrderRef{ID: order.ID})
		require.NoError(t, err)
		assert.False(t, result.Cancelled)
		assert.Equal(t, policy.RulePending24hWindowExpired, result.Policy.RuleID)

		persisted, err := s.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, store.OrderStatusPending, persisted.Status)
	})

	t.Run("paid inside 12h", func(t *testing.T) {
		e, s := newTestEngine(t)
		_, order := placeOrder(t, e, s)
		_, err := e.ProcessPayment(ctx, OrderRef{ID: order.ID}, "card", 211)
		require.NoError(t, err)
		e.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		result, err := e.CancelOrder(ctx, OrderRef{ID: order.ID})
		require.NoError(t, err)
		assert.True(t, result.Cancelled)
		assert.Equal(t, policy.RulePaid12hWindow, result.Policy.RuleID)
	})

	t.Run("paid past 12h", func(t *testing.T) {
		e, s := newTestEngine(t)
		_, order := placeOrder(t, e, s)
		_, err := e.ProcessPayment(ctx, OrderRef{ID: order.ID}, "card", 211)
		require.NoError(t, err)
		e.now = func() time.Time { return time.Now().Add(13 * time.Hour) }

		result, err := e.CancelOrder(ctx, OrderRef{ID: order.ID})
		require.NoError(t, err)
		assert.False(t, result.Cancelled)
		assert.Equal(t, policy.RulePaid12hWindowExpired, result.Policy.RuleID)
	})

	t.Run("shipment blocks cancellation", func(t *testing.T) {
		e, s := newTestEngine(t)
		_, order := placeOrder(t, e, s)
		_, err := e.ProcessPayment(ctx, OrderRef{ID: order.ID}, "card", 211)
		require.NoError(t, err)
		_, err = e.ShipOrder(ctx, OrderRef{ID: order.ID}, "SF Express")
		require.NoError(t, err)

		result, err := e.CancelOrder(ctx, OrderRef{ID: order.ID})
		require.NoError(t, err)
		assert.False(t, result.Cancelled)
		assert.Equal(t, policy.RuleShipmentBlocksCancel, result.Policy.RuleID)
	})

	t.Run("unknown order", func(t *testing.T) {
		e, _ := newTestEngine(t)
		_, err := e.CancelOrder(ctx, OrderRef{ID: 9999})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestProcessPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("amount mismatch", func(t *testing.T) {
		e, s := newTestEngine(t)
		_, order := placeOrder(t, e, s)
		_, err := e.ProcessPayment(ctx, OrderRef{ID: order.ID}, "card", 100)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Error(), "payable total")
	})

	t.Run("settles pending order", func(t *testing.T) {
		e, s := newTestEngine(t)
		_, order := placeOrder(t, e, s)
		payment, err := e.ProcessPayment(ctx, OrderRef{ID: order.ID}, "card", 211)
		require.NoError(t, err)
		assert.Equal(t, "success", payment.Status)

		persisted, err := s.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, store.OrderStatusPaid, persisted.Status)
		assert.Equal(t, store.PaymentStatusPaid, persisted.PaymentStatus)
		require.NotNil(t, persisted.PaidAt)

		// Double payment is refused.
		_, err = e.ProcessPayment(ctx, OrderRef{ID: order.ID}, "card", 211)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestShipOrder(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)
	_, order := placeOrder(t, e, s)

	// Cannot ship while pending.
	_, err := e.ShipOrder(ctx, OrderRef{ID: order.ID}, "SF Express")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = e.ProcessPayment(ctx, OrderRef{ID: order.ID}, "card", 211)
	require.NoError(t, err)
	shipment, err := e.ShipOrder(ctx, OrderRef{ID: order.ID}, "SF Express")
	require.NoError(t, err)
	assert.Equal(t, store.ShipmentStatusInTransit, shipment.Status)
	assert.Equal(t, 3, shipment.EstimatedDays)

	persisted, err := s.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, store.OrderStatusShipped, persisted.Status)
	require.NotNil(t, persisted.ShippedAt)
}

func deliverOrder(t *testing.T, e *Engine, s *store.Store, orderID uint) {
	t.Helper()
	ctx := context.Background()
	_, err := e.ProcessPayment(ctx, OrderRef{ID: orderID}, "card", 211)
	require.NoError(t, err)
	_, err = e.ShipOrder(ctx, OrderRef{ID: orderID}, "SF Express")
	require.NoError(t, err)
	require.NoError(t, s.UpdateOrderStatus(ctx, orderID, store.OrderStatusDelivered))
}

func TestProcessReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("standard return approved", func(t *testing.T) {
		e, s := newTestEngine(t)
		user, order := placeOrder(t, e, s)
		deliverOrder(t, e, s, order.ID)

		outcome, err := e.ProcessReturn(ctx, ReturnInput{
			OrderRef:        OrderRef{ID: order.ID},
			UserID:          user.ID,
			Type:            "return",
			Reason:          "no longer needed",
			ProductCategory: policy.CategoryAccessory,
			PackagingIntact: true,
		})
		require.NoError(t, err)
		assert.True(t, outcome.Approved)
		assert.NotEmpty(t, outcome.ReturnNo)
		assert.Equal(t, policy.RuleStandardReturn, outcome.Policy.RuleID)

		persisted, err := s.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, store.OrderStatusReturned, persisted.Status)
	})

	t.Run("service item refused", func(t *testing.T) {
		e, s := newTestEngine(t)
		user, order := placeOrder(t, e, s)
		deliverOrder(t, e, s, order.ID)

		outcome, err := e.ProcessReturn(ctx, ReturnInput{
			OrderRef:        OrderRef{ID: order.ID},
			UserID:          user.ID,
			Type:            "return",
			ProductCategory: policy.CategoryService,
		})
		require.NoError(t, err)
		assert.False(t, outcome.Approved)
		assert.Equal(t, policy.RuleServiceNoReturn, outcome.Policy.RuleID)
	})

	t.Run("window closed", func(t *testing.T) {
		e, s := newTestEngine(t)
		user, order := placeOrder(t, e, s)
		deliverOrder(t, e, s, order.ID)
		e.now = func() time.Time { return time.Now().Add(10 * 24 * time.Hour) }

		outcome, err := e.ProcessReturn(ctx, ReturnInput{
			OrderRef:        OrderRef{ID: order.ID},
			UserID:          user.ID,
			Type:            "return",
			ProductCategory: policy.CategoryAccessory,
			PackagingIntact: true,
		})
		require.NoError(t, err)
		assert.False(t, outcome.Approved)
		assert.Contains(t, outcome.Policy.Justification, "window has closed")
	})

	t.Run("wrong owner", func(t *testing.T) {
		e, s := newTestEngine(t)
		_, order := placeOrder(t, e, s)
		deliverOrder(t, e, s, order.ID)

		_, err := e.ProcessReturn(ctx, ReturnInput{
			OrderRef:        OrderRef{ID: order.ID},
			UserID:          9999,
			Type:            "return",
			ProductCategory: policy.CategoryAccessory,
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestGetOrderDetail(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)
	user, order := placeOrder(t, e, s)

	detail, err := e.GetOrderDetail(ctx, OrderRef{OrderNo: order.OrderNo})
	require.NoError(t, err)
	assert.Equal(t, order.ID, detail.Order.ID)
	assert.Equal(t, user.ID, detail.User.ID)
	assert.Nil(t, detail.Shipment)
	assert.Nil(t, detail.Payment)

	_, err = e.ProcessPayment(ctx, OrderRef{ID: order.ID}, "card", 211)
	require.NoError(t, err)
	_, err = e.ShipOrder(ctx, OrderRef{ID: order.ID}, "SF Express")
	require.NoError(t, err)

	detail, err = e.GetOrderDetail(ctx, OrderRef{ID: order.ID})
	require.NoError(t, err)
	require.NotNil(t, detail.Shipment)
	require.NotNil(t, detail.Payment)
	assert.InDelta(t, 211.0, detail.Payment.Amount, 1e-9)
}
