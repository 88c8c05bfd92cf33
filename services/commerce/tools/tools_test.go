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
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/engine"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/policy"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/store"
)

// toolEnv bundles the storage and engine a tool under test runs against.
type toolEnv struct {
	store  *store.Store
	engine *engine.Engine
}

func newToolEnv(t *testing.T) *toolEnv {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "commerce.db"))
	require.NoError(t, err)
	return &toolEnv{store: s, engine: engine.New(s, engine.NewSchemaValidator())}
}

func (env *toolEnv) seedUser(t *testing.T, u *store.User) *store.User {
	t.Helper()
	require.NoError(t, env.store.CreateUser(context.Background(), u))
	return u
}

func (env *toolEnv) seedProduct(t *testing.T, p *store.Product) *store.Product {
	t.Helper()
	require.NoError(t, env.store.CreateProduct(context.Background(), p))
	return p
}

// placeOrder creates a pending order through the engine and returns it.
func (env *toolEnv) placeOrder(t *testing.T, userID, productID uint, qty int) *engine.CreateOrderResult {
	t.Helper()
	result, err := env.engine.CreateOrder(context.Background(), engine.CreateOrderInput{
		UserID:          userID,
		Items:           []engine.ItemInput{{ProductID: productID, Quantity: qty}},
		ShippingAddress: "88 Harbor Road, Seattle",
		ContactPhone:    "13800000001",
	})
	require.NoError(t, err)
	return result
}

func TestSearchProductsTool(t *testing.T) {
	env := newToolEnv(t)
	env.seedProduct(t, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory", Brand: "Kodiak",
		Price: 100, Stock: 10, IsAvailable: true,
	})
	env.seedProduct(t, &store.Product{
		Name: "Tundra Pro Laptop", Category: "electronics", Brand: "Tundra",
		Price: 6000, Stock: 0, IsAvailable: false,
	})
	tool := NewSearchProductsTool(env.store)

	result, err := tool.Execute(context.Background(), map[string]any{"keyword": "earbuds"})
	require.NoError(t, err)
	require.True(t, result.Success)
	output := result.Output.(map[string]any)
	assert.Equal(t, 1, output["count"])
	assert.Contains(t, result.OutputText, "Kodiak Wireless Earbuds")

	// Unavailable products never surface.
	result, err = tool.Execute(context.Background(), map[string]any{"keyword": "laptop"})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Contains(t, result.OutputText, "No products matched")

	// At least one criterion is required.
	result, err = tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "at least one of")
}

func TestCheckStockTool(t *testing.T) {
	env := newToolEnv(t)
	product := env.seedProduct(t, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory",
		Price: 100, Stock: 3, IsAvailable: true,
	})
	tool := NewCheckStockTool(env.store)

	result, err := tool.Execute(context.Background(), map[string]any{
		"product_id": float64(product.ID), "quantity": float64(5),
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	output := result.Output.(map[string]any)
	assert.Equal(t, false, output["sufficient"])
	assert.Equal(t, 3, output["stock"])

	result, err = tool.Execute(context.Background(), map[string]any{
		"product_id": float64(9999), "quantity": float64(1),
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "does not exist")
}

func TestCartToolsFlow(t *testing.T) {
	env := newToolEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, &store.User{Username: "alice", Tier: string(policy.TierRegular)})
	product := env.seedProduct(t, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory",
		Price: 100, Stock: 10, IsAvailable: true,
	})
	add := NewAddToCartTool(env.store)
	view := NewViewCartTool(env.store)
	remove := NewRemoveFromCartTool(env.store)

	result, err := add.Execute(ctx, map[string]any{
		"user_id": float64(user.ID), "product_id": float64(product.ID), "quantity": float64(2),
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	result, err = view.Execute(ctx, map[string]any{"user_id": float64(user.ID)})
	require.NoError(t, err)
	require.True(t, result.Success)
	output := result.Output.(map[string]any)
	assert.InDelta(t, 200.0, output["total"].(float64), 1e-9)

	result, err = remove.Execute(ctx, map[string]any{
		"user_id": float64(user.ID), "product_id": float64(product.ID),
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	// Removing again reports the line as absent.
	result, err = remove.Execute(ctx, map[string]any{
		"user_id": float64(user.ID), "product_id": float64(product.ID),
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not in the cart")
}

func TestCreateOrderTool_ProfileFallback(t *testing.T) {
	env := newToolEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, &store.User{
		Username: "alice", Tier: string(policy.TierRegular),
		Address: "88 Harbor Road, Seattle", Phone: "13800000001",
	})
	product := env.seedProduct(t, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory",
		Price: 100, Stock: 10, IsAvailable: true,
	})
	tool := NewCreateOrderTool(env.store, env.engine)

	result, err := tool.Execute(ctx, map[string]any{
		"user_id": float64(user.ID),
		"items": []any{
			map[string]any{"product_id": float64(product.ID), "quantity": float64(2)},
		},
	})
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	created := result.Output.(*engine.CreateOrderResult)
	assert.True(t, strings.HasPrefix(created.Order.OrderNo, "ORD"))
	assert.Equal(t, "88 Harbor Road, Seattle", created.Order.ShippingAddress)
	assert.Contains(t, result.OutputText, "payable")
}

func TestCreateOrderTool_Failures(t *testing.T) {
	env := newToolEnv(t)
	ctx := context.Background()
	// No address on the profile and none supplied.
	bare := env.seedUser(t, &store.User{Username: "carol", Tier: string(policy.TierRegular)})
	product := env.seedProduct(t, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory",
		Price: 100, Stock: 1, IsAvailable: true,
	})
	tool := NewCreateOrderTool(env.store, env.engine)

	result, err := tool.Execute(ctx, map[string]any{
		"user_id": float64(bare.ID),
		"items": []any{
			map[string]any{"product_id": float64(product.ID), "quantity": float64(1)},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no shipping address")

	// Insufficient stock surfaces the engine's validation message as a
	// failed observation, not a Go error.
	result, err = tool.Execute(ctx, map[string]any{
		"user_id":          float64(bare.ID),
		"shipping_address": "12 Glacier Bay, Nome",
		"contact_phone":    "13800000002",
		"items": []any{
			map[string]any{"product_id": float64(product.ID), "quantity": float64(5)},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "insufficient stock")
}

func TestCancelOrderTool_DenialIsObservation(t *testing.T) {
	env := newToolEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, &store.User{Username: "alice", Tier: string(policy.TierRegular)})
	product := env.seedProduct(t, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory",
		Price: 100, Stock: 10, IsAvailable: true,
	})
	created := env.placeOrder(t, user.ID, product.ID, 2)
	ref := engine.OrderRef{ID: created.Order.ID}
	_, err := env.engine.ProcessPayment(ctx, ref, "card", created.PayableTotal)
	require.NoError(t, err)
	_, err = env.engine.ShipOrder(ctx, ref, "SF Express")
	require.NoError(t, err)

	tool := NewCancelOrderTool(env.engine)
	result, err := tool.Execute(ctx, map[string]any{"order_id": created.Order.OrderNo})
	require.NoError(t, err)

	// A blocked cancellation is still a successful observation; the model
	// relays the rule to the customer.
	require.True(t, result.Success)
	outcome := result.Output.(*engine.CancelOrderResult)
	assert.False(t, outcome.Cancelled)
	assert.Equal(t, policy.RuleShipmentBlocksCancel, outcome.Policy.RuleID)
	assert.Contains(t, result.OutputText, "cannot be cancelled")
}

func TestProcessPaymentTool_DefaultsToPayableTotal(t *testing.T) {
	env := newToolEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, &store.User{Username: "alice", Tier: string(policy.TierRegular)})
	product := env.seedProduct(t, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory",
		Price: 100, Stock: 10, IsAvailable: true,
	})
	created := env.placeOrder(t, user.ID, product.ID, 2)

	tool := NewProcessPaymentTool(env.engine)
	result, err := tool.Execute(ctx, map[string]any{"order_id": created.Order.OrderNo})
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	payment := result.Output.(*store.Payment)
	assert.InDelta(t, created.PayableTotal, payment.Amount, 1e-9)
	assert.Equal(t, "card", payment.Method)

	// Paying again is refused by the engine and reported as data.
	result, err = tool.Execute(ctx, map[string]any{"order_id": created.Order.OrderNo})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestTrackShipmentTool(t *testing.T) {
	env := newToolEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, &store.User{Username: "alice", Tier: string(policy.TierRegular)})
	product := env.seedProduct(t, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory",
		Price: 100, Stock: 10, IsAvailable: true,
	})
	created := env.placeOrder(t, user.ID, product.ID, 2)
	tool := NewTrackShipmentTool(env.store, env.engine)

	result, err := tool.Execute(ctx, map[string]any{"order_id": created.Order.OrderNo})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "has not shipped yet")

	ref := engine.OrderRef{ID: created.Order.ID}
	_, err = env.engine.ProcessPayment(ctx, ref, "card", created.PayableTotal)
	require.NoError(t, err)
	shipment, err := env.engine.ShipOrder(ctx, ref, "SF Express")
	require.NoError(t, err)

	result, err = tool.Execute(ctx, map[string]any{"tracking_no": shipment.TrackingNo})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Contains(t, result.OutputText, shipment.TrackingNo)

	result, err = tool.Execute(ctx, map[string]any{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "provide tracking_no or order_id")
}

func TestProcessReturnTool(t *testing.T) {
	env := newToolEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, &store.User{Username: "alice", Tier: string(policy.TierRegular)})
	product := env.seedProduct(t, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory",
		Price: 100, Stock: 10, IsAvailable: true,
	})
	created := env.placeOrder(t, user.ID, product.ID, 2)
	ref := engine.OrderRef{ID: created.Order.ID}
	_, err := env.engine.ProcessPayment(ctx, ref, "card", created.PayableTotal)
	require.NoError(t, err)
	_, err = env.engine.ShipOrder(ctx, ref, "SF Express")
	require.NoError(t, err)
	require.NoError(t, env.store.UpdateOrderStatus(ctx, created.Order.ID, store.OrderStatusDelivered))

	tool := NewProcessReturnTool(env.engine)
	result, err := tool.Execute(ctx, map[string]any{
		"order_id":         created.Order.OrderNo,
		"user_id":          float64(user.ID),
		"reason":           "wrong color",
		"product_category": "accessory",
		"packaging_intact": true,
	})
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	outcome := result.Output.(*engine.ReturnOutcome)
	assert.True(t, outcome.Approved)
	assert.True(t, strings.HasPrefix(outcome.ReturnNo, "RTN"))

	// The wrong owner is an input error, not a refusal.
	result, err = tool.Execute(ctx, map[string]any{
		"order_id":         created.Order.OrderNo,
		"user_id":          float64(user.ID + 100),
		"reason":           "wrong color",
		"product_category": "accessory",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestSupportTicketTool(t *testing.T) {
	env := newToolEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, &store.User{Username: "alice", Tier: string(policy.TierRegular)})
	tool := NewSupportTicketTool(env.store)

	result, err := tool.Execute(ctx, map[string]any{
		"user_id":     float64(user.ID),
		"subject":     "Earbuds case will not charge",
		"description": "The case stopped charging after two days.",
		"category":    "product",
		"priority":    "high",
	})
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	ticket := result.Output.(*store.SupportTicket)
	assert.True(t, strings.HasPrefix(ticket.TicketNo, "TKT"))
	assert.Equal(t, "high", ticket.Priority)
	assert.Nil(t, ticket.OrderID)

	// Linking a nonexistent order is rejected before anything is written.
	result, err = tool.Execute(ctx, map[string]any{
		"user_id":     float64(user.ID),
		"subject":     "Where is my order",
		"description": "No updates for a week.",
		"order_id":    "424242",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown order")
}

func TestUserProfileTool(t *testing.T) {
	env := newToolEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, &store.User{
		Username: "bob", Tier: string(policy.TierRegular), TotalSpent: 6200,
	})
	tool := NewUserProfileTool(env.store)

	result, err := tool.Execute(ctx, map[string]any{"user_id": float64(user.ID)})
	require.NoError(t, err)
	require.True(t, result.Success)
	output := result.Output.(map[string]any)
	assert.Equal(t, policy.TierVIP, output["inferred_tier"])
	assert.Equal(t, policy.TierSVIP, output["next_tier"])
	assert.InDelta(t, 3800.0, output["spend_to_next_tier"], 1e-9)
	assert.Contains(t, result.OutputText, "VIP")

	result, err = tool.Execute(ctx, map[string]any{"user_id": float64(9999)})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestExplainPolicyTool(t *testing.T) {
	env := newToolEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, &store.User{
		Username: "bob", Tier: string(policy.TierVIP), TotalSpent: 6200,
	})
	tool := NewExplainPolicyTool(env.store)

	result, err := tool.Execute(ctx, map[string]any{
		"user_id": float64(user.ID), "order_amount": float64(1000),
	})
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	output := result.Output.(map[string]any)
	// VIP 5% beats the first-order 2% on rate.
	discount := output["discount"].(*policy.DiscountResult)
	assert.Equal(t, policy.RuleVIPDiscount, discount.RuleID)
	assert.InDelta(t, 950.0, output["net_amount"].(float64), 1e-9)
	shipping := output["shipping"].(*policy.ShippingResult)
	assert.Equal(t, policy.RuleVIPShipping, shipping.RuleID)
	assert.InDelta(t, 950.0, output["payable"].(float64), 1e-9)

	result, err = tool.Execute(ctx, map[string]any{
		"user_id": float64(user.ID), "order_amount": float64(-5),
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestValidateOrderTool(t *testing.T) {
	env := newToolEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, &store.User{Username: "alice", Tier: string(policy.TierRegular)})
	product := env.seedProduct(t, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory",
		Price: 100, Stock: 10, IsAvailable: true,
	})
	created := env.placeOrder(t, user.ID, product.ID, 2)
	tool := NewValidateOrderTool(env.engine, engine.NewSchemaValidator())

	// A committed order always conforms.
	result, err := tool.Execute(ctx, map[string]any{"order_id": created.Order.OrderNo})
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	report := result.Output.(*engine.ValidationReport)
	assert.True(t, report.Conforms)
	assert.Contains(t, result.OutputText, "Validation passed")

	// A non-conforming inline document is a finding, not a failure.
	result, err = tool.Execute(ctx, map[string]any{
		"document": map[string]any{
			"order_no":         "ORD202501020304050001",
			"user_id":          float64(user.ID),
			"status":           "pending",
			"gross_amount":     float64(200),
			"discount_amount":  float64(10),
			"net_amount":       float64(150),
			"shipping_address": "88 Harbor Road, Seattle",
			"contact_phone":    "13800000001",
			"items": []any{
				map[string]any{
					"product_id": float64(product.ID),
					"quantity":   float64(2),
					"unit_price": float64(100),
					"subtotal":   float64(200),
				},
			},
		},
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	report = result.Output.(*engine.ValidationReport)
	assert.False(t, report.Conforms)
	assert.Contains(t, result.OutputText, "Validation failed")
	assert.Contains(t, report.Report, "net_amount")

	// Neither parameter is an argument error.
	result, err = tool.Execute(ctx, map[string]any{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "provide order_id or document")
}

func TestUserOrdersTool(t *testing.T) {
	env := newToolEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, &store.User{Username: "alice", Tier: string(policy.TierRegular)})
	product := env.seedProduct(t, &store.Product{
		Name: "Kodiak Wireless Earbuds", Category: "accessory",
		Price: 100, Stock: 10, IsAvailable: true,
	})
	env.placeOrder(t, user.ID, product.ID, 1)
	tool := NewUserOrdersTool(env.store)

	result, err := tool.Execute(ctx, map[string]any{"user_id": float64(user.ID)})
	require.NoError(t, err)
	require.True(t, result.Success)
	output := result.Output.(map[string]any)
	assert.Equal(t, 1, output["count"])

	result, err = tool.Execute(ctx, map[string]any{
		"user_id": float64(user.ID), "status": "delivered",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Contains(t, result.OutputText, "No orders found")
}
