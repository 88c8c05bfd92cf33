// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import "time"

// =============================================================================
// Persisted Entities
// =============================================================================

// User is a registered customer. Tier is derivable from TotalSpent via the
// policy layer and may lag until re-inferred by an order commit.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:64;uniqueIndex"`
	Phone        string `gorm:"size:32"`
	Address      string `gorm:"size:256"`
	IsRemoteArea bool
	Tier         string `gorm:"size:16;default:Regular"`
	TotalSpent   float64
	CreatedAt    time.Time
}

// Product is a catalog entry. Stock is only mutated through UpdateStock so
// the non-negative guard applies everywhere.
type Product struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:128;index"`
	Description string `gorm:"size:512"`
	Model       string `gorm:"size:64"`
	Category    string `gorm:"size:32;index"`
	Brand       string `gorm:"size:64;index"`
	Price       float64
	Stock       int
	Rating      float64
	IsAvailable bool `gorm:"default:true"`
	CreatedAt   time.Time
}

// CartItem is one product line in a user's cart. (UserID, ProductID) is
// unique; adding the same product again increases Quantity.
type CartItem struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"uniqueIndex:idx_cart_user_product"`
	ProductID uint `gorm:"uniqueIndex:idx_cart_user_product"`
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order lifecycle statuses. Orders are never deleted, only
// status-transitioned; terminal states are cancelled and returned.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
	OrderStatusReturned  = "returned"
)

// Payment statuses carried on the order row.
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Order is a committed purchase. TotalAmount is the gross sum of item
// subtotals, DiscountAmount the deduction, FinalAmount the net; the
// invariant FinalAmount == TotalAmount - DiscountAmount holds for every
// row the transaction engine writes. ShippingFee is charged on top of
// FinalAmount when computing the payable total.
type Order struct {
	ID              uint   `gorm:"primaryKey"`
	OrderNo         string `gorm:"size:32;uniqueIndex"`
	UserID          uint   `gorm:"index"`
	Status          string `gorm:"size:16;index;default:pending"`
	PaymentStatus   string `gorm:"size:16;default:unpaid"`
	TotalAmount     float64
	DiscountAmount  float64
	FinalAmount     float64
	ShippingFee     float64
	ShippingAddress string `gorm:"size:256"`
	ContactPhone    string `gorm:"size:32"`
	CreatedAt       time.Time
	PaidAt          *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	Items           []OrderItem `gorm:"foreignKey:OrderID"`
}

// OrderItem is one product line of an order. UnitPrice is resolved at
// order time and immutable thereafter; Subtotal = Quantity * UnitPrice.
type OrderItem struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"index"`
	ProductID uint
	Quantity  int
	UnitPrice float64
	Subtotal  float64
}

// Payment records a settlement against an order.
type Payment struct {
	ID        uint   `gorm:"primaryKey"`
	PaymentNo string `gorm:"size:40;uniqueIndex"`
	OrderID   uint   `gorm:"index"`
	Method    string `gorm:"size:32"`
	Amount    float64
	Status    string `gorm:"size:16;default:success"`
	CreatedAt time.Time
}

// Shipment statuses.
const (
	ShipmentStatusInTransit = "in_transit"
	ShipmentStatusDelivered = "delivered"
)

// Shipment tracks the physical delivery of an order. Its existence blocks
// order cancellation.
type Shipment struct {
	ID            uint   `gorm:"primaryKey"`
	TrackingNo    string `gorm:"size:32;uniqueIndex"`
	OrderID       uint   `gorm:"index"`
	Carrier       string `gorm:"size:64"`
	Status        string `gorm:"size:16;default:in_transit"`
	EstimatedDays int
	ShippedAt     time.Time
	DeliveredAt   *time.Time
}

// Review is a customer product review.
type Review struct {
	ID        uint `gorm:"primaryKey"`
	ProductID uint `gorm:"index"`
	UserID    uint
	Rating    int
	Content   string `gorm:"size:512"`
	CreatedAt time.Time
}

// SupportTicket is a customer-service case, optionally linked to an order.
type SupportTicket struct {
	ID          uint   `gorm:"primaryKey"`
	TicketNo    string `gorm:"size:32;uniqueIndex"`
	UserID      uint   `gorm:"index"`
	OrderID     *uint
	Subject     string `gorm:"size:128"`
	Description string `gorm:"size:1024"`
	Category    string `gorm:"size:32"`
	Priority    string `gorm:"size:16;default:medium"`
	Status      string `gorm:"size:16;default:open"`
	CreatedAt   time.Time
}

// TicketMessage is one message on a support ticket's thread.
type TicketMessage struct {
	ID        uint   `gorm:"primaryKey"`
	TicketID  uint   `gorm:"index"`
	Sender    string `gorm:"size:16"`
	Content   string `gorm:"size:1024"`
	CreatedAt time.Time
}

// ReturnRequest records a return or exchange opened against an order.
type ReturnRequest struct {
	ID        uint   `gorm:"primaryKey"`
	ReturnNo  string `gorm:"size:32;uniqueIndex"`
	OrderID   uint   `gorm:"index"`
	UserID    uint
	Type      string `gorm:"size:16;default:return"`
	Reason    string `gorm:"size:512"`
	Status    string `gorm:"size:16;default:pending"`
	CreatedAt time.Time
}
