// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy

import "fmt"

// =============================================================================
// Cancellation State Machine
// =============================================================================

// Order status values recognized by the cancellation machine. They mirror
// the persisted order lifecycle.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
	StatusReturned  = "returned"
)

// Cancellation rule identifiers.
const (
	RulePending24hWindow          = "Pending24hWindow"
	RulePending24hWindowExpired   = "Pending24hWindowExpired"
	RulePaid12hWindow             = "Paid12hWindow"
	RulePaid12hWindowExpired      = "Paid12hWindowExpired"
	RuleShipmentBlocksCancel      = "ShipmentBlocksCancellation"
	RuleReturnFlowRequired        = "ReturnFlowRequired"
	RuleAlreadyTerminated         = "AlreadyTerminated"
	RuleDefaultCancellationDenied = "DefaultCancellationDenied"

	pendingCancelWindowHours = 24.0
	paidCancelWindowHours    = 12.0
)

// CancellationResult is the outcome of the cancellation state machine.
// Allowed is false for every denial; RuleID and Justification carry the
// rationale so the caller can explain the denial.
type CancellationResult struct {
	Allowed       bool   `json:"allowed"`
	RuleID        string `json:"rule_id"`
	Justification string `json:"justification"`
}

// InferCancellation runs the order-cancellation state machine.
//
// Description:
//
//	An existing shipment blocks cancellation regardless of status, even a
//	terminal one. Pending orders may be cancelled within 24 hours of
//	creation, paid orders within 12 hours provided nothing has shipped.
//	Shipped and delivered orders must use the return flow. Cancelled and
//	returned orders are terminal; attempts against them always fail
//	without side effects.
//
// Inputs:
//   - status: Current order status (one of the Status* constants).
//   - hoursSinceCreated: Elapsed hours since order creation.
//   - hasShipment: True when a shipment record exists for the order.
//
// Thread Safety: Safe for concurrent use (pure function).
func InferCancellation(status string, hoursSinceCreated float64, hasShipment bool) *CancellationResult {
	// The shipment row overrides everything, terminal states included.
	if hasShipment {
		return &CancellationResult{
			Allowed:       false,
			RuleID:        RuleShipmentBlocksCancel,
			Justification: "a shipment already exists; use the return flow instead",
		}
	}

	if status == StatusCancelled || status == StatusReturned {
		return &CancellationResult{
			Allowed:       false,
			RuleID:        RuleAlreadyTerminated,
			Justification: fmt.Sprintf("order is already %s and cannot be cancelled again", status),
		}
	}

	switch status {
	case StatusPending:
		if hoursSinceCreated <= pendingCancelWindowHours {
			return &CancellationResult{
				Allowed:       true,
				RuleID:        RulePending24hWindow,
				Justification: "pending orders may be cancelled within 24 hours of creation",
			}
		}
		return &CancellationResult{
			Allowed:       false,
			RuleID:        RulePending24hWindowExpired,
			Justification: "the 24-hour cancellation window for pending orders has expired",
		}

	case StatusPaid:
		if hoursSinceCreated <= paidCancelWindowHours {
			return &CancellationResult{
				Allowed:       true,
				RuleID:        RulePaid12hWindow,
				Justification: "paid orders may be cancelled within 12 hours when nothing has shipped",
			}
		}
		return &CancellationResult{
			Allowed:       false,
			RuleID:        RulePaid12hWindowExpired,
			Justification: "the 12-hour cancellation window for paid orders has expired",
		}

	case StatusShipped, StatusDelivered:
		return &CancellationResult{
			Allowed:       false,
			RuleID:        RuleReturnFlowRequired,
			Justification: fmt.Sprintf("%s orders must use the return flow", status),
		}

	default:
		return &CancellationResult{
			Allowed:       false,
			RuleID:        RuleDefaultCancellationDenied,
			Justification: fmt.Sprintf("orders in status %q cannot be cancelled", status),
		}
	}
}
