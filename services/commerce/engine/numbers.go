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
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Business Number Formats
// =============================================================================

const numberTimestampLayout = "20060102150405"

// orderNoMinBareDigits is the minimum length at which a bare digit string
// is treated as an order number (with the ORD prefix restored) instead of
// a numeric id. Order numbers are 14 timestamp digits plus a 4-digit user
// id, so 15 digits can never be a plain row id in practice.
const orderNoMinBareDigits = 15

// FormatOrderNo builds a human-readable order number:
// ORD{YYYYMMDDHHMMSS}{userID:04d}.
func FormatOrderNo(t time.Time, userID uint) string {
	return fmt.Sprintf("ORD%s%04d", t.Format(numberTimestampLayout), userID)
}

// FormatTrackingNo builds a shipment tracking number: SF{YYYYMMDDHHMMSS}.
func FormatTrackingNo(t time.Time) string {
	return "SF" + t.Format(numberTimestampLayout)
}

// FormatPaymentNo builds a payment transaction number with microsecond
// precision so two payments in the same second stay distinct.
func FormatPaymentNo(t time.Time) string {
	return fmt.Sprintf("TXN%s%06d", t.Format(numberTimestampLayout), t.Nanosecond()/1000)
}

// FormatTicketNo builds a support ticket number:
// TKT{YYYYMMDDHHMMSS}{userID:04d}.
func FormatTicketNo(t time.Time, userID uint) string {
	return fmt.Sprintf("TKT%s%04d", t.Format(numberTimestampLayout), userID)
}

// FormatReturnNo builds a return request number:
// RTN{YYYYMMDDHHMMSS}{orderID:04d}.
func FormatReturnNo(t time.Time, orderID uint) string {
	return fmt.Sprintf("RTN%s%04d", t.Format(numberTimestampLayout), orderID)
}

// =============================================================================
// Order Reference Resolution
// =============================================================================

// OrderRef identifies an order either by numeric id or by its formatted
// order number. Exactly one of the fields is set.
type OrderRef struct {
	ID      uint
	OrderNo string
}

// String renders the reference for error messages.
func (r OrderRef) String() string {
	if r.OrderNo != "" {
		return r.OrderNo
	}
	return strconv.FormatUint(uint64(r.ID), 10)
}

// ParseOrderRef interprets a loosely typed order reference as produced by
// a language model: a number, a numeric string, an "ORD..." order number,
// or a long bare digit string that lost its ORD prefix.
//
// Description:
//
//	Integers and short digit strings resolve to the numeric id. Strings
//	starting with "ORD" (case-insensitive) resolve to the order number.
//	A bare digit string of 15+ digits is an order number whose prefix was
//	stripped and gets it restored.
//
// Outputs:
//   - OrderRef: The parsed reference.
//   - error: Non-nil when the value cannot identify an order.
func ParseOrderRef(v any) (OrderRef, error) {
	switch val := v.(type) {
	case int:
		return refFromID(int64(val))
	case int64:
		return refFromID(val)
	case uint:
		return OrderRef{ID: val}, nil
	case float64:
		if val != float64(int64(val)) {
			return OrderRef{}, fmt.Errorf("engine: order reference %v is not an integer", val)
		}
		return refFromID(int64(val))
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return OrderRef{}, fmt.Errorf("engine: empty order reference")
		}
		if strings.HasPrefix(strings.ToUpper(s), "ORD") {
			return OrderRef{OrderNo: "ORD" + s[3:]}, nil
		}
		if isAllDigits(s) {
			if len(s) >= orderNoMinBareDigits {
				return OrderRef{OrderNo: "ORD" + s}, nil
			}
			id, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return OrderRef{}, fmt.Errorf("engine: parsing order id %q: %w", s, err)
			}
			return refFromID(int64(id))
		}
		return OrderRef{}, fmt.Errorf("engine: unrecognized order reference %q", s)
	default:
		return OrderRef{}, fmt.Errorf("engine: unsupported order reference type %T", v)
	}
}

func refFromID(id int64) (OrderRef, error) {
	if id <= 0 {
		return OrderRef{}, fmt.Errorf("engine: order id must be positive, got %d", id)
	}
	return OrderRef{ID: uint(id)}, nil
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
