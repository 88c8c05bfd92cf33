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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/engine"
)

// =============================================================================
// Shared Helper Functions for Commerce Tools
// =============================================================================

// parseStringParam extracts a string from a parameter value.
//
// Thread Safety: Safe for concurrent use.
func parseStringParam(value any) (string, bool) {
	if s, ok := value.(string); ok {
		return s, true
	}
	return "", false
}

// parseIntParam extracts an integer from a parameter value.
//
// Handles int, int64, float64 (from JSON unmarshaling), and numeric
// strings, since models frequently quote numbers.
//
// Thread Safety: Safe for concurrent use.
func parseIntParam(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// parseUintParam extracts a positive identifier from a parameter value.
//
// Thread Safety: Safe for concurrent use.
func parseUintParam(value any) (uint, bool) {
	n, ok := parseIntParam(value)
	if !ok || n <= 0 {
		return 0, false
	}
	return uint(n), true
}

// parseFloatParam extracts a float64 from a parameter value.
//
// Thread Safety: Safe for concurrent use.
func parseFloatParam(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// parseBoolParam extracts a boolean from a parameter value.
//
// Thread Safety: Safe for concurrent use.
func parseBoolParam(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

// parseItemsParam extracts order item lines from a parameter value.
//
// Description:
//
//	Accepts the JSON-decoded form []any of {"product_id": n, "quantity":
//	n, "unit_price": n} maps. unit_price is optional; product_id and
//	quantity are required per line.
//
// Thread Safety: Safe for concurrent use.
func parseItemsParam(value any) ([]engine.ItemInput, error) {
	raw, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("items must be an array of objects")
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("items must not be empty")
	}

	items := make([]engine.ItemInput, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("items[%d] must be an object", i)
		}
		productID, ok := parseUintParam(m["product_id"])
		if !ok {
			return nil, fmt.Errorf("items[%d].product_id is required and must be a positive integer", i)
		}
		quantity, ok := parseIntParam(m["quantity"])
		if !ok || quantity <= 0 {
			return nil, fmt.Errorf("items[%d].quantity is required and must be a positive integer", i)
		}
		item := engine.ItemInput{ProductID: productID, Quantity: quantity}
		if rawPrice, present := m["unit_price"]; present && rawPrice != nil {
			price, ok := parseFloatParam(rawPrice)
			if !ok {
				return nil, fmt.Errorf("items[%d].unit_price must be a number", i)
			}
			item.UnitPrice = &price
		}
		items = append(items, item)
	}
	return items, nil
}

// failure builds a failed Result carrying a user-facing error message.
func failure(start time.Time, format string, args ...any) *Result {
	return &Result{
		Success:  false,
		Error:    fmt.Sprintf(format, args...),
		Duration: time.Since(start),
	}
}

// success builds a successful Result with structured output and a short
// text rendering.
func success(start time.Time, output any, text string) *Result {
	return &Result{
		Success:    true,
		Output:     output,
		OutputText: text,
		Duration:   time.Since(start),
	}
}
