// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy contains the pure rule-inference layer for the commerce
// assistant: loyalty tier, discount selection, shipping cost, return
// eligibility, and the order-cancellation state machine.
//
// Every function in this package is stateless and free of I/O. Callers
// (the transaction engine and the policy tools) supply the facts; the
// functions return a typed result carrying the winning rule identifier
// and a human-readable justification so denials can be explained.
package policy

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// Tiers
// =============================================================================

// Tier is a user's loyalty level, derived from cumulative spend.
type Tier string

const (
	TierRegular Tier = "Regular"
	TierVIP     Tier = "VIP"
	TierSVIP    Tier = "SVIP"
)

// Cumulative-spend thresholds for tier inference.
const (
	svipSpendThreshold = 10000.0
	vipSpendThreshold  = 5000.0
)

// tierRank orders tiers for upgrade comparisons.
var tierRank = map[Tier]int{
	TierRegular: 0,
	TierVIP:     1,
	TierSVIP:    2,
}

// InferTier derives the loyalty tier from cumulative spend.
//
// Description:
//
//	Spend >= 10,000 is SVIP, >= 5,000 is VIP, anything below is Regular.
//	Negative spend is treated as zero rather than rejected; the stored
//	value is monotonically non-decreasing so a negative input only occurs
//	on corrupt data.
//
// Thread Safety: Safe for concurrent use (pure function).
func InferTier(cumulativeSpend float64) Tier {
	switch {
	case cumulativeSpend >= svipSpendThreshold:
		return TierSVIP
	case cumulativeSpend >= vipSpendThreshold:
		return TierVIP
	default:
		return TierRegular
	}
}

// SpendToNextTier reports the next tier above the given spend and the
// additional spend needed to reach it. SVIP customers have no next tier;
// the remaining amount is zero and the next tier is empty.
func SpendToNextTier(cumulativeSpend float64) (Tier, float64) {
	if cumulativeSpend < 0 {
		cumulativeSpend = 0
	}
	switch InferTier(cumulativeSpend) {
	case TierRegular:
		return TierVIP, vipSpendThreshold - cumulativeSpend
	case TierVIP:
		return TierSVIP, svipSpendThreshold - cumulativeSpend
	default:
		return "", 0
	}
}

// HigherTier reports whether candidate outranks current.
func HigherTier(candidate, current Tier) bool {
	return tierRank[candidate] > tierRank[current]
}

// =============================================================================
// Errors
// =============================================================================

// InferenceError reports malformed input to a policy function (for example
// a negative order amount). It aborts the enclosing operation before any
// persistence call is made.
type InferenceError struct {
	Field string
	Msg   string
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("policy: %s: %s", e.Field, e.Msg)
}

// =============================================================================
// Discounts
// =============================================================================

// Discount rule identifiers.
const (
	RuleSVIPDiscount        = "SVIPDiscountRule"
	RuleVIPDiscount         = "VIPDiscountRule"
	RuleVolumeDiscount10k   = "VolumeDiscount10kRule"
	RuleVolumeDiscount5k    = "VolumeDiscount5kRule"
	RuleFirstOrderDiscount  = "FirstOrderDiscountRule"
	RuleNoDiscount          = "NoDiscountRule"
	volumeThresholdLarge    = 10000.0
	volumeThresholdStandard = 5000.0
)

// DiscountResult is the outcome of discount inference.
//
// Rate is the multiplier applied to the gross amount (0.90 means 10% off,
// 1.0 means no discount). Alternatives lists the rules that also applied
// but lost the minimum-rate selection.
type DiscountResult struct {
	Rate          float64  `json:"rate"`
	RuleID        string   `json:"rule_id"`
	Justification string   `json:"justification"`
	Alternatives  []string `json:"alternatives,omitempty"`
}

// discountCandidate is one applicable rule prior to selection.
type discountCandidate struct {
	rate     float64
	priority int
	ruleID   string
	reason   string
}

// InferDiscount selects the single discount applied to an order.
//
// Description:
//
//	Collects every applicable rule (tier discount, volume discounts at the
//	10k and 5k thresholds, first-order discount) and picks the one with the
//	lowest rate. Discounts never stack. Ties are broken by priority, then
//	rule identifier, so the result is deterministic.
//
//	The minimum-rate selection means the first-order rate (0.98) can only
//	win for a Regular-tier, sub-volume order; that asymmetry is part of the
//	rule design and must not be "corrected" here.
//
// Inputs:
//   - tier: The user's current loyalty tier.
//   - orderAmount: Gross order amount before discount. Must be >= 0.
//   - isFirstOrder: True when the user has no prior orders.
//
// Outputs:
//   - *DiscountResult: The winning rule. Rate 1.0 when nothing applies.
//   - error: *InferenceError on negative amount.
//
// Thread Safety: Safe for concurrent use (pure function).
func InferDiscount(tier Tier, orderAmount float64, isFirstOrder bool) (*DiscountResult, error) {
	if orderAmount < 0 {
		return nil, &InferenceError{Field: "order_amount", Msg: "must be non-negative"}
	}

	var candidates []discountCandidate
	switch tier {
	case TierSVIP:
		candidates = append(candidates, discountCandidate{
			rate: 0.90, priority: 40, ruleID: RuleSVIPDiscount,
			reason: "SVIP members receive 10% off every order",
		})
	case TierVIP:
		candidates = append(candidates, discountCandidate{
			rate: 0.95, priority: 30, ruleID: RuleVIPDiscount,
			reason: "VIP members receive 5% off every order",
		})
	}
	if orderAmount >= volumeThresholdLarge {
		candidates = append(candidates, discountCandidate{
			rate: 0.90, priority: 25, ruleID: RuleVolumeDiscount10k,
			reason: "orders of 10,000 or more receive 10% off",
		})
	} else if orderAmount >= volumeThresholdStandard {
		candidates = append(candidates, discountCandidate{
			rate: 0.95, priority: 15, ruleID: RuleVolumeDiscount5k,
			reason: "orders of 5,000 or more receive 5% off",
		})
	}
	if isFirstOrder {
		candidates = append(candidates, discountCandidate{
			rate: 0.98, priority: 5, ruleID: RuleFirstOrderDiscount,
			reason: "first order receives 2% off",
		})
	}

	if len(candidates) == 0 {
		return &DiscountResult{
			Rate:          1.0,
			RuleID:        RuleNoDiscount,
			Justification: "no discount rules apply to this order",
		}, nil
	}

	// Lowest rate wins; priority then rule id break ties deterministically.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rate != candidates[j].rate {
			return candidates[i].rate < candidates[j].rate
		}
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority > candidates[j].priority
		}
		return candidates[i].ruleID < candidates[j].ruleID
	})

	winner := candidates[0]
	alternatives := make([]string, 0, len(candidates)-1)
	for _, c := range candidates[1:] {
		alternatives = append(alternatives, fmt.Sprintf("%s (rate %.2f)", c.ruleID, c.rate))
	}

	justification := winner.reason
	if len(alternatives) > 0 {
		justification = fmt.Sprintf("%s; selected over %s", winner.reason, strings.Join(alternatives, ", "))
	}

	return &DiscountResult{
		Rate:          winner.rate,
		RuleID:        winner.ruleID,
		Justification: justification,
		Alternatives:  alternatives,
	}, nil
}

// =============================================================================
// Shipping
// =============================================================================

// Shipping rule identifiers and constants.
const (
	RuleSVIPShipping      = "SVIPNextDayShippingRule"
	RuleVIPShipping       = "VIPFreeShippingRule"
	RuleThresholdShipping = "FreeShippingThresholdRule"
	RuleFlatShipping      = "FlatShippingRule"

	ShippingMethodStandard = "standard"
	ShippingMethodNextDay  = "next_day"

	freeShippingThreshold = 500.0
	flatShippingFee       = 15.0
	remoteAreaSurcharge   = 30.0
	standardDeliveryDays  = 3
	nextDayDeliveryDays   = 1
)

// ShippingResult is the outcome of shipping inference.
type ShippingResult struct {
	Cost          float64 `json:"cost"`
	Free          bool    `json:"free"`
	Method        string  `json:"method"`
	EstimatedDays int     `json:"estimated_days"`
	RuleID        string  `json:"rule_id"`
	Justification string  `json:"justification"`
}

// InferShipping computes the shipping cost and method for an order.
//
// Description:
//
//	Evaluated on the post-discount net amount. SVIP orders ship free via
//	next-day delivery regardless of destination. VIP orders and orders at
//	or above the free-shipping threshold ship free standard. Everything
//	else pays the flat fee. A remote destination adds a surcharge and
//	cancels free shipping, except for SVIP.
//
// Thread Safety: Safe for concurrent use (pure function).
func InferShipping(tier Tier, netAmount float64, isRemote bool) (*ShippingResult, error) {
	if netAmount < 0 {
		return nil, &InferenceError{Field: "net_amount", Msg: "must be non-negative"}
	}

	if tier == TierSVIP {
		return &ShippingResult{
			Cost:          0,
			Free:          true,
			Method:        ShippingMethodNextDay,
			EstimatedDays: nextDayDeliveryDays,
			RuleID:        RuleSVIPShipping,
			Justification: "SVIP members receive free next-day delivery everywhere",
		}, nil
	}

	result := &ShippingResult{
		Method:        ShippingMethodStandard,
		EstimatedDays: standardDeliveryDays,
	}

	switch {
	case tier == TierVIP:
		result.Free = true
		result.RuleID = RuleVIPShipping
		result.Justification = "VIP members receive free standard shipping"
	case netAmount >= freeShippingThreshold:
		result.Free = true
		result.RuleID = RuleThresholdShipping
		result.Justification = fmt.Sprintf("orders of %.0f or more ship free", freeShippingThreshold)
	default:
		result.Cost = flatShippingFee
		result.RuleID = RuleFlatShipping
		result.Justification = fmt.Sprintf("flat shipping fee of %.0f applies", flatShippingFee)
	}

	if isRemote {
		result.Cost += remoteAreaSurcharge
		result.Free = false
		result.Justification += fmt.Sprintf("; remote-area surcharge of %.0f added", remoteAreaSurcharge)
	}

	return result, nil
}

// =============================================================================
// Returns
// =============================================================================

// Return rule identifiers and product categories with special handling.
const (
	RuleServiceNoReturn      = "ServiceNonReturnableRule"
	RuleActivatedElectronics = "ActivatedElectronicsRule"
	RuleAccessoryPackaging   = "AccessoryPackagingRule"
	RuleStandardReturn       = "StandardReturnRule"

	CategoryService     = "service"
	CategoryPhone       = "phone"
	CategoryElectronics = "electronics"
	CategoryAccessory   = "accessory"

	returnWindowMemberDays  = 15
	returnWindowDefaultDays = 7
)

// ReturnResult is the outcome of return-eligibility inference.
type ReturnResult struct {
	Returnable    bool   `json:"returnable"`
	WindowDays    int    `json:"window_days"`
	Condition     string `json:"condition,omitempty"`
	RuleID        string `json:"rule_id"`
	Justification string `json:"justification"`
}

// InferReturnEligibility decides whether an item can be returned.
//
// Description:
//
//	Service-category items are never returnable. Activated phones and
//	electronics are only returnable for quality defects. Accessories
//	require intact packaging. The return window is 15 days for VIP and
//	SVIP members, 7 days otherwise.
//
// Thread Safety: Safe for concurrent use (pure function).
func InferReturnEligibility(tier Tier, category string, isActivated, packagingIntact bool) *ReturnResult {
	window := returnWindowDefaultDays
	if tier == TierVIP || tier == TierSVIP {
		window = returnWindowMemberDays
	}

	normalized := strings.ToLower(strings.TrimSpace(category))

	if normalized == CategoryService {
		return &ReturnResult{
			Returnable:    false,
			WindowDays:    0,
			RuleID:        RuleServiceNoReturn,
			Justification: "service items cannot be returned once delivered",
		}
	}

	if (normalized == CategoryPhone || normalized == CategoryElectronics) && isActivated {
		return &ReturnResult{
			Returnable:    true,
			WindowDays:    window,
			Condition:     "quality defect only",
			RuleID:        RuleActivatedElectronics,
			Justification: "activated devices are only returnable for quality defects",
		}
	}

	if normalized == CategoryAccessory && !packagingIntact {
		return &ReturnResult{
			Returnable:    false,
			WindowDays:    0,
			RuleID:        RuleAccessoryPackaging,
			Justification: "accessories require intact packaging for return",
		}
	}

	return &ReturnResult{
		Returnable:    true,
		WindowDays:    window,
		RuleID:        RuleStandardReturn,
		Justification: fmt.Sprintf("returnable within %d days of delivery", window),
	}
}
