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
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Structural Order Validation
// =============================================================================

// OrderDocument is the formal representation of a prospective order that
// is submitted to the structural check before commit. The transaction
// engine builds one per create-order request; the validate-order tool
// accepts one directly from the model.
type OrderDocument struct {
	OrderNo         string              `json:"order_no" validate:"required,startswith=ORD"`
	UserID          uint                `json:"user_id" validate:"required"`
	Status          string              `json:"status" validate:"required,oneof=pending paid shipped delivered cancelled returned"`
	GrossAmount     float64             `json:"gross_amount" validate:"gte=0"`
	DiscountAmount  float64             `json:"discount_amount" validate:"gte=0"`
	NetAmount       float64             `json:"net_amount" validate:"gte=0"`
	ShippingFee     float64             `json:"shipping_fee" validate:"gte=0"`
	ShippingAddress string              `json:"shipping_address" validate:"required,min=5"`
	ContactPhone    string              `json:"contact_phone" validate:"required,min=5"`
	Items           []OrderItemDocument `json:"items" validate:"required,min=1,dive"`
}

// OrderItemDocument is one item line of an OrderDocument.
type OrderItemDocument struct {
	ProductID uint    `json:"product_id" validate:"required"`
	Quantity  int     `json:"quantity" validate:"gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gt=0"`
	Subtotal  float64 `json:"subtotal" validate:"gte=0"`
}

// ValidationReport is the outcome of a structural check.
type ValidationReport struct {
	Conforms   bool     `json:"conforms"`
	Violations []string `json:"violations,omitempty"`
	Report     string   `json:"report"`
}

// StructuralValidator runs the external conformance check against an
// order document. The transaction engine aborts the commit when the
// report does not conform.
type StructuralValidator interface {
	ValidateOrder(ctx context.Context, doc *OrderDocument) (*ValidationReport, error)
}

// SchemaValidator implements StructuralValidator on top of the
// go-playground validator plus arithmetic cross-field checks that tag
// syntax cannot express.
//
// Thread Safety: Safe for concurrent use; the underlying validator
// caches struct metadata behind its own lock.
type SchemaValidator struct {
	validate *validator.Validate
}

// NewSchemaValidator constructs the default structural validator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

const amountEpsilon = 1e-6

// lineEpsilon tolerates round-to-cent on stored line subtotals: a unit
// price may carry sub-cent precision while the subtotal is persisted in
// cents, leaving up to half a cent of legitimate drift per line.
const lineEpsilon = 0.005

// ValidateOrder checks an order document against the schema and the
// monetary invariants.
//
// Description:
//
//	Runs tag-based validation first, then the cross-field arithmetic:
//	net = gross - discount, and each item subtotal = quantity * unit
//	price. A failed check is reported, never returned as an error; the
//	error return is reserved for validator infrastructure faults.
func (v *SchemaValidator) ValidateOrder(ctx context.Context, doc *OrderDocument) (*ValidationReport, error) {
	if doc == nil {
		return nil, fmt.Errorf("engine: nil order document")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var violations []string

	if err := v.validate.Struct(doc); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("engine: structural validation: %w", err)
		}
		for _, fe := range fieldErrs {
			violations = append(violations,
				fmt.Sprintf("%s fails constraint %q", fe.Namespace(), fe.Tag()))
		}
	}

	if math.Abs(doc.NetAmount-(doc.GrossAmount-doc.DiscountAmount)) > amountEpsilon {
		violations = append(violations, fmt.Sprintf(
			"net_amount %.2f must equal gross_amount %.2f minus discount_amount %.2f",
			doc.NetAmount, doc.GrossAmount, doc.DiscountAmount))
	}
	var itemSum float64
	for i, item := range doc.Items {
		expected := float64(item.Quantity) * item.UnitPrice
		if math.Abs(item.Subtotal-expected) > lineEpsilon {
			violations = append(violations, fmt.Sprintf(
				"items[%d].subtotal %.2f must equal quantity %d * unit_price %.4f",
				i, item.Subtotal, item.Quantity, item.UnitPrice))
		}
		itemSum += item.Subtotal
	}
	if len(doc.Items) > 0 && math.Abs(itemSum-doc.GrossAmount) > amountEpsilon {
		violations = append(violations, fmt.Sprintf(
			"gross_amount %.2f must equal the sum of item subtotals %.2f",
			doc.GrossAmount, itemSum))
	}

	report := &ValidationReport{
		Conforms:   len(violations) == 0,
		Violations: violations,
	}
	if report.Conforms {
		report.Report = "order document conforms to all structural constraints"
	} else {
		report.Report = fmt.Sprintf("%d violation(s): %s",
			len(violations), strings.Join(violations, "; "))
	}
	return report, nil
}
