// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools contains the typed shopping-assistant tool implementations
// and the dispatcher that routes model tool calls to them. Every tool
// reports a structured observation envelope back to the conversation loop,
// for both success and failure, so the model always has something to react
// to.
package tools

import (
	"context"
	"time"

	"github.com/AleutianAI/AleutianCommerce/services/llm"
)

// =============================================================================
// Tool Abstraction
// =============================================================================

// ToolCategory groups tools by the part of the shopping flow they serve.
type ToolCategory string

const (
	CategoryCatalog     ToolCategory = "catalog"
	CategoryCart        ToolCategory = "cart"
	CategoryOrder       ToolCategory = "order"
	CategoryFulfillment ToolCategory = "fulfillment"
	CategoryService     ToolCategory = "service"
	CategoryPolicy      ToolCategory = "policy"
)

// ParamType is the JSON Schema type of a tool parameter.
type ParamType string

const (
	ParamTypeString ParamType = "string"
	ParamTypeInt    ParamType = "integer"
	ParamTypeFloat  ParamType = "number"
	ParamTypeBool   ParamType = "boolean"
	ParamTypeArray  ParamType = "array"
	ParamTypeObject ParamType = "object"
)

// ParamDef describes one tool parameter.
type ParamDef struct {
	Type        ParamType
	Description string
	Required    bool
	Default     any
	Enum        []any
}

// ToolDefinition is the full metadata for a tool: schema for the model,
// routing hints for the dispatcher and the conversation loop.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]ParamDef

	Category ToolCategory

	// SideEffects marks tools that write state (orders, payments, cart).
	SideEffects bool

	// CheckoutClass marks tools whose completion must not be reported to
	// the customer until the structural validation tool has run in the
	// same conversation.
	CheckoutClass bool

	// Validation marks the tool that satisfies a pending checkout
	// validation requirement.
	Validation bool

	Timeout time.Duration
}

// Result is the outcome of one tool execution. Execution failures are
// reported through Error with Success=false; the error return of Execute
// is reserved for infrastructure faults (context cancellation, storage
// down) that should abort the conversation turn.
type Result struct {
	Success    bool          `json:"success"`
	Output     any           `json:"output,omitempty"`
	OutputText string        `json:"output_text,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// Tool is one callable capability exposed to the model.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Tool interface {
	Name() string
	Category() ToolCategory
	Definition() ToolDefinition
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}

// LLMDef converts the definition into the wire-format tool schema sent to
// the model backend.
func (d ToolDefinition) LLMDef() llm.ToolDef {
	props := make(map[string]llm.ToolParamDef, len(d.Parameters))
	var required []string
	for name, p := range d.Parameters {
		props[name] = llm.ToolParamDef{
			Type:        string(p.Type),
			Description: p.Description,
			Enum:        p.Enum,
			Default:     p.Default,
		}
		if p.Required {
			required = append(required, name)
		}
	}
	return llm.ToolDef{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        d.Name,
			Description: d.Description,
			Parameters: llm.ToolParameters{
				Type:       "object",
				Properties: props,
				Required:   required,
			},
		},
	}
}
