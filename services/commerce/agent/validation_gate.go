// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/config"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/tools"
)

// =============================================================================
// Checkout Validation Gate
// =============================================================================

// emptyValidationPayload is the structural stub suggested when no
// checkout-class call has supplied arguments to validate.
const emptyValidationPayload = "{}"

// ValidationGate decides when the structural validation tool must run
// before the conversation can report a checkout-class completion.
//
// Description:
//
//	Validation becomes required when the user asks for it explicitly,
//	when the conversation reaches the checkout stage, or immediately
//	after any checkout-class tool runs. The requirement lives on the
//	session and survives iterations and turns; only an observed
//	validation tool call clears it.
//
// Thread Safety: The gate itself is immutable after construction; it
// mutates only the session passed in, which the turn holds locked.
type ValidationGate struct {
	triggers        []string
	checkoutTools   map[string]bool
	validationTools map[string]bool
	validationName  string
}

// NewValidationGate builds a gate from the rule tables and the
// registered tool definitions. Tools flagged CheckoutClass arm the gate;
// tools flagged Validation clear it.
func NewValidationGate(rules *config.ConversationRules, defs []tools.ToolDefinition) *ValidationGate {
	g := &ValidationGate{
		checkoutTools:   make(map[string]bool),
		validationTools: make(map[string]bool),
	}
	for _, trigger := range rules.ValidationTriggers {
		g.triggers = append(g.triggers, strings.ToLower(trigger))
	}
	for _, def := range defs {
		if def.CheckoutClass {
			g.checkoutTools[def.Name] = true
		}
		if def.Validation {
			g.validationTools[def.Name] = true
			g.validationName = def.Name
		}
	}
	return g
}

// TriggeredByText reports whether the user text contains a
// validation-trigger phrase.
func (g *ValidationGate) TriggeredByText(text string) bool {
	lowered := strings.ToLower(text)
	for _, trigger := range g.triggers {
		if strings.Contains(lowered, trigger) {
			return true
		}
	}
	return false
}

// IsCheckoutTool reports whether the named tool is checkout-class.
func (g *ValidationGate) IsCheckoutTool(name string) bool { return g.checkoutTools[name] }

// IsValidationTool reports whether the named tool satisfies the gate.
func (g *ValidationGate) IsValidationTool(name string) bool { return g.validationTools[name] }

// EvaluateTurnStart arms the gate at the beginning of a turn when the
// user text triggers it or the session sits at the checkout stage. At
// checkout the stage alone is enough: the payload falls back to the
// empty structural stub when no checkout-class call has supplied
// arguments yet.
func (g *ValidationGate) EvaluateTurnStart(s *Session, userText string) {
	if s.PendingValidation {
		return
	}
	if g.TriggeredByText(userText) {
		g.arm(s, s.LastCheckoutArgs)
		return
	}
	if s.Stage == config.StageCheckout {
		g.arm(s, s.LastCheckoutArgs)
	}
}

// ObserveToolCall updates the gate after a dispatched tool call: a
// checkout-class call arms it with that call's arguments; a validation
// call clears it.
func (g *ValidationGate) ObserveToolCall(s *Session, toolName, rawArgs string) {
	switch {
	case g.validationTools[toolName]:
		s.PendingValidation = false
		s.PendingPayload = ""
		s.LastCheckoutArgs = ""
	case g.checkoutTools[toolName]:
		s.LastCheckoutArgs = rawArgs
		g.arm(s, rawArgs)
	}
}

// Required reports whether validation is still outstanding.
func (g *ValidationGate) Required(s *Session) bool { return s.PendingValidation }

// ReminderText is the system message injected while validation is
// pending, nudging the model to run the validation tool before it
// reports completion.
func (g *ValidationGate) ReminderText(s *Session) string {
	payload := s.PendingPayload
	if payload == "" {
		payload = emptyValidationPayload
	}
	return fmt.Sprintf(
		"A checkout step completed but has not been validated. Before telling the "+
			"customer the order is done, call %s (for example with arguments %s). "+
			"Do not report success until the validation report comes back.",
		g.validationName, payload)
}

func (g *ValidationGate) arm(s *Session, payload string) {
	s.PendingValidation = true
	if payload == "" {
		payload = emptyValidationPayload
	}
	s.PendingPayload = payload
}
