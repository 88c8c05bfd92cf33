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
	"strings"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/config"
)

// =============================================================================
// Conversation Stage Tracking
// =============================================================================

// StageTracker infers the conversation stage from user text and from the
// tools the model invokes. Inference is advisory: any stage can follow
// any other, and an inconclusive signal leaves the stage unchanged.
//
// Thread Safety: Safe for concurrent use; the rule tables are immutable.
type StageTracker struct {
	rules *config.ConversationRules
}

// NewStageTracker creates a tracker over the loaded rule tables.
func NewStageTracker(rules *config.ConversationRules) *StageTracker {
	return &StageTracker{rules: rules}
}

// InferFromText maps user text to a stage via the keyword patterns. The
// first pattern with a matching keyword wins; no match returns current.
func (t *StageTracker) InferFromText(current, text string) string {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return current
	}
	for _, pattern := range t.rules.StagePatterns {
		for _, keyword := range pattern.Keywords {
			if strings.Contains(lowered, strings.ToLower(keyword)) {
				return pattern.Stage
			}
		}
	}
	return current
}

// InferFromTool maps an invoked tool to the stage its use implies.
// Unknown tools leave the stage unchanged.
func (t *StageTracker) InferFromTool(current, toolName string) string {
	if stage, ok := t.rules.StageTools[toolName]; ok {
		return stage
	}
	return current
}
