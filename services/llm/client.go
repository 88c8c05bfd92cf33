// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the chat-completions client used by the shopping
// assistant. The client speaks the OpenAI-compatible wire protocol, which
// covers OpenAI itself plus the compatible endpoints (DeepSeek, vLLM,
// llama.cpp server) that the assistant is commonly deployed against.
package llm

import "context"

// GenerationParams holds optional sampling parameters for a completion
// request. Nil pointer fields are omitted from the wire request so the
// backend's defaults apply.
type GenerationParams struct {
	Temperature   *float32
	MaxTokens     *int
	TopP          *float32
	Stop          []string
	ModelOverride string
}

// ToolChatClient is the capability the conversation loop needs from a
// model backend: a multi-turn chat completion that can request tool
// invocations.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ToolChatClient interface {
	ChatWithTools(ctx context.Context, messages []ChatMessage,
		params GenerationParams, tools []ToolDef) (*ChatWithToolsResult, error)
}
