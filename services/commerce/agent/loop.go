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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/config"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/tools"
	"github.com/AleutianAI/AleutianCommerce/services/llm"
)

// =============================================================================
// Orchestration Loop
// =============================================================================

var loopTracer = otel.Tracer("commerce.agent")

// MaxIterations bounds the tool loop per conversation turn.
const MaxIterations = 6

// maxIterationsMarker is appended to the answer when the budget runs out.
const maxIterationsMarker = "[stopped: maximum tool iterations reached]"

// ErrLLMCall wraps model-backend failures; they are terminal for the
// turn.
var ErrLLMCall = errors.New("agent: llm call failed")

// systemPrompt frames the assistant. Kept short; the tool descriptions
// carry the operational detail.
const systemPrompt = "You are a shopping assistant for an online electronics store. " +
	"Use the available tools to look up real data before answering; never invent " +
	"products, prices, stock, or order state. Relay policy refusals (cancellation " +
	"windows, return rules) together with their stated reason. After creating an " +
	"order or taking a payment, run the order validation tool before confirming " +
	"success to the customer."

// TurnResult is the outcome of one conversation turn.
type TurnResult struct {
	SessionID            string           `json:"session_id"`
	Answer               string           `json:"answer"`
	Stage                string           `json:"stage"`
	ToolLog              []ToolCallRecord `json:"tool_log,omitempty"`
	Iterations           int              `json:"iterations"`
	MaxIterationsReached bool             `json:"max_iterations_reached,omitempty"`
	ValidationPending    bool             `json:"validation_pending,omitempty"`
}

// Loop drives the bounded observe-act cycle for one turn.
//
// Description:
//
//	Each iteration re-evaluates the validation gate, injects at most one
//	reminder, asks the model for its next action given the history and
//	tool schemas, and dispatches any requested tool calls sequentially,
//	feeding the observations back into the history. A turn ends when the
//	model answers in plain text with no validation pending, or when the
//	iteration budget is exhausted.
//
// Thread Safety: Safe for concurrent use across sessions; a single
// session must not run two turns concurrently (Run takes the session
// lock).
type Loop struct {
	client     llm.ToolChatClient
	dispatcher *tools.Dispatcher
	gate       *ValidationGate
	stages     *StageTracker
	logger     *slog.Logger
	params     llm.GenerationParams
}

// NewLoop wires the loop from its collaborators.
func NewLoop(client llm.ToolChatClient, dispatcher *tools.Dispatcher, rules *config.ConversationRules) *Loop {
	return &Loop{
		client:     client,
		dispatcher: dispatcher,
		gate:       NewValidationGate(rules, definitionsOf(dispatcher)),
		stages:     NewStageTracker(rules),
		logger:     slog.Default(),
	}
}

func definitionsOf(d *tools.Dispatcher) []tools.ToolDefinition {
	var defs []tools.ToolDefinition
	for _, name := range d.Names() {
		if t, ok := d.Lookup(name); ok {
			defs = append(defs, t.Definition())
		}
	}
	return defs
}

// Gate exposes the gate for session introspection handlers.
func (l *Loop) Gate() *ValidationGate { return l.gate }

// Run executes one conversation turn.
//
// Inputs:
//   - ctx: Cancels the turn, including in-flight model and tool calls.
//   - session: The conversation; locked for the duration of the turn.
//   - userInput: The customer's message.
//
// Outputs:
//   - *TurnResult: The answer, stage, and tool log. Never carries a
//     normal completion while validation is pending.
//   - error: Non-nil when the model backend fails; wraps ErrLLMCall.
func (l *Loop) Run(ctx context.Context, session *Session, userInput string) (*TurnResult, error) {
	session.Lock()
	defer session.Unlock()

	ctx, span := loopTracer.Start(ctx, "Loop.Run",
		trace.WithAttributes(attribute.String("session_id", session.ID)),
	)
	defer span.End()

	if len(session.Messages) == 0 {
		session.Append(llm.ChatMessage{Role: "system", Content: systemPrompt})
	}
	session.SetStage(l.stages.InferFromText(session.Stage, userInput))
	session.Append(llm.ChatMessage{Role: "user", Content: userInput})
	l.gate.EvaluateTurnStart(session, userInput)

	result := &TurnResult{SessionID: session.ID}
	var lastAssistantText string
	lastRemindedIteration := -1

	for iteration := 0; iteration < MaxIterations; iteration++ {
		result.Iterations = iteration + 1

		if l.gate.Required(session) && lastRemindedIteration != iteration {
			reminder := l.gate.ReminderText(session)
			if last := len(session.Messages) - 1; last < 0 || session.Messages[last].Content != reminder {
				session.Append(llm.ChatMessage{Role: "system", Content: reminder})
			}
			lastRemindedIteration = iteration
		}

		reply, err := l.client.ChatWithTools(ctx, session.Messages, l.params, l.dispatcher.Definitions())
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: %v", ErrLLMCall, err)
		}

		session.Append(llm.ChatMessage{
			Role:      "assistant",
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		})
		if reply.Content != "" {
			lastAssistantText = reply.Content
		}

		if len(reply.ToolCalls) == 0 {
			// No action requested. A pending validation keeps the turn
			// alive; the reminder on the next iteration tells the model
			// what is missing.
			if l.gate.Required(session) {
				l.logger.Debug("model answered with validation pending; continuing",
					slog.String("session_id", session.ID),
					slog.Int("iteration", iteration),
				)
				continue
			}
			result.Answer = reply.Content
			result.Stage = session.Stage
			span.SetAttributes(attribute.Int("iterations", result.Iterations))
			return result, nil
		}

		for _, call := range reply.ToolCalls {
			rawArgs := call.ArgumentsString()
			obs := l.dispatcher.Invoke(ctx, call.Name, rawArgs)
			l.gate.ObserveToolCall(session, call.Name, rawArgs)
			session.SetStage(l.stages.InferFromTool(session.Stage, call.Name))

			payload := obs.JSON()
			session.Append(llm.ChatMessage{
				Role:       "tool",
				Content:    payload,
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
			result.ToolLog = append(result.ToolLog, ToolCallRecord{
				Iteration:   iteration,
				Tool:        call.Name,
				Arguments:   rawArgs,
				Observation: payload,
				Failed:      obs.Error != "",
			})
			l.logger.Info("tool dispatched",
				slog.String("session_id", session.ID),
				slog.String("tool", call.Name),
				slog.Int("iteration", iteration),
				slog.Bool("error", obs.Error != ""),
			)
		}
	}

	// Budget exhausted. Surface the last text the model produced with an
	// explicit marker; a still-pending validation is reported, never
	// dressed up as a normal completion.
	answer := strings.TrimSpace(lastAssistantText)
	if answer == "" {
		answer = maxIterationsMarker
	} else {
		answer = answer + "\n\n" + maxIterationsMarker
	}
	result.Answer = answer
	result.Stage = session.Stage
	result.MaxIterationsReached = true
	result.ValidationPending = l.gate.Required(session)
	span.SetAttributes(
		attribute.Int("iterations", result.Iterations),
		attribute.Bool("max_iterations", true),
	)
	return result, nil
}
