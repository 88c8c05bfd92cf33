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
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/config"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/tools"
	"github.com/AleutianAI/AleutianCommerce/services/llm"
)

// scriptedLLM replays a fixed sequence of model responses and records
// the messages it was shown.
type scriptedLLM struct {
	steps []*llm.ChatWithToolsResult
	err   error
	calls int
	seen  [][]llm.ChatMessage
}

func (s *scriptedLLM) ChatWithTools(_ context.Context, msgs []llm.ChatMessage, _ llm.GenerationParams, _ []llm.ToolDef) (*llm.ChatWithToolsResult, error) {
	s.seen = append(s.seen, append([]llm.ChatMessage(nil), msgs...))
	if s.err != nil {
		return nil, s.err
	}
	if s.calls >= len(s.steps) {
		// Scripts that run out answer with plain text, which ends turns
		// that have nothing pending.
		s.calls++
		return &llm.ChatWithToolsResult{Content: "script exhausted", StopReason: "end"}, nil
	}
	step := s.steps[s.calls]
	s.calls++
	return step, nil
}

func textReply(content string) *llm.ChatWithToolsResult {
	return &llm.ChatWithToolsResult{Content: content, StopReason: "end"}
}

func toolReply(id, name, args string) *llm.ChatWithToolsResult {
	return &llm.ChatWithToolsResult{
		StopReason: "tool_use",
		ToolCalls: []llm.ToolCallResponse{
			{ID: id, Name: name, Arguments: json.RawMessage(args)},
		},
	}
}

// fakeTool is a canned tool for loop tests.
type fakeTool struct {
	def tools.ToolDefinition
}

func (f *fakeTool) Name() string                     { return f.def.Name }
func (f *fakeTool) Category() tools.ToolCategory     { return f.def.Category }
func (f *fakeTool) Definition() tools.ToolDefinition { return f.def }

func (f *fakeTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	return &tools.Result{Success: true, Output: params}, nil
}

func newTestLoop(t *testing.T, client llm.ToolChatClient) (*Loop, *tools.Dispatcher) {
	t.Helper()
	d := tools.NewDispatcher()
	d.MustRegister(
		&fakeTool{def: tools.ToolDefinition{Name: "check_stock"}},
		&fakeTool{def: tools.ToolDefinition{Name: "create_order", CheckoutClass: true, SideEffects: true}},
		&fakeTool{def: tools.ToolDefinition{Name: "policy_validate_order", Validation: true}},
	)
	rules, err := config.GetConversationRules()
	require.NoError(t, err)
	return NewLoop(client, d, rules), d
}

func newTurnSession(store *SessionStore) *Session {
	s, _ := store.GetOrCreate("", 1)
	return s
}

func TestRun_PlainAnswer(t *testing.T) {
	client := &scriptedLLM{steps: []*llm.ChatWithToolsResult{
		textReply("We carry several wireless earbuds."),
	}}
	loop, _ := newTestLoop(t, client)
	session := newTurnSession(NewSessionStore())

	result, err := loop.Run(context.Background(), session, "I'm looking for wireless earbuds")
	require.NoError(t, err)

	assert.Equal(t, "We carry several wireless earbuds.", result.Answer)
	assert.Equal(t, 1, result.Iterations)
	assert.Empty(t, result.ToolLog)
	assert.Equal(t, config.StageBrowsing, result.Stage)
	// History: system prompt, user, assistant.
	require.Len(t, session.Messages, 3)
	assert.Equal(t, "system", session.Messages[0].Role)
}

func TestRun_ToolCallThenAnswer(t *testing.T) {
	client := &scriptedLLM{steps: []*llm.ChatWithToolsResult{
		toolReply("call_1", "check_stock", `{"product_id": 3, "quantity": 2}`),
		textReply("Yes, 2 units are available."),
	}}
	loop, _ := newTestLoop(t, client)
	session := newTurnSession(NewSessionStore())

	result, err := loop.Run(context.Background(), session, "do you have 2 in stock?")
	require.NoError(t, err)

	assert.Equal(t, "Yes, 2 units are available.", result.Answer)
	assert.Equal(t, 2, result.Iterations)
	require.Len(t, result.ToolLog, 1)
	assert.Equal(t, "check_stock", result.ToolLog[0].Tool)
	assert.Contains(t, result.ToolLog[0].Observation, `"capability_id":"check_stock"`)

	// The observation went back into the history as a tool message
	// linked to the originating call.
	var toolMsg *llm.ChatMessage
	for i := range session.Messages {
		if session.Messages[i].Role == "tool" {
			toolMsg = &session.Messages[i]
		}
	}
	require.NotNil(t, toolMsg)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.Equal(t, "check_stock", toolMsg.ToolName)
}

func TestRun_CheckoutArmsGateValidationClears(t *testing.T) {
	orderArgs := `{"user_id": 1, "items": [{"product_id": 3, "quantity": 2}]}`
	client := &scriptedLLM{steps: []*llm.ChatWithToolsResult{
		toolReply("call_1", "create_order", orderArgs),
		// The model tries to declare victory without validating.
		textReply("Your order is placed!"),
		toolReply("call_2", "policy_validate_order", `{"order_id": "1"}`),
		textReply("Order placed and validated."),
	}}
	loop, _ := newTestLoop(t, client)
	session := newTurnSession(NewSessionStore())

	result, err := loop.Run(context.Background(), session, "please place the order")
	require.NoError(t, err)

	// The premature answer did not end the turn; the validated one did.
	assert.Equal(t, "Order placed and validated.", result.Answer)
	assert.False(t, session.PendingValidation)
	require.Len(t, result.ToolLog, 2)
	assert.Equal(t, "create_order", result.ToolLog[0].Tool)
	assert.Equal(t, "policy_validate_order", result.ToolLog[1].Tool)

	// A reminder naming the validation tool and carrying the checkout
	// arguments was injected while the requirement was pending. Earlier
	// reminders may still carry the empty stub from before the
	// create_order call supplied arguments.
	var remindedWithArgs bool
	for _, msg := range session.Messages {
		if msg.Role == "system" && msg.Content != systemPrompt {
			assert.Contains(t, msg.Content, "policy_validate_order")
			if strings.Contains(msg.Content, orderArgs) {
				remindedWithArgs = true
			}
		}
	}
	assert.True(t, remindedWithArgs, "expected a reminder carrying the checkout arguments")
}

func TestRun_CheckoutStageAloneArmsGate(t *testing.T) {
	// Reaching checkout by keyword, with no checkout-class call yet,
	// still requires validation before the turn can complete.
	client := &scriptedLLM{steps: []*llm.ChatWithToolsResult{
		textReply("Sure, let's finish your purchase."),
		toolReply("call_1", "policy_validate_order", `{}`),
		textReply("Everything checks out; ready when you are."),
	}}
	loop, _ := newTestLoop(t, client)
	session := newTurnSession(NewSessionStore())

	result, err := loop.Run(context.Background(), session, "I want to checkout now")
	require.NoError(t, err)

	assert.Equal(t, config.StageCheckout, result.Stage)
	// The first plain-text reply did not end the turn.
	assert.Equal(t, "Everything checks out; ready when you are.", result.Answer)
	assert.GreaterOrEqual(t, result.Iterations, 2)
	assert.False(t, session.PendingValidation)

	// The reminder fell back to the empty structural stub since no
	// checkout-class call had supplied arguments.
	var reminded bool
	for _, msg := range session.Messages {
		if msg.Role == "system" && msg.Content != systemPrompt {
			assert.Contains(t, msg.Content, "policy_validate_order")
			assert.Contains(t, msg.Content, emptyValidationPayload)
			reminded = true
		}
	}
	assert.True(t, reminded, "expected a validation reminder in the history")
}

func TestRun_NeverCompletesWhileValidationPending(t *testing.T) {
	// The model creates an order and then stubbornly answers in text
	// without ever validating.
	steps := []*llm.ChatWithToolsResult{
		toolReply("call_1", "create_order", `{"user_id": 1}`),
	}
	for i := 0; i < MaxIterations; i++ {
		steps = append(steps, textReply("All done!"))
	}
	client := &scriptedLLM{steps: steps}
	loop, _ := newTestLoop(t, client)
	session := newTurnSession(NewSessionStore())

	result, err := loop.Run(context.Background(), session, "buy it now")
	require.NoError(t, err)

	assert.True(t, result.MaxIterationsReached)
	assert.True(t, result.ValidationPending)
	assert.Contains(t, result.Answer, maxIterationsMarker)
	assert.Equal(t, MaxIterations, result.Iterations)
	// The requirement survives the turn.
	assert.True(t, session.PendingValidation)
}

func TestRun_TriggerKeywordArmsGate(t *testing.T) {
	client := &scriptedLLM{steps: []*llm.ChatWithToolsResult{
		toolReply("call_1", "policy_validate_order", `{}`),
		textReply("The order document conforms."),
	}}
	loop, _ := newTestLoop(t, client)
	session := newTurnSession(NewSessionStore())

	result, err := loop.Run(context.Background(), session, "please validate my order data")
	require.NoError(t, err)

	assert.Equal(t, "The order document conforms.", result.Answer)
	assert.False(t, session.PendingValidation)
	require.Len(t, result.ToolLog, 1)
	assert.Equal(t, "policy_validate_order", result.ToolLog[0].Tool)
}

func TestRun_PendingValidationSurvivesTurns(t *testing.T) {
	loop, _ := newTestLoop(t, &scriptedLLM{steps: []*llm.ChatWithToolsResult{
		toolReply("call_1", "create_order", `{"user_id": 1}`),
		textReply("done"), textReply("done"), textReply("done"),
		textReply("done"), textReply("done"), textReply("done"),
	}})
	session := newTurnSession(NewSessionStore())

	result, err := loop.Run(context.Background(), session, "place the order")
	require.NoError(t, err)
	require.True(t, session.PendingValidation)
	_ = result

	// Next turn starts with the requirement still armed.
	client2 := &scriptedLLM{steps: []*llm.ChatWithToolsResult{
		toolReply("call_2", "policy_validate_order", `{}`),
		textReply("Validated; you are all set."),
	}}
	loop2, _ := newTestLoop(t, client2)
	result2, err := loop2.Run(context.Background(), session, "so is it confirmed?")
	require.NoError(t, err)
	assert.Equal(t, "Validated; you are all set.", result2.Answer)
	assert.False(t, session.PendingValidation)
}

func TestRun_LLMFailureIsTerminal(t *testing.T) {
	client := &scriptedLLM{err: fmt.Errorf("backend unavailable")}
	loop, _ := newTestLoop(t, client)
	session := newTurnSession(NewSessionStore())

	result, err := loop.Run(context.Background(), session, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLMCall)
	assert.Nil(t, result)
}

func TestRun_UnknownToolObservationFeedsBack(t *testing.T) {
	client := &scriptedLLM{steps: []*llm.ChatWithToolsResult{
		toolReply("call_1", "no_such_tool", `{}`),
		textReply("Sorry, let me try something else."),
	}}
	loop, _ := newTestLoop(t, client)
	session := newTurnSession(NewSessionStore())

	result, err := loop.Run(context.Background(), session, "hm")
	require.NoError(t, err)
	require.Len(t, result.ToolLog, 1)
	assert.Contains(t, result.ToolLog[0].Observation, "unknown tool")
	assert.Equal(t, "Sorry, let me try something else.", result.Answer)
}
