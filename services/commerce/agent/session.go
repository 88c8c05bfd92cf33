// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent holds the conversation state and the bounded
// tool-orchestration loop that drives the shopping assistant: sessions,
// the checkout validation gate, the stage tracker, and the loop itself.
package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/config"
	"github.com/AleutianAI/AleutianCommerce/services/llm"
)

// =============================================================================
// Conversation Sessions
// =============================================================================

// ToolCallRecord is one dispatched tool call in a turn's log.
type ToolCallRecord struct {
	Iteration   int    `json:"iteration"`
	Tool        string `json:"tool"`
	Arguments   string `json:"arguments"`
	Observation string `json:"observation"`
	Failed      bool   `json:"failed,omitempty"`
}

// Session is the per-conversation state. All gate and stage state is
// session-scoped; there is no process-wide orchestrator state to leak
// between customers.
//
// Thread Safety: A session is mutated only while its owning turn holds
// the session mutex; use Lock/Unlock around a whole turn.
type Session struct {
	ID        string            `json:"id"`
	UserID    uint              `json:"user_id"`
	Messages  []llm.ChatMessage `json:"messages"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Stage is the current conversation stage; StageHistory records
	// every observed transition in order.
	Stage        string   `json:"stage"`
	StageHistory []string `json:"stage_history"`

	// PendingValidation is set while a checkout-class completion awaits
	// the structural validation tool. PendingPayload is the suggested
	// argument payload for that tool. LastCheckoutArgs remembers the
	// most recent checkout-class tool arguments for payload defaulting.
	PendingValidation bool   `json:"pending_validation"`
	PendingPayload    string `json:"pending_payload,omitempty"`
	LastCheckoutArgs  string `json:"-"`

	mu sync.Mutex
}

// Lock takes the session for one full conversation turn.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session after a turn.
func (s *Session) Unlock() { s.mu.Unlock() }

// Append adds a message to the conversation history.
func (s *Session) Append(msg llm.ChatMessage) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
}

// SetStage records a stage transition; unchanged stages are not
// re-recorded.
func (s *Session) SetStage(stage string) {
	if stage == "" || stage == s.Stage {
		return
	}
	s.Stage = stage
	s.StageHistory = append(s.StageHistory, stage)
}

// SessionStore is an in-memory registry of live sessions.
//
// Thread Safety: Safe for concurrent use.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty session registry.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session with the given id, creating a fresh
// one when id is empty or unknown. The second return reports whether a
// new session was created.
func (st *SessionStore) GetOrCreate(id string, userID uint) (*Session, bool) {
	if id != "" {
		st.mu.RLock()
		s, ok := st.sessions[id]
		st.mu.RUnlock()
		if ok {
			return s, false
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if id != "" {
		if s, ok := st.sessions[id]; ok {
			return s, false
		}
	}
	now := time.Now()
	s := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		Stage:        config.StageGreeting,
		StageHistory: []string{config.StageGreeting},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	st.sessions[s.ID] = s
	return s, true
}

// Get returns the session with the given id.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Len reports the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
