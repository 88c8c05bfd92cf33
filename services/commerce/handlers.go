// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package commerce

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/agent"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/tools"
	"github.com/AleutianAI/AleutianCommerce/services/llm"
)

// =============================================================================
// HTTP Handlers
// =============================================================================

// ErrorResponse is the error envelope for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ChatRequest is the POST /api/v1/chat body. A missing session_id
// starts a new conversation.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	UserID    uint   `json:"user_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

// ChatResponse is the chat turn result.
type ChatResponse struct {
	SessionID            string                 `json:"session_id"`
	Answer               string                 `json:"answer"`
	Stage                string                 `json:"stage"`
	ToolLog              []agent.ToolCallRecord `json:"tool_log,omitempty"`
	Iterations           int                    `json:"iterations"`
	MaxIterationsReached bool                   `json:"max_iterations_reached,omitempty"`
	ValidationPending    bool                   `json:"validation_pending,omitempty"`
}

// SessionResponse is the GET /api/v1/sessions/:id body.
type SessionResponse struct {
	ID                string    `json:"id"`
	UserID            uint      `json:"user_id"`
	Stage             string    `json:"stage"`
	StageHistory      []string  `json:"stage_history"`
	MessageCount      int       `json:"message_count"`
	PendingValidation bool      `json:"pending_validation"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CapabilityInfo describes one registered tool.
type CapabilityInfo struct {
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Category      tools.ToolCategory `json:"category"`
	SideEffects   bool               `json:"side_effects"`
	CheckoutClass bool               `json:"checkout_class,omitempty"`
	Validation    bool               `json:"validation,omitempty"`
	Schema        llm.ToolDef        `json:"schema"`
}

// Handlers carries the HTTP layer over the service, including the
// per-session chat rate limiters.
//
// Thread Safety: Safe for concurrent use.
type Handlers struct {
	svc *Service

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewHandlers creates the HTTP handlers for a service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{
		svc:      svc,
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiterFor returns the rate limiter for a session (or user, before a
// session exists).
func (h *Handlers) limiterFor(key string) *rate.Limiter {
	h.limiterMu.Lock()
	defer h.limiterMu.Unlock()
	l, ok := h.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(h.svc.cfg.ChatRateLimit), h.svc.cfg.ChatRateBurst)
		h.limiters[key] = l
	}
	return l
}

// HandleChat handles POST /api/v1/chat.
//
// Description:
//
//	Runs one conversation turn: resolves or creates the session, runs
//	the bounded orchestration loop, and returns the answer with the
//	stage and the tool log. Model-backend failures map to 502.
//
// Thread Safety: Safe for concurrent use; concurrent turns on one
// session serialize on the session lock.
func (h *Handlers) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "user_id and message are required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	limiterKey := req.SessionID
	if limiterKey == "" {
		limiterKey = "user:" + strconv.FormatUint(uint64(req.UserID), 10)
	}
	if !h.limiterFor(limiterKey).Allow() {
		recordTurn("rate_limited", 0)
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "too many chat requests for this session",
			Code:  "RATE_LIMITED",
		})
		return
	}

	session, created := h.svc.sessions.GetOrCreate(req.SessionID, req.UserID)
	if created {
		slog.Info("session created",
			slog.String("session_id", session.ID),
			slog.Uint64("user_id", uint64(req.UserID)),
		)
	}

	start := time.Now()
	result, err := h.svc.loop.Run(c.Request.Context(), session, req.Message)
	if err != nil {
		recordTurn("llm_error", time.Since(start).Seconds())
		slog.Error("chat turn failed",
			slog.String("session_id", session.ID),
			slog.String("error", llm.SafeLogString(err.Error())),
		)
		status := http.StatusInternalServerError
		code := "INTERNAL"
		if errors.Is(err, agent.ErrLLMCall) {
			status = http.StatusBadGateway
			code = "LLM_UNAVAILABLE"
		}
		c.JSON(status, ErrorResponse{Error: "chat turn failed", Code: code})
		return
	}

	outcome := "ok"
	if result.MaxIterationsReached {
		outcome = "max_iterations"
	}
	recordTurn(outcome, time.Since(start).Seconds())
	for _, record := range result.ToolLog {
		recordToolInvocation(record.Tool, record.Failed)
	}

	c.JSON(http.StatusOK, ChatResponse{
		SessionID:            session.ID,
		Answer:               result.Answer,
		Stage:                result.Stage,
		ToolLog:              result.ToolLog,
		Iterations:           result.Iterations,
		MaxIterationsReached: result.MaxIterationsReached,
		ValidationPending:    result.ValidationPending,
	})
}

// HandleSession handles GET /api/v1/sessions/:id.
func (h *Handlers) HandleSession(c *gin.Context) {
	session, ok := h.svc.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "unknown session",
			Code:  "SESSION_NOT_FOUND",
		})
		return
	}

	session.Lock()
	resp := SessionResponse{
		ID:                session.ID,
		UserID:            session.UserID,
		Stage:             session.Stage,
		StageHistory:      append([]string(nil), session.StageHistory...),
		MessageCount:      len(session.Messages),
		PendingValidation: session.PendingValidation,
		CreatedAt:         session.CreatedAt,
		UpdatedAt:         session.UpdatedAt,
	}
	session.Unlock()

	c.JSON(http.StatusOK, resp)
}

// HandleCapabilities handles GET /api/v1/capabilities.
func (h *Handlers) HandleCapabilities(c *gin.Context) {
	d := h.svc.dispatcher
	capabilities := make([]CapabilityInfo, 0, len(d.Names()))
	for _, name := range d.Names() {
		tool, ok := d.Lookup(name)
		if !ok {
			continue
		}
		def := tool.Definition()
		capabilities = append(capabilities, CapabilityInfo{
			Name:          def.Name,
			Description:   def.Description,
			Category:      def.Category,
			SideEffects:   def.SideEffects,
			CheckoutClass: def.CheckoutClass,
			Validation:    def.Validation,
			Schema:        def.LLMDef(),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"count":        len(capabilities),
		"capabilities": capabilities,
	})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": h.svc.sessions.Len(),
		"tools":    len(h.svc.dispatcher.Names()),
	})
}
