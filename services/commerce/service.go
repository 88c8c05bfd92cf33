// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package commerce wires the shopping assistant together: storage,
// transaction engine, tool registry, the orchestration loop, and the
// HTTP surface that exposes them.
package commerce

import (
	"fmt"

	"github.com/AleutianAI/AleutianCommerce/services/commerce/agent"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/config"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/engine"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/store"
	"github.com/AleutianAI/AleutianCommerce/services/commerce/tools"
	"github.com/AleutianAI/AleutianCommerce/services/llm"
)

// =============================================================================
// Service Assembly
// =============================================================================

// ServiceConfig carries the collaborators the service is built from.
type ServiceConfig struct {
	// Store is the opened commerce database. Required.
	Store *store.Store

	// Client is the model backend for the conversation loop. Required.
	Client llm.ToolChatClient

	// Rules overrides the conversation rule tables; nil loads the
	// embedded defaults.
	Rules *config.ConversationRules

	// ChatRateLimit / ChatRateBurst bound per-session chat throughput.
	// Zero values fall back to the config defaults.
	ChatRateLimit float64
	ChatRateBurst int
}

// Service owns the assembled assistant.
//
// Thread Safety: Safe for concurrent use once constructed.
type Service struct {
	store      *store.Store
	engine     *engine.Engine
	dispatcher *tools.Dispatcher
	loop       *agent.Loop
	sessions   *agent.SessionStore
	cfg        ServiceConfig
}

// NewService assembles the full stack: transaction engine over the
// store, the complete tool registry, and the orchestration loop.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("commerce: ServiceConfig.Store is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("commerce: ServiceConfig.Client is required")
	}
	rules := cfg.Rules
	if rules == nil {
		var err error
		rules, err = config.GetConversationRules()
		if err != nil {
			return nil, fmt.Errorf("commerce: loading conversation rules: %w", err)
		}
	}
	if cfg.ChatRateLimit <= 0 {
		cfg.ChatRateLimit = config.DefaultChatRateLimit
	}
	if cfg.ChatRateBurst <= 0 {
		cfg.ChatRateBurst = config.DefaultChatRateBurst
	}

	eng := engine.New(cfg.Store, engine.NewSchemaValidator())
	dispatcher := buildDispatcher(cfg.Store, eng)

	return &Service{
		store:      cfg.Store,
		engine:     eng,
		dispatcher: dispatcher,
		loop:       agent.NewLoop(cfg.Client, dispatcher, rules),
		sessions:   agent.NewSessionStore(),
		cfg:        cfg,
	}, nil
}

// buildDispatcher registers the full tool set.
func buildDispatcher(s *store.Store, e *engine.Engine) *tools.Dispatcher {
	d := tools.NewDispatcher()
	d.MustRegister(
		// Catalog
		tools.NewSearchProductsTool(s),
		tools.NewProductDetailTool(s),
		tools.NewCheckStockTool(s),
		tools.NewRecommendationsTool(s),
		tools.NewReviewsTool(s),
		// Cart
		tools.NewAddToCartTool(s),
		tools.NewViewCartTool(s),
		tools.NewRemoveFromCartTool(s),
		// Orders
		tools.NewCreateOrderTool(s, e),
		tools.NewOrderDetailTool(e),
		tools.NewCancelOrderTool(e),
		tools.NewUserOrdersTool(s),
		// Payment & shipment
		tools.NewProcessPaymentTool(e),
		tools.NewTrackShipmentTool(s, e),
		// Service
		tools.NewSupportTicketTool(s),
		tools.NewProcessReturnTool(e),
		tools.NewUserProfileTool(s),
		// Policy
		tools.NewExplainPolicyTool(s),
		tools.NewValidateOrderTool(e, engine.NewSchemaValidator()),
	)
	return d
}

// Dispatcher exposes the tool registry (capability listing, tests).
func (s *Service) Dispatcher() *tools.Dispatcher { return s.dispatcher }

// Engine exposes the transaction engine (CLI, tests).
func (s *Service) Engine() *engine.Engine { return s.engine }

// Sessions exposes the session registry.
func (s *Service) Sessions() *agent.SessionStore { return s.sessions }

// Loop exposes the orchestration loop (CLI chat).
func (s *Service) Loop() *agent.Loop { return s.loop }
