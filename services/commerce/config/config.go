// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the embedded conversation rule tables and the
// environment-driven server settings.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Conversation Rules
// =============================================================================

//go:embed conversation_rules.yaml
var defaultConversationRulesYAML []byte

// MaxYAMLFileSize bounds rule files; anything larger is a packaging error.
const MaxYAMLFileSize = 1 << 20

// =============================================================================
// Conversation Rule Types
// =============================================================================

// Conversation stages. Any-to-any transitions are allowed; the tracker
// only records what it observes.
const (
	StageGreeting  = "greeting"
	StageBrowsing  = "browsing"
	StageSelecting = "selecting"
	StageCart      = "cart"
	StageCheckout  = "checkout"
	StageTracking  = "tracking"
	StageService   = "service"
	StageIdle      = "idle"
)

// knownStages guards the rule tables against typos.
var knownStages = map[string]bool{
	StageGreeting:  true,
	StageBrowsing:  true,
	StageSelecting: true,
	StageCart:      true,
	StageCheckout:  true,
	StageTracking:  true,
	StageService:   true,
	StageIdle:      true,
}

// StagePattern maps user-text keywords to a conversation stage.
type StagePattern struct {
	Stage    string   `yaml:"stage"`
	Keywords []string `yaml:"keywords"`
}

// ConversationRules drives the validation gate's trigger detection and
// the stage tracker's inference.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type ConversationRules struct {
	// ValidationTriggers are user phrases that arm the checkout
	// validation gate (matched case-insensitively as substrings).
	ValidationTriggers []string `yaml:"validation_triggers"`

	// StagePatterns are checked in order; the first pattern with a
	// matching keyword wins.
	StagePatterns []StagePattern `yaml:"stage_patterns"`

	// StageTools maps a tool name to the stage its invocation implies.
	StageTools map[string]string `yaml:"stage_tools"`
}

// =============================================================================
// Loading
// =============================================================================

var (
	conversationRulesOnce sync.Once
	cachedRules           *ConversationRules
	rulesLoadErr          error
)

// GetConversationRules returns the embedded default rule tables, loaded
// once.
//
// Thread Safety: Safe for concurrent use via sync.Once.
func GetConversationRules() (*ConversationRules, error) {
	conversationRulesOnce.Do(func() {
		cachedRules, rulesLoadErr = LoadConversationRules(defaultConversationRulesYAML)
	})
	return cachedRules, rulesLoadErr
}

// LoadConversationRules parses and validates rule tables from YAML bytes.
//
// Outputs:
//   - *ConversationRules: The validated rules. Never nil on success.
//   - error: Non-nil if parsing or validation fails.
func LoadConversationRules(data []byte) (*ConversationRules, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("LoadConversationRules: empty YAML data")
	}
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadConversationRules: YAML data exceeds maximum size (%d > %d)",
			len(data), MaxYAMLFileSize)
	}

	var rules ConversationRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("LoadConversationRules: parsing YAML: %w", err)
	}

	if len(rules.ValidationTriggers) == 0 {
		return nil, fmt.Errorf("LoadConversationRules: validation_triggers must not be empty")
	}
	for i, p := range rules.StagePatterns {
		if !knownStages[p.Stage] {
			return nil, fmt.Errorf("LoadConversationRules: stage_patterns[%d]: unknown stage %q", i, p.Stage)
		}
		if len(p.Keywords) == 0 {
			return nil, fmt.Errorf("LoadConversationRules: stage_patterns[%d] (%s): keywords must not be empty", i, p.Stage)
		}
	}
	for tool, stage := range rules.StageTools {
		if !knownStages[stage] {
			return nil, fmt.Errorf("LoadConversationRules: stage_tools[%s]: unknown stage %q", tool, stage)
		}
	}

	slog.Info("conversation rules loaded",
		slog.Int("validation_triggers", len(rules.ValidationTriggers)),
		slog.Int("stage_patterns", len(rules.StagePatterns)),
		slog.Int("stage_tools", len(rules.StageTools)),
	)
	return &rules, nil
}

// =============================================================================
// Server Settings
// =============================================================================

// Defaults for environment-driven settings.
const (
	DefaultListenAddr    = ":8080"
	DefaultDBPath        = "commerce.db"
	DefaultChatRateLimit = 2.0
	DefaultChatRateBurst = 5
)

// ServerConfig carries the serve-command settings. LLM settings
// (OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL) are read by the llm
// package directly.
type ServerConfig struct {
	ListenAddr    string
	DBPath        string
	SeedDemoData  bool
	ChatRateLimit float64
	ChatRateBurst int
}

// ServerConfigFromEnv builds the server settings from environment
// variables, falling back to defaults.
//
// Recognized variables: COMMERCE_LISTEN_ADDR, COMMERCE_DB_PATH,
// COMMERCE_SEED_DEMO, COMMERCE_CHAT_RATE_LIMIT, COMMERCE_CHAT_RATE_BURST.
func ServerConfigFromEnv() ServerConfig {
	cfg := ServerConfig{
		ListenAddr:    DefaultListenAddr,
		DBPath:        DefaultDBPath,
		ChatRateLimit: DefaultChatRateLimit,
		ChatRateBurst: DefaultChatRateBurst,
	}
	if addr := os.Getenv("COMMERCE_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if path := os.Getenv("COMMERCE_DB_PATH"); path != "" {
		cfg.DBPath = path
	}
	if seed := os.Getenv("COMMERCE_SEED_DEMO"); seed != "" {
		if b, err := strconv.ParseBool(seed); err == nil {
			cfg.SeedDemoData = b
		}
	}
	if limit := os.Getenv("COMMERCE_CHAT_RATE_LIMIT"); limit != "" {
		if f, err := strconv.ParseFloat(limit, 64); err == nil && f > 0 {
			cfg.ChatRateLimit = f
		}
	}
	if burst := os.Getenv("COMMERCE_CHAT_RATE_BURST"); burst != "" {
		if n, err := strconv.Atoi(burst); err == nil && n > 0 {
			cfg.ChatRateBurst = n
		}
	}
	return cfg
}
