// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConversationRules_EmbeddedDefaults(t *testing.T) {
	rules, err := GetConversationRules()
	require.NoError(t, err)

	assert.Contains(t, rules.ValidationTriggers, "validate")
	assert.Contains(t, rules.ValidationTriggers, "验证订单")

	stages := make(map[string]bool)
	for _, p := range rules.StagePatterns {
		stages[p.Stage] = true
	}
	for _, want := range []string{
		StageGreeting, StageBrowsing, StageSelecting, StageCart,
		StageCheckout, StageTracking, StageService,
	} {
		assert.True(t, stages[want], "missing stage pattern for %s", want)
	}

	assert.Equal(t, StageCheckout, rules.StageTools["create_order"])
	assert.Equal(t, StageCheckout, rules.StageTools["policy_validate_order"])
	assert.Equal(t, StageService, rules.StageTools["process_return"])
}

func TestLoadConversationRules_Validation(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty data", "", "empty YAML data"},
		{"no triggers", "stage_patterns: []\n", "validation_triggers must not be empty"},
		{
			"unknown stage in pattern",
			"validation_triggers: [validate]\nstage_patterns:\n  - stage: haggling\n    keywords: [deal]\n",
			`unknown stage "haggling"`,
		},
		{
			"pattern without keywords",
			"validation_triggers: [validate]\nstage_patterns:\n  - stage: cart\n    keywords: []\n",
			"keywords must not be empty",
		},
		{
			"unknown stage in tool map",
			"validation_triggers: [validate]\nstage_tools:\n  view_cart: lounge\n",
			`unknown stage "lounge"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConversationRules([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestServerConfigFromEnv(t *testing.T) {
	cfg := ServerConfigFromEnv()
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.False(t, cfg.SeedDemoData)

	t.Setenv("COMMERCE_LISTEN_ADDR", "127.0.0.1:9090")
	t.Setenv("COMMERCE_DB_PATH", "/tmp/shop.db")
	t.Setenv("COMMERCE_SEED_DEMO", "true")
	t.Setenv("COMMERCE_CHAT_RATE_LIMIT", "0.5")
	t.Setenv("COMMERCE_CHAT_RATE_BURST", "3")

	cfg = ServerConfigFromEnv()
	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/shop.db", cfg.DBPath)
	assert.True(t, cfg.SeedDemoData)
	assert.InDelta(t, 0.5, cfg.ChatRateLimit, 1e-9)
	assert.Equal(t, 3, cfg.ChatRateBurst)
}
