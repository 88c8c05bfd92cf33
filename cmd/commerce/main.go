// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command commerce runs the conversational shopping assistant: an API
// server exposing the chat endpoint over the catalog, order engine, and
// policy tables, plus a terminal client for talking to it.
//
// Usage:
//
//	go run ./cmd/commerce serve --seed-demo
//	go run ./cmd/commerce chat --user 1
//
// The server needs an OpenAI-compatible backend:
//
//	OPENAI_API_KEY=... OPENAI_MODEL=gpt-4o-mini go run ./cmd/commerce serve
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/healthz
//
//	# List the registered tools
//	curl http://localhost:8080/api/v1/capabilities | jq
//
//	# One conversation turn
//	curl -X POST http://localhost:8080/api/v1/chat \
//	  -H "Content-Type: application/json" \
//	  -d '{"user_id": 1, "message": "I am looking for wireless earbuds"}'
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "commerce",
	Short: "Conversational shopping assistant server and CLI",
}

func main() {
	rootCmd.AddCommand(serveCmd, chatCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
