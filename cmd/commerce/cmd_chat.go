// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// chatServerURL, chatUserID, and chatSessionID hold flag values for the
// chat command.
var (
	chatServerURL string
	chatUserID    uint
	chatSessionID string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Interactive chat with a running commerce server",
	Run:   runChatCommand,
}

func init() {
	chatCmd.Flags().StringVar(&chatServerURL, "server", "", "Server base URL (default COMMERCE_SERVER_URL or http://localhost:8080)")
	chatCmd.Flags().UintVar(&chatUserID, "user", 1, "Customer id to chat as")
	chatCmd.Flags().StringVar(&chatSessionID, "resume", "", "Resume an existing session id")
}

// chatTurnRequest is the payload for POST /api/v1/chat.
type chatTurnRequest struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    uint   `json:"user_id"`
	Message   string `json:"message"`
}

// chatTurnResponse mirrors the server's chat response.
type chatTurnResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
	Stage     string `json:"stage"`
	ToolLog   []struct {
		Tool   string `json:"tool"`
		Failed bool   `json:"failed"`
	} `json:"tool_log"`
	MaxIterationsReached bool `json:"max_iterations_reached"`
}

func getCommerceBaseURL() string {
	if chatServerURL != "" {
		return strings.TrimRight(chatServerURL, "/")
	}
	if env := os.Getenv("COMMERCE_SERVER_URL"); env != "" {
		return strings.TrimRight(env, "/")
	}
	return "http://localhost:8080"
}

func runChatCommand(_ *cobra.Command, args []string) {
	baseURL := getCommerceBaseURL()
	chatURL := baseURL + "/api/v1/chat"
	client := &http.Client{Timeout: 5 * time.Minute}
	sessionID := chatSessionID

	fmt.Printf("Connected to %s as customer %d. Type 'exit' to quit.\n", baseURL, chatUserID)

	scanner := bufio.NewScanner(os.Stdin)
	// A message given as arguments opens the conversation.
	pending := strings.TrimSpace(strings.Join(args, " "))
	for {
		if pending == "" {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			pending = strings.TrimSpace(scanner.Text())
			if pending == "" {
				continue
			}
			if pending == "exit" || pending == "quit" || pending == "q" {
				fmt.Println("Goodbye.")
				break
			}
		}

		done := make(chan bool)
		go showSpinner("Thinking", done)
		resp, err := sendChatTurn(client, chatURL, chatTurnRequest{
			SessionID: sessionID,
			UserID:    chatUserID,
			Message:   pending,
		})
		done <- true
		fmt.Print("\r                                        \r")
		pending = ""

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		sessionID = resp.SessionID

		for _, call := range resp.ToolLog {
			status := "ok"
			if call.Failed {
				status = "error"
			}
			fmt.Printf("  [%s: %s]\n", call.Tool, status)
		}
		fmt.Printf("\n%s\n\n", resp.Answer)
	}

	if sessionID != "" {
		fmt.Printf("[session: %s]\n", sessionID)
	}
}

func sendChatTurn(client *http.Client, url string, req chatTurnRequest) (*chatTurnResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("commerce server unavailable at %s: %w", url, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("server error (%s): %s", errResp.Code, errResp.Error)
		}
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var out chatTurnResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// showSpinner animates while a turn is in flight.
func showSpinner(msg string, done chan bool) {
	chars := []string{"▖", "▘", "▝", "▗"}
	i := 0

	fmt.Print("\033[?25l")
	defer fmt.Print("\033[?25h")

	for {
		select {
		case <-done:
			return
		default:
			fmt.Printf("\r%s  %s... \033[K", chars[i%len(chars)], msg)
			i++
			time.Sleep(100 * time.Millisecond)
		}
	}
}
