// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianCommerce/services/llm"
)

// =============================================================================
// Tool Dispatcher
// =============================================================================

var dispatcherTracer = otel.Tracer("commerce.tools")

// ToolInfo identifies the capability an observation came from.
type ToolInfo struct {
	CapabilityID string `json:"capability_id"`
}

// Observation is the envelope handed back to the model after every tool
// call. Exactly one of Result and Error is set; failures are data, not
// conversation-ending conditions.
type Observation struct {
	ToolInfo ToolInfo `json:"tool_info"`
	Result   any      `json:"result,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// JSON renders the observation for the tool-result message. Marshaling an
// observation cannot realistically fail (all payloads originate from
// marshalable tool outputs), but a fallback envelope is produced anyway.
func (o *Observation) JSON() string {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Sprintf(`{"tool_info":{"capability_id":%q},"error":"observation marshaling failed"}`,
			o.ToolInfo.CapabilityID)
	}
	return string(data)
}

// Dispatcher holds the typed tool registry and routes model tool calls.
//
// Description:
//
//	Tools register once at startup; Invoke then normalizes the model's
//	raw argument payload (JSON with a YAML fallback, wrapper unwrapping,
//	defaults, required checks, arithmetic coercion) and executes the
//	tool under its declared timeout.
//
// Thread Safety: Register is not safe for concurrent use and must finish
// before serving. Invoke is safe for concurrent use.
type Dispatcher struct {
	tools  map[string]Tool
	logger *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		tools:  make(map[string]Tool),
		logger: slog.Default(),
	}
}

// Register adds a tool to the registry. Duplicate names are a wiring bug
// and are rejected.
func (d *Dispatcher) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tools: tool has empty name")
	}
	if _, exists := d.tools[name]; exists {
		return fmt.Errorf("tools: duplicate tool registration: %s", name)
	}
	d.tools[name] = t
	return nil
}

// MustRegister registers a set of tools, panicking on duplicates. Used at
// startup where a duplicate is unrecoverable.
func (d *Dispatcher) MustRegister(ts ...Tool) {
	for _, t := range ts {
		if err := d.Register(t); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the registered tool by name.
func (d *Dispatcher) Lookup(name string) (Tool, bool) {
	t, ok := d.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.tools))
	for name := range d.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the wire-format schemas of all registered tools,
// sorted by name so the model sees a stable ordering.
func (d *Dispatcher) Definitions() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(d.tools))
	for _, name := range d.Names() {
		defs = append(defs, d.tools[name].Definition().LLMDef())
	}
	return defs
}

// Invoke executes one model tool call and always returns an observation.
//
// Description:
//
//	Resolves the tool, normalizes the raw arguments against its schema,
//	and executes it under the tool's declared timeout. Every failure
//	mode (unknown tool, bad arguments, execution error) produces an
//	error observation rather than a Go error, so the conversation loop
//	can feed it back to the model.
func (d *Dispatcher) Invoke(ctx context.Context, name, rawArgs string) *Observation {
	ctx, span := dispatcherTracer.Start(ctx, "Dispatcher.Invoke",
		trace.WithAttributes(attribute.String("tool", name)),
	)
	defer span.End()

	obs := &Observation{ToolInfo: ToolInfo{CapabilityID: name}}

	tool, ok := d.tools[name]
	if !ok {
		obs.Error = fmt.Sprintf("unknown tool %q; available tools: %s",
			name, strings.Join(d.Names(), ", "))
		span.SetAttributes(attribute.Bool("unknown_tool", true))
		return obs
	}
	def := tool.Definition()

	params, err := d.normalizeArguments(def, rawArgs)
	if err != nil {
		obs.Error = fmt.Sprintf("invalid arguments for %s: %v", name, err)
		d.logger.Warn("tool argument normalization failed",
			slog.String("tool", name),
			slog.String("error", err.Error()),
		)
		return obs
	}

	if def.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, def.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := tool.Execute(ctx, params)
	if err != nil {
		obs.Error = fmt.Sprintf("tool %s failed: %v", name, llm.SafeLogString(err.Error()))
		span.RecordError(err)
		d.logger.Error("tool execution fault",
			slog.String("tool", name),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return obs
	}

	span.SetAttributes(
		attribute.Bool("success", result.Success),
		attribute.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	if !result.Success {
		obs.Error = result.Error
		return obs
	}

	if result.Output != nil {
		obs.Result = result.Output
	} else {
		obs.Result = result.OutputText
	}
	return obs
}

// normalizeArguments parses the raw argument payload and conforms it to
// the tool's schema.
//
// Description:
//
//	Parsing is lenient in the ways models actually misbehave: the
//	payload may be JSON, double-encoded JSON, or YAML-ish relaxed
//	syntax; it may be wrapped in {"_raw": "..."} by some runtimes.
//	After parsing, defaults are filled in, required parameters are
//	enforced, and numeric parameters given as arithmetic-expression
//	strings are evaluated.
func (d *Dispatcher) normalizeArguments(def ToolDefinition, rawArgs string) (map[string]any, error) {
	params, err := decodeArguments(rawArgs)
	if err != nil {
		return nil, err
	}

	// Unwrap {"_raw": "<payload>"} envelopes.
	if inner, ok := params["_raw"]; ok && len(params) == 1 {
		if s, isStr := inner.(string); isStr {
			params, err = decodeArguments(s)
			if err != nil {
				return nil, fmt.Errorf("unwrapping _raw payload: %w", err)
			}
		}
	}

	for name, p := range def.Parameters {
		value, present := params[name]

		if !present || value == nil {
			if p.Default != nil {
				params[name] = p.Default
				continue
			}
			if p.Required {
				return nil, fmt.Errorf("missing required parameter %q", name)
			}
			continue
		}

		// Arithmetic coercion for numeric parameters.
		if p.Type == ParamTypeInt || p.Type == ParamTypeFloat {
			if s, isStr := value.(string); isStr && looksLikeArithmetic(s) {
				v, evalErr := EvalArithmetic(s)
				if evalErr != nil {
					return nil, fmt.Errorf("parameter %q: evaluating %q: %w", name, s, evalErr)
				}
				params[name] = v
			}
		}
	}

	return params, nil
}

// decodeArguments parses a raw argument string as JSON first, then as
// YAML. Models that emit single-quoted or unquoted-key payloads fail the
// JSON pass but survive the YAML pass.
func decodeArguments(rawArgs string) (map[string]any, error) {
	rawArgs = strings.TrimSpace(rawArgs)
	if rawArgs == "" || rawArgs == "null" {
		return map[string]any{}, nil
	}

	// Double-encoded payload: a JSON string containing the real object.
	if strings.HasPrefix(rawArgs, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(rawArgs), &inner); err == nil {
			rawArgs = strings.TrimSpace(inner)
			if rawArgs == "" {
				return map[string]any{}, nil
			}
		}
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &params); err == nil {
		if params == nil {
			params = map[string]any{}
		}
		return params, nil
	}

	if err := yaml.Unmarshal([]byte(rawArgs), &params); err != nil || params == nil {
		return nil, fmt.Errorf("arguments are neither valid JSON nor YAML: %s", llm.SafeLogString(rawArgs))
	}
	return params, nil
}
