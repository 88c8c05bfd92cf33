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
	"github.com/gin-gonic/gin"
)

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the commerce API endpoints on a router group.
//
// Endpoints:
//   - POST /chat          - run one conversation turn
//   - GET  /sessions/:id  - inspect a live session
//   - GET  /capabilities  - list the registered tools
//
// Health and metrics endpoints live at the router root, not under the
// API group; the server command registers those.
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.POST("/chat", handlers.HandleChat)
	rg.GET("/sessions/:id", handlers.HandleSession)
	rg.GET("/capabilities", handlers.HandleCapabilities)
}
