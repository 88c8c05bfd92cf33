// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import "fmt"

// ValidationError reports a business invariant violation detected before
// any side effect: empty item list, unknown product or user, insufficient
// stock, unresolved price, or structural-check non-conformance. The
// order-creation pipeline guarantees zero partial writes when one is
// returned.
type ValidationError struct {
	Msg string

	// Report carries the structural-check report when the violation came
	// from document validation.
	Report string
}

func (e *ValidationError) Error() string {
	return "engine: " + e.Msg
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
