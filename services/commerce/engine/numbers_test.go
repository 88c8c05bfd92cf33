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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumbers(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC)

	assert.Equal(t, "ORD202501020304050007", FormatOrderNo(ts, 7))
	assert.Equal(t, "SF20250102030405", FormatTrackingNo(ts))
	assert.Equal(t, "TXN20250102030405123456", FormatPaymentNo(ts))
	assert.Equal(t, "TKT202501020304050042", FormatTicketNo(ts, 42))
	assert.Equal(t, "RTN202501020304050011", FormatReturnNo(ts, 11))
}

func TestParseOrderRef(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		wantID  uint
		wantNo  string
		wantErr bool
	}{
		{"int id", 42, 42, "", false},
		{"float id from json", float64(42), 42, "", false},
		{"numeric string id", "42", 42, "", false},
		{"order number", "ORD202501020304050007", 0, "ORD202501020304050007", false},
		{"lowercase prefix", "ord202501020304050007", 0, "ORD202501020304050007", false},
		{"bare digits restored", "202501020304050007", 0, "ORD202501020304050007", false},
		{"short digit string is id", "12345678901234", 12345678901234, "", false},
		{"fractional number", 1.5, 0, "", true},
		{"zero id", 0, 0, "", true},
		{"empty string", "  ", 0, "", true},
		{"garbage", "order-42", 0, "", true},
		{"unsupported type", []int{1}, 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseOrderRef(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, ref.ID)
			assert.Equal(t, tt.wantNo, ref.OrderNo)
		})
	}
}
