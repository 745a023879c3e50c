// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	testCases := []struct {
		name     string
		granted  []string
		required string
		expected bool
	}{
		{name: "exact match", granted: []string{"student.read"}, required: "student.read", expected: true},
		{name: "exact mismatch", granted: []string{"student.read"}, required: "student.write", expected: false},
		{name: "global wildcard", granted: []string{"*"}, required: "backup.restore", expected: true},
		{name: "prefix wildcard", granted: []string{"student.*"}, required: "student.read", expected: true},
		{name: "prefix wildcard deep", granted: []string{"student.*"}, required: "student.photo.upload", expected: true},
		{name: "prefix wildcard covers bare prefix", granted: []string{"student.*"}, required: "student", expected: true},
		{name: "prefix wildcard wrong branch", granted: []string{"student.*"}, required: "fee.collect", expected: false},
		{name: "prefix is not substring match", granted: []string{"student.*"}, required: "students.read", expected: false},
		{name: "several grants", granted: []string{"fee.*", "attendance.read"}, required: "attendance.read", expected: true},
		{name: "no grants", granted: nil, required: "student.read", expected: false},
		{name: "empty required", granted: []string{"*"}, required: "", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, HasPermission(tc.granted, tc.required))
		})
	}
}
