// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import "strings"

// HasPermission reports whether a granted permission set covers the
// required permission. Grants are exact names, the global wildcard "*",
// or a dotted prefix wildcard such as "student.*" which covers
// "student.read" and "student.photo.upload" alike.
func HasPermission(granted []string, required string) bool {
	if required == "" {
		return false
	}
	for _, g := range granted {
		if g == "*" || g == required {
			return true
		}
		if prefix, ok := strings.CutSuffix(g, ".*"); ok {
			if required == prefix || strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}
