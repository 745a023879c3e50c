// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package provisioner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogStepNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, step := range Catalog() {
		assert.False(t, seen[step.Name], "duplicate step name %q", step.Name)
		seen[step.Name] = true
	}
}

func TestCatalogOrdering(t *testing.T) {
	lastKind := map[StepKind]int{}
	for i, step := range Catalog() {
		lastKind[step.Kind] = i
	}

	firstDefault := len(Catalog())
	firstIndex := len(Catalog())
	for i, step := range Catalog() {
		if step.Kind == KindDefault && i < firstDefault {
			firstDefault = i
		}
		if step.Kind == KindIndex && i < firstIndex {
			firstIndex = i
		}
	}

	// Tables first, then default rows, then indexes.
	assert.Less(t, lastKind[KindTable], firstDefault)
	assert.Less(t, lastKind[KindDefault], firstIndex)
}

func TestCatalogTablesMatchTheirStatements(t *testing.T) {
	for _, step := range Catalog() {
		switch step.Kind {
		case KindTable:
			assert.Contains(t, step.SQL, "CREATE TABLE "+step.Name, "step %q", step.Name)
		case KindDefault:
			assert.True(t, strings.HasPrefix(strings.TrimSpace(step.SQL), "INSERT INTO"), "step %q", step.Name)
		case KindIndex:
			assert.Contains(t, step.SQL, "CREATE INDEX "+step.Name, "step %q", step.Name)
		}
	}
}

func TestCatalogReferencedTablesExist(t *testing.T) {
	defined := make(map[string]bool)
	for _, step := range Catalog() {
		if step.Kind != KindTable {
			continue
		}
		// REFERENCES clauses may only point at tables defined earlier;
		// reference resolution happens at CREATE TABLE time regardless of
		// trigger settings.
		for _, ref := range referencedTables(step.SQL) {
			assert.True(t, defined[ref], "step %q references %q before it is defined", step.Name, ref)
		}
		defined[step.Name] = true
	}
}

func referencedTables(ddl string) []string {
	var refs []string
	rest := ddl
	for {
		i := strings.Index(rest, "REFERENCES ")
		if i < 0 {
			return refs
		}
		rest = rest[i+len("REFERENCES "):]
		end := strings.IndexByte(rest, '(')
		if end < 0 {
			return refs
		}
		refs = append(refs, strings.TrimSpace(rest[:end]))
	}
}
