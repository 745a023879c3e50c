// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package migrations carries the platform database schema. Tenant
// database schemas are built by the provisioner, not by goose.
package migrations

import "embed"

//go:embed *.sql
var EmbedMigrations embed.FS
