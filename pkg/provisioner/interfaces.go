// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package provisioner

import (
	"context"
)

//go:generate mockgen -build_flags=--mod=mod -package provisioner -destination ./mock_provisioner.go -source=./interfaces.go

type ServiceInterface interface {
	Provision(ctx context.Context, req *Request) (*Report, error)
}

// NotifierInterface hands freshly created admin credentials off for
// delivery. Failures are logged and never fail the provisioning run.
type NotifierInterface interface {
	AdminCredentials(ctx context.Context, email, schoolName, loginURL string) error
}
