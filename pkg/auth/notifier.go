// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"context"

	"github.com/edusuite/platform/internal/logging"
)

// NotifierInterface receives password-reset tokens for out-of-band
// delivery. Delivery mechanics live with the implementation.
type NotifierInterface interface {
	PasswordReset(ctx context.Context, email, token, schoolName string) error
}

// LogNotifier writes reset notifications to the log. It stands in until
// a mail transport is configured.
type LogNotifier struct {
	logger logging.LoggerInterface
}

func NewLogNotifier(logger logging.LoggerInterface) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) PasswordReset(_ context.Context, email, token, schoolName string) error {
	n.logger.Infof("password reset for %s at %s, token %s", email, schoolName, token)
	return nil
}
