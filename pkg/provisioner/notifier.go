// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package provisioner

import (
	"context"

	"github.com/edusuite/platform/internal/logging"
)

// LogNotifier records credential hand-offs in the log instead of sending
// mail. It stands in wherever no mail transport is configured.
type LogNotifier struct {
	from   string
	logger logging.LoggerInterface
}

var _ NotifierInterface = (*LogNotifier)(nil)

func NewLogNotifier(from string, logger logging.LoggerInterface) *LogNotifier {
	return &LogNotifier{from: from, logger: logger}
}

func (n *LogNotifier) AdminCredentials(_ context.Context, email, schoolName, loginURL string) error {
	n.logger.Infof("admin credentials notice for %s (%s): login at %s, from %s", email, schoolName, loginURL, n.from)
	return nil
}
