// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package main

import "github.com/edusuite/platform/cmd"

func main() {
	cmd.Execute()
}
