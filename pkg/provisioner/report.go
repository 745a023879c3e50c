// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package provisioner

// StepResult records the outcome of a single catalog step.
type StepResult struct {
	Name  string   `json:"name"`
	Kind  StepKind `json:"kind"`
	OK    bool     `json:"ok"`
	Error string   `json:"error,omitempty"`
}

// Report summarizes a provisioning run. A run can complete with a
// non-empty Failed list: individual catalog steps are tolerated so a
// single bad statement does not strand the tenant.
type Report struct {
	Database        string       `json:"database"`
	TablesAttempted int          `json:"tables_attempted"`
	TablesCreated   int          `json:"tables_created"`
	Steps           []StepResult `json:"steps"`
	Failed          []string     `json:"failed,omitempty"`
	AdminUserID     int64        `json:"admin_user_id"`
}

func (r *Report) record(step Step, err error) {
	res := StepResult{Name: step.Name, Kind: step.Kind, OK: err == nil}
	if err != nil {
		res.Error = err.Error()
		r.Failed = append(r.Failed, step.Name)
	}
	if step.Kind == KindTable {
		r.TablesAttempted++
		if err == nil {
			r.TablesCreated++
		}
	}
	r.Steps = append(r.Steps, res)
}
