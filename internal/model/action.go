package model

import "time"

// ApprovalState is the lifecycle state of a pending action.
type ApprovalState string

// Approval states. Approved and rejected are terminal.
const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// PendingAction wraps a fix awaiting an operator decision.
type PendingAction struct {
	CreatedAt  time.Time
	Fix        Fix
	ID         string
	Identifier string
	Summary    string
	State      ApprovalState
	Anomaly    *Anomaly
}

// AutoFixable reports whether the action came from an auto-fixable anomaly.
func (p PendingAction) AutoFixable() bool {
	return p.Anomaly != nil && p.Anomaly.AutoFixable
}

// ActionStatus is the per-item outcome of applying a batch.
type ActionStatus string

// Action status constants.
const (
	ActionApplied ActionStatus = "applied"
	ActionFailed  ActionStatus = "failed"
	ActionSkipped ActionStatus = "skipped"
)

// Change is one field-level mutation performed by an action.
type Change struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// ActionResult reports what happened to one action.
type ActionResult struct {
	AppliedAt  time.Time
	Err        error
	ActionID   string
	Identifier string
	Kind       FixKind
	Status     ActionStatus
	Changes    []Change
}
