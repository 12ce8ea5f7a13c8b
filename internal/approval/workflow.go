// Package approval turns anomalies into operator-gated actions and applies them.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/catalog-bridge/internal/common"
	"github.com/Veraticus/catalog-bridge/internal/model"
)

// DefaultWorkers bounds parallel execution across identifiers.
const DefaultWorkers = 4

// Executor performs the side effect of one approved action.
type Executor interface {
	Execute(ctx context.Context, action model.PendingAction) ([]model.Change, error)
}

// Journal receives the outcome of every executed action.
type Journal interface {
	RecordAction(ctx context.Context, action model.PendingAction, result model.ActionResult) error
}

// ProgressFunc reports how many of the executing actions have finished.
type ProgressFunc func(done, total int)

// Options configures a Workflow.
type Options struct {
	Confirmer     Confirmer
	Journal       Journal
	Progress      ProgressFunc
	Now           func() time.Time
	BulkThreshold int
	Workers       int
}

// Workflow holds the pending action set for one pass.
type Workflow struct {
	executor Executor
	actions  map[string]*model.PendingAction
	resolved map[string]model.ApprovalState
	inflight map[string]bool
	opts     Options
	order    []string
	mu       sync.Mutex
}

// NewWorkflow creates an empty workflow.
func NewWorkflow(executor Executor, opts Options) *Workflow {
	if opts.BulkThreshold <= 0 {
		opts.BulkThreshold = DefaultBulkThreshold
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Workflow{
		executor: executor,
		opts:     opts,
		actions:  make(map[string]*model.PendingAction),
		resolved: make(map[string]model.ApprovalState),
		inflight: make(map[string]bool),
	}
}

// Load creates a pending action for every anomaly that carries a fix.
func (w *Workflow) Load(anomalies []model.Anomaly) []model.PendingAction {
	w.mu.Lock()
	defer w.mu.Unlock()

	var created []model.PendingAction
	for i := range anomalies {
		a := anomalies[i]
		if a.Fix == nil {
			continue
		}
		pa := &model.PendingAction{
			ID:         uuid.NewString(),
			Identifier: a.Identifier,
			Fix:        *a.Fix,
			Anomaly:    &a,
			Summary:    a.SuggestedFix,
			State:      model.ApprovalPending,
			CreatedAt:  w.opts.Now(),
		}
		w.addLocked(pa)
		created = append(created, *pa)
	}
	return created
}

// Enqueue adds an operator-initiated action such as a SKU change, deletion or
// hand-entered price. It starts pending like any other action.
func (w *Workflow) Enqueue(identifier string, fix model.Fix, summary string) (model.PendingAction, error) {
	if identifier == "" {
		return model.PendingAction{}, model.NewValidationError("identifier", "", "must not be empty")
	}
	switch fix.Kind {
	case model.FixChangeIdentifier:
		if fix.NewIdentifier == "" {
			return model.PendingAction{}, model.NewValidationError("new_identifier", "", "must not be empty")
		}
	case model.FixSetRegularPrice:
		if !fix.Price.Valid || fix.Price.Decimal.IsNegative() {
			return model.PendingAction{}, model.NewValidationError("price", fix.Price.Decimal.String(), "must be a non-negative price")
		}
		if fix.PriceSource == "" {
			fix.PriceSource = model.PriceFromOperator
		}
	case model.FixSetStockStatus:
		if fix.StockStatus != model.StockInStock && fix.StockStatus != model.StockOutOfStock {
			return model.PendingAction{}, model.NewValidationError("stock_status", string(fix.StockStatus), "unknown stock status")
		}
	case model.FixDeleteProduct, model.FixClearSalePrice, model.FixGenerateDescription, model.FixGenerateShortDescription:
	default:
		return model.PendingAction{}, model.NewValidationError("fix", string(fix.Kind), "unknown fix kind")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	pa := &model.PendingAction{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Fix:        fix,
		Summary:    summary,
		State:      model.ApprovalPending,
		CreatedAt:  w.opts.Now(),
	}
	w.addLocked(pa)
	return *pa, nil
}

func (w *Workflow) addLocked(pa *model.PendingAction) {
	w.actions[pa.ID] = pa
	w.order = append(w.order, pa.ID)
}

// Actions returns every unresolved action (pending or approved) in creation order.
func (w *Workflow) Actions() []model.PendingAction {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]model.PendingAction, 0, len(w.order))
	for _, id := range w.order {
		if pa, ok := w.actions[id]; ok {
			out = append(out, *pa)
		}
	}
	return out
}

// Partition splits still-pending actions into auto-fixable and must-approve.
func (w *Workflow) Partition() (autoFixable, mustApprove []model.PendingAction) {
	for _, pa := range w.Actions() {
		if pa.State != model.ApprovalPending {
			continue
		}
		if pa.AutoFixable() {
			autoFixable = append(autoFixable, pa)
		} else {
			mustApprove = append(mustApprove, pa)
		}
	}
	return autoFixable, mustApprove
}

// Approve moves a pending action to approved.
func (w *Workflow) Approve(id string) error {
	return w.transition(id, model.ApprovalApproved)
}

// Reject moves a pending action to rejected and drops it from the set.
func (w *Workflow) Reject(id string) error {
	return w.transition(id, model.ApprovalRejected)
}

func (w *Workflow) transition(id string, to model.ApprovalState) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	pa, ok := w.actions[id]
	if !ok {
		if state, done := w.resolved[id]; done {
			return fmt.Errorf("%w: action %s is already %s", common.ErrInvalidTransition, id, state)
		}
		return fmt.Errorf("action %s: %w", id, common.ErrNotFound)
	}
	if pa.State != model.ApprovalPending {
		return fmt.Errorf("%w: action %s is already %s", common.ErrInvalidTransition, id, pa.State)
	}

	pa.State = to
	if to == model.ApprovalRejected {
		w.removeLocked(id, to)
	}
	return nil
}

func (w *Workflow) removeLocked(id string, state model.ApprovalState) {
	delete(w.actions, id)
	w.resolved[id] = state
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// ApproveAutoFixable approves every pending auto-fixable action and returns the count.
func (w *Workflow) ApproveAutoFixable() int {
	auto, _ := w.Partition()
	n := 0
	for _, pa := range auto {
		if err := w.Approve(pa.ID); err == nil {
			n++
		}
	}
	return n
}

// Approved returns the approved actions in creation order.
func (w *Workflow) Approved() []model.PendingAction {
	var out []model.PendingAction
	for _, pa := range w.Actions() {
		if pa.State == model.ApprovalApproved {
			out = append(out, pa)
		}
	}
	return out
}

// ApplyApproved applies every approved action in the set.
func (w *Workflow) ApplyApproved(ctx context.Context) ([]model.ActionResult, error) {
	return w.Apply(ctx, w.Approved())
}

// Apply executes the approved actions among the given ones and reports one
// result per input action. Only actions still in the set and approved there
// run; anything else is skipped. A batch that crosses the confirmation gate
// runs only after the Confirmer agrees; otherwise nothing executes. Executed
// actions leave the set whether or not their side effect succeeded.
func (w *Workflow) Apply(ctx context.Context, actions []model.PendingAction) ([]model.ActionResult, error) {
	actions = append([]model.PendingAction(nil), actions...)
	results := make([]model.ActionResult, len(actions))
	for i, a := range actions {
		results[i] = model.ActionResult{ActionID: a.ID, Identifier: a.Identifier, Kind: a.Fix.Kind, Status: model.ActionSkipped}
	}

	runnable, approved := w.claim(actions, results)
	if len(runnable) == 0 {
		return results, nil
	}
	// Claimed actions that never ran go back to approved.
	defer w.release(actions, runnable)

	if reasons := GateReasons(approved, w.opts.BulkThreshold); len(reasons) > 0 {
		if w.opts.Confirmer == nil {
			return nil, fmt.Errorf("%w: %v", common.ErrConfirmationRequired, reasons)
		}
		ok, err := w.opts.Confirmer.Confirm(ctx, ConfirmationRequest{Actions: approved, Reasons: reasons})
		if err != nil {
			return nil, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			return nil, common.ErrConfirmationDeclined
		}
	}

	// Group by identifier so one identifier's actions run in order on one worker.
	groups := make(map[string][]int)
	var groupOrder []string
	for _, i := range runnable {
		id := actions[i].Identifier
		if _, seen := groups[id]; !seen {
			groupOrder = append(groupOrder, id)
		}
		groups[id] = append(groups[id], i)
	}

	var (
		progressMu sync.Mutex
		done       int
	)
	total := len(runnable)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Workers)
	for _, id := range groupOrder {
		idxs := groups[id]
		g.Go(func() error {
			for _, i := range idxs {
				if err := gctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i] = w.execute(gctx, actions[i])
				progressMu.Lock()
				done++
				if w.opts.Progress != nil {
					w.opts.Progress(done, total)
				}
				progressMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	w.mu.Lock()
	for _, i := range runnable {
		if results[i].Status == model.ActionSkipped {
			continue
		}
		if _, ok := w.actions[actions[i].ID]; ok {
			w.removeLocked(actions[i].ID, model.ApprovalApproved)
		}
	}
	w.mu.Unlock()

	return results, nil
}

// claim marks the given actions in flight when the set still holds them as
// approved, and records why the others are skipped. The set's copy of each
// claimed action is what executes.
func (w *Workflow) claim(actions []model.PendingAction, results []model.ActionResult) ([]int, []model.PendingAction) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var runnable []int
	var approved []model.PendingAction
	for i, a := range actions {
		pa, ok := w.actions[a.ID]
		switch {
		case !ok:
			if state, done := w.resolved[a.ID]; done {
				results[i].Err = fmt.Errorf("%w: action %s is already %s", common.ErrInvalidTransition, a.ID, state)
			} else {
				results[i].Err = fmt.Errorf("%w: action %s is not in the set", common.ErrInvalidTransition, a.ID)
			}
			continue
		case w.inflight[a.ID]:
			results[i].Err = fmt.Errorf("%w: action %s is already executing", common.ErrInvalidTransition, a.ID)
			continue
		case pa.State != model.ApprovalApproved:
			results[i].Err = common.ErrNotApproved
			continue
		}
		w.inflight[a.ID] = true
		actions[i] = *pa
		runnable = append(runnable, i)
		approved = append(approved, *pa)
	}
	return runnable, approved
}

func (w *Workflow) release(actions []model.PendingAction, runnable []int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, i := range runnable {
		delete(w.inflight, actions[i].ID)
	}
}

func (w *Workflow) execute(ctx context.Context, action model.PendingAction) model.ActionResult {
	result := model.ActionResult{
		ActionID:   action.ID,
		Identifier: action.Identifier,
		Kind:       action.Fix.Kind,
		AppliedAt:  w.opts.Now(),
	}

	changes, err := w.executor.Execute(ctx, action)
	if err != nil {
		result.Status = model.ActionFailed
		result.Err = &common.ExecutionFailure{Err: err, ActionID: action.ID, Identifier: action.Identifier}
		slog.Warn("Action failed", "action_id", action.ID, "identifier", action.Identifier, "kind", action.Fix.Kind, "error", err)
	} else {
		result.Status = model.ActionApplied
		result.Changes = changes
		slog.Info("Action applied", "action_id", action.ID, "identifier", action.Identifier, "kind", action.Fix.Kind, "changes", len(changes))
	}

	if w.opts.Journal != nil {
		if jerr := w.opts.Journal.RecordAction(ctx, action, result); jerr != nil && !errors.Is(jerr, context.Canceled) {
			common.LogError(jerr, "Failed to journal action", common.Fields{"action_id": action.ID})
		}
	}
	return result
}
