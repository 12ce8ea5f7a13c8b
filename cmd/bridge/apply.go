package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/catalog-bridge/internal/approval"
	"github.com/Veraticus/catalog-bridge/internal/cli"
	"github.com/Veraticus/catalog-bridge/internal/common"
	"github.com/Veraticus/catalog-bridge/internal/engine"
	"github.com/Veraticus/catalog-bridge/internal/model"
	"github.com/Veraticus/catalog-bridge/internal/normalize"
	"github.com/Veraticus/catalog-bridge/internal/source"
	"github.com/Veraticus/catalog-bridge/internal/tui"
)

func applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Approve and apply fixes for detected anomalies",
		Long: `Run a pass, turn fixable anomalies into pending actions, and apply the ones
you approve. Approved changes are queued to the store outbox as JSON lines.

Deletions, SKU changes, hand-entered prices and large batches always ask for
confirmation unless --yes is given.`,
		Example: `  bridge apply --auto
  bridge apply --review
  bridge apply --tui
  bridge apply --set-price AG900=12.50 --delete OLD-42
  bridge apply --change-sku 4410=4410-A --yes`,
		RunE: runApply,
	}

	cmd.Flags().Bool("auto", false, "Approve every auto-fixable action")
	cmd.Flags().Bool("review", false, "Review pending actions one at a time")
	cmd.Flags().Bool("tui", false, "Review pending actions in the full-screen interface")
	cmd.Flags().BoolP("yes", "y", false, "Answer yes to the confirmation gate")
	cmd.Flags().Bool("dry-run", false, "Apply changes to the in-memory records only")
	cmd.Flags().String("outbox", "", "Outbox file for store changes (default: <export.dir>/outbox.jsonl)")
	cmd.Flags().StringArray("set-price", nil, "Set a regular price by hand (SKU=PRICE)")
	cmd.Flags().StringArray("delete", nil, "Delete a store product (SKU)")
	cmd.Flags().StringArray("change-sku", nil, "Change a store product's SKU (CATALOG_SKU=NEW_STORE_SKU)")
	cmd.Flags().Bool("sync-skus", false, "Queue SKU changes for confirmed pairings whose store SKU differs")

	return cmd
}

func runApply(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	in, out := cmd.InOrStdin(), cmd.OutOrStdout()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	result, err := sess.runPass(ctx)
	if err != nil {
		return err
	}

	var writer approval.StoreWriter
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if !dryRun {
		outboxPath, _ := cmd.Flags().GetString("outbox")
		if outboxPath == "" {
			outboxPath = filepath.Join(sess.settings.Export.Dir, "outbox.jsonl")
		}
		writer = source.NewOutbox(sess.fs, outboxPath)
		slog.Debug("Queuing store changes", "outbox", outboxPath)
	}

	yes, _ := cmd.Flags().GetBool("yes")
	progress := cli.NewProgress(cmd.ErrOrStderr())
	plan := sess.engine.Plan(result, writer, approval.TextGenerator{}, retryOptions(), approval.Options{
		Confirmer:     cli.NewConfirmer(in, out, yes),
		Journal:       sess.storage,
		Progress:      progress.Func(),
		BulkThreshold: sess.settings.Approval.BulkThreshold,
		Workers:       sess.settings.Approval.Workers,
	})

	requested, err := enqueueOperatorActions(cmd, plan)
	if err != nil {
		return err
	}

	if proceed, err := approveActions(ctx, cmd, plan, in, out); err != nil || !proceed {
		return err
	}

	approved := len(plan.Workflow.Approved())
	if approved == 0 {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf(
			"%d actions pending, none approved (%d requested). Use --auto, --review or --tui.",
			len(plan.Workflow.Actions()), requested)))
		return nil
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	applyCtx := handler.HandleInterrupts(ctx, "Run 'bridge history actions' to see what was applied.")

	results, err := sess.engine.ApplyApproved(applyCtx, plan)
	if errors.Is(err, common.ErrConfirmationDeclined) {
		fmt.Fprintln(out, cli.FormatWarning("Nothing applied: confirmation declined"))
		return nil
	}
	if err != nil {
		return err
	}

	failed, err := cli.RenderResults(out, results)
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintln(out, cli.FormatInfo("Dry run: no changes were queued for the store"))
	}
	if handler.WasInterrupted() {
		return fmt.Errorf("apply interrupted: %w", context.Canceled)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d actions failed", failed, len(results))
	}
	return nil
}

// enqueueOperatorActions adds and approves the actions requested by flag. They
// still pass through the confirmation gate when applied.
func enqueueOperatorActions(cmd *cobra.Command, plan *engine.ActionPlan) (int, error) {
	var actions []model.PendingAction
	enqueue := func(sku string, fix model.Fix, summary string) error {
		identifier := normalize.Normalize(sku)
		if _, ok := plan.Records.Get(identifier); !ok {
			return fmt.Errorf("%w: no matched record with SKU %q", common.ErrNotFound, sku)
		}
		pa, err := plan.Workflow.Enqueue(identifier, fix, summary)
		if err != nil {
			return err
		}
		actions = append(actions, pa)
		return nil
	}

	prices, _ := cmd.Flags().GetStringArray("set-price")
	for _, arg := range prices {
		sku, raw, err := parsePair(arg)
		if err != nil {
			return 0, err
		}
		price, err := parsePrice(raw)
		if err != nil {
			return 0, err
		}
		fix := model.Fix{Kind: model.FixSetRegularPrice, Price: decimal.NewNullDecimal(price), PriceSource: model.PriceFromOperator}
		if err := enqueue(sku, fix, fmt.Sprintf("Set price to %s", price.StringFixed(2))); err != nil {
			return 0, err
		}
	}

	deletes, _ := cmd.Flags().GetStringArray("delete")
	for _, sku := range deletes {
		if err := enqueue(sku, model.Fix{Kind: model.FixDeleteProduct}, "Delete product"); err != nil {
			return 0, err
		}
	}

	changes, _ := cmd.Flags().GetStringArray("change-sku")
	for _, arg := range changes {
		sku, newSKU, err := parsePair(arg)
		if err != nil {
			return 0, err
		}
		fix := model.Fix{Kind: model.FixChangeIdentifier, NewIdentifier: newSKU}
		if err := enqueue(sku, fix, fmt.Sprintf("Change SKU to %s", newSKU)); err != nil {
			return 0, err
		}
	}

	if sync, _ := cmd.Flags().GetBool("sync-skus"); sync {
		for _, rec := range skuDrift(plan.Records.Records()) {
			fix := model.Fix{Kind: model.FixChangeIdentifier, NewIdentifier: rec.Catalog.Identifier}
			summary := fmt.Sprintf("Change SKU %s to %s", rec.Store.Identifier, rec.Catalog.Identifier)
			if err := enqueue(rec.Identifier, fix, summary); err != nil {
				return 0, err
			}
		}
	}

	for _, pa := range actions {
		if err := plan.Workflow.Approve(pa.ID); err != nil {
			return 0, err
		}
	}
	return len(actions), nil
}

// skuDrift returns pairings made by hand or by similarity whose store SKU
// differs from the catalog code.
func skuDrift(records []model.ReconciledRecord) []model.ReconciledRecord {
	var out []model.ReconciledRecord
	for _, rec := range records {
		if rec.Provenance != model.ProvenanceManual && rec.Provenance != model.ProvenanceFuzzy {
			continue
		}
		if rec.Store.Identifier == rec.Catalog.Identifier {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// approveActions runs the approval mode chosen by flag. It reports false when
// the operator backed out and nothing should be applied.
func approveActions(ctx context.Context, cmd *cobra.Command, plan *engine.ActionPlan, in io.Reader, out io.Writer) (bool, error) {
	wf := plan.Workflow

	if auto, _ := cmd.Flags().GetBool("auto"); auto {
		n := wf.ApproveAutoFixable()
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Approved %d auto-fixable actions", n)))
	}

	if review, _ := cmd.Flags().GetBool("review"); review {
		stats, err := cli.NewReviewer(in, out).Review(ctx, wf)
		if err != nil {
			return false, err
		}
		common.LogInfo("Review finished", common.Fields{
			"approved": stats.Approved,
			"rejected": stats.Rejected,
			"skipped":  stats.Skipped,
		})
	}

	if useTUI, _ := cmd.Flags().GetBool("tui"); useTUI {
		res, err := tui.Run(ctx, wf, tui.Options{Input: in, Output: out, AltScreen: true})
		if err != nil {
			return false, err
		}
		switch res.Outcome {
		case tui.OutcomeApply:
		case tui.OutcomeAbort:
			fmt.Fprintln(out, cli.FormatWarning("Review aborted, nothing applied"))
			return false, nil
		default:
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf(
				"Left review with %d approved and %d rejected, nothing applied", res.Approved, res.Rejected)))
			return false, nil
		}
	}

	return true, nil
}
