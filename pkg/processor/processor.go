// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package processor orchestrates a batch run: prepare the work list from
// durable state, process each item through every configured operation, and
// publish artifacts plus updated state. Re-running after any interruption
// performs only the remaining work.
package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/batchrc/pkg/config"
	"github.com/walteh/batchrc/pkg/log"
	"github.com/walteh/batchrc/pkg/operation"
	"github.com/walteh/batchrc/pkg/remote"
	"github.com/walteh/batchrc/pkg/sheet"
	"github.com/walteh/batchrc/pkg/source"
	"github.com/walteh/batchrc/pkg/state"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 📄 StateFileName is the state table's file name, local and remote.
const StateFileName = "processing_state.csv"

// uploadWorkers bounds concurrent artifact uploads per item.
const uploadWorkers = 4

// 🔧 Options configures a Processor.
type Options struct {
	Config *config.Config

	// Source enumerates and materializes input items.
	Source source.Source

	// Remote is the output store. Nil in local mode.
	Remote remote.Store

	// Tracker updates the external tracking sheet. Nil disables tracking.
	Tracker sheet.Tracker

	// Operations to run per item, in order.
	Operations []operation.Operation
}

// 📊 Summary reports what one run did.
type Summary struct {
	Total     int // items considered
	Processed int // items fully completed this run
	Failed    int // items with at least one failed operation
	Skipped   int // items already complete before the run
	Demoted   int // tracked items cleared by reconciliation
}

// 🎯 Processor drives the prepare, process, publish pipeline.
type Processor struct {
	opts       Options
	store      *state.Store
	syncer     *state.Syncer
	pushFailed bool
}

// 🏭 New creates a processor.
func New(opts Options) (*Processor, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Source == nil {
		return nil, errors.New("source is required")
	}
	if len(opts.Operations) == 0 {
		return nil, errors.New("at least one operation is required")
	}
	if opts.Config.IsRemoteMode() && opts.Remote == nil {
		return nil, errors.New("remote store is required in remote mode")
	}
	return &Processor{opts: opts}, nil
}

// 🏃 Run executes one full batch run and returns its summary.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	console := log.FromContext(ctx)
	cfg := p.opts.Config

	console.Header(fmt.Sprintf("processing %s", cfg.String()))

	summary := Summary{}

	items, err := p.prepare(ctx, &summary)
	if err != nil {
		return summary, err
	}

	if len(items) == 0 {
		console.Success("nothing to do, all items are up to date")
		p.cleanup(ctx)
		return summary, nil
	}

	console.StartPhase(ctx, log.PhaseOperation{
		Name:    "process",
		Mode:    p.mode(),
		Details: fmt.Sprintf("%d items, %d operations", len(items), len(p.opts.Operations)),
	})

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, errors.Errorf("run interrupted: %w", err)
		}
		if p.processItem(ctx, item) {
			summary.Processed++
		} else {
			summary.Failed++
		}
	}

	console.EndPhase(ctx)

	p.finish(ctx)
	p.cleanup(ctx)

	console.Successf("run complete: %d processed, %d failed, %d skipped",
		summary.Processed, summary.Failed, summary.Skipped)

	return summary, nil
}

// 📦 workItem is one item selected for this run.
type workItem struct {
	id    string // stable item identity (name stem)
	entry source.Entry
}

// 🛠️ prepare loads durable state, repairs drift, and selects the items that
// still owe work, capped deterministically by max_files.
func (p *Processor) prepare(ctx context.Context, summary *Summary) ([]workItem, error) {
	logger := zerolog.Ctx(ctx)
	console := log.FromContext(ctx)
	cfg := p.opts.Config

	console.StartPhase(ctx, log.PhaseOperation{
		Name:    "prepare",
		Mode:    p.mode(),
		Details: cfg.OutputDir(),
	})
	defer console.EndPhase(ctx)

	for _, dir := range []string{cfg.TempDir, cfg.InputDir(), cfg.OutputDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Errorf("creating directory %s: %w", dir, err)
		}
	}

	columns := make([][]string, 0, len(p.opts.Operations))
	for _, op := range p.opts.Operations {
		columns = append(columns, op.Columns())
	}
	p.store = state.NewStore(filepath.Join(cfg.OutputDir(), StateFileName), state.Columns(columns...))

	if cfg.IsRemoteMode() {
		p.syncer = state.NewSyncer(p.store, p.opts.Remote, cfg.Remote.OutputFolderID, StateFileName)
		if err := p.syncer.Pull(ctx); err != nil {
			console.Warningf("could not fetch remote state, continuing with local copy: %v", err)
		}
	}

	if err := p.store.Load(ctx); err != nil {
		return nil, errors.Errorf("loading state: %w", err)
	}

	if cfg.IsRemoteMode() {
		reconciler := state.NewReconciler(p.store, p.opts.Remote, cfg.Remote.OutputFolderID)
		demoted, err := reconciler.Reconcile(ctx)
		if err != nil {
			console.Warningf("could not verify tracked results: %v", err)
		}
		summary.Demoted = len(demoted)
	}

	entries, err := p.opts.Source.List(ctx)
	if err != nil {
		return nil, errors.Errorf("listing input items: %w", err)
	}
	summary.Total = len(entries)

	var items []workItem
	for _, entry := range entries {
		id := source.ItemID(entry.Name)
		if !p.needsWork(id) {
			summary.Skipped++
			continue
		}
		items = append(items, workItem{id: id, entry: entry})
	}

	// Entries arrive in stable name order, so the cap always selects the
	// same prefix for the same backlog.
	if max := maxFiles(cfg); max != nil && len(items) > *max {
		logger.Info().
			Int("pending", len(items)).
			Int("max_files", *max).
			Msg("capping run size")
		items = items[:*max]
	}

	console.Infof("%d items total, %d already complete, %d selected this run",
		summary.Total, summary.Skipped, len(items))

	return items, nil
}

// 🔎 needsWork reports whether any operation still owes artifacts for an item.
func (p *Processor) needsWork(id string) bool {
	rec := p.store.State().Item(id)
	if rec == nil {
		return true
	}
	for _, op := range p.opts.Operations {
		if rec.Count(op.Name()) < op.TargetCount() {
			return true
		}
	}
	return false
}

// ⚙️ processItem runs every operation's remaining applications for one item,
// records the outcome durably, and publishes new artifacts. A failure inside
// one item never stops the run; completed operations keep their progress so
// the next run resumes past them.
func (p *Processor) processItem(ctx context.Context, item workItem) bool {
	logger := zerolog.Ctx(ctx)
	console := log.FromContext(ctx)
	cfg := p.opts.Config

	inputPath, err := p.opts.Source.Fetch(ctx, item.entry.ID, cfg.InputDir())
	if err != nil {
		// The item drops out of this run's batch and stays eligible next run.
		console.Errorf("%s: fetching input: %v", item.id, err)
		return false
	}

	outputDir := filepath.Join(cfg.OutputDir(), item.id)

	// Work on a copy so counts only become durable once their artifacts are
	// safely published.
	rec := p.record(item.id).Clone()
	var artifacts []string
	outcome := operation.Success()

	for _, op := range p.opts.Operations {
		done := rec.Count(op.Name())
		target := op.TargetCount()
		if done >= target {
			console.LogItemOperation(ctx, log.ItemOperation{
				ItemID:    item.id,
				Operation: op.Name(),
				Status:    "up to date",
				IsSkipped: true,
				Generated: 0,
				Target:    target,
			})
			continue
		}

		generated := 0
		var opErr error
		for idx := done + 1; idx <= target; idx++ {
			artifact, err := op.Apply(ctx, inputPath, outputDir, item.id, idx)
			if err != nil {
				opErr = err
				break
			}
			artifacts = append(artifacts, artifact.Path)
			rec.SetCount(op.Name(), idx)
			for _, field := range artifact.Meta {
				rec.Set(field.Key, field.Value)
			}
			generated++
		}

		console.LogItemOperation(ctx, log.ItemOperation{
			ItemID:    item.id,
			Operation: op.Name(),
			Status:    statusText(opErr, generated),
			IsNew:     opErr == nil && generated > 0,
			IsFailed:  opErr != nil,
			Generated: generated,
			Target:    target,
		})

		if opErr != nil {
			logger.Error().Err(opErr).
				Str("item", item.id).
				Str("operation", op.Name()).
				Msg("operation failed")
			outcome = operation.Failure(fmt.Sprintf("%s: %v", op.Name(), opErr))
			break
		}
	}

	containerRef := "completed"
	if cfg.IsRemoteMode() && len(artifacts) > 0 {
		folderID, err := p.publish(ctx, item.id, artifacts)
		if err != nil {
			console.Errorf("%s: publishing artifacts: %v", item.id, err)
			// Unpublished artifacts do not count; the whole remainder
			// re-runs next time.
			p.commit(ctx, item.id, operation.Failure(fmt.Sprintf("publish: %v", err)), nil)
			return false
		}
		containerRef = folderID
	}

	p.commit(ctx, item.id, outcome, rec)

	if outcome.Completed {
		p.track(ctx, item.id, containerRef)
	}

	return outcome.Completed
}

// 💾 commit writes the item's row and pushes the table remotely, best-effort.
// Progress from operations that completed before a failure stays recorded, so
// only the failed operation's remainder re-runs next time.
func (p *Processor) commit(ctx context.Context, id string, outcome operation.Outcome, rec *state.Record) {
	console := log.FromContext(ctx)

	if rec == nil {
		rec = p.record(id)
	}

	total := 0
	for _, op := range p.opts.Operations {
		total += rec.Count(op.Name())
	}
	rec.Set(state.ColumnSamplesGenerated, strconv.Itoa(total))

	if outcome.Completed {
		rec.Set(state.ColumnStatus, state.StatusCompleted)
		rec.Set(state.ColumnResult, "ok")
	} else {
		rec.Set(state.ColumnStatus, state.StatusFailed)
		rec.Set(state.ColumnResult, outcome.Reason)
	}
	for _, field := range outcome.Fields {
		rec.Set(field.Key, field.Value)
	}

	if err := p.store.Upsert(ctx, id, rec); err != nil {
		console.Errorf("%s: saving state: %v", id, err)
		return
	}

	if p.syncer != nil {
		if err := p.syncer.Push(ctx); err != nil {
			p.pushFailed = true
			console.Warningf("%s: pushing state table: %v", id, err)
		} else {
			p.pushFailed = false
		}
	}
}

// 🗂️ record returns an item's tracked row, or an empty one when untracked.
func (p *Processor) record(id string) *state.Record {
	if existing := p.store.State().Item(id); existing != nil {
		return existing
	}
	return state.NewRecord()
}

// 📤 publish uploads an item's new artifacts into its output container,
// creating the container when absent, and returns the container id.
// Re-publishing into an existing container only ever adds files.
func (p *Processor) publish(ctx context.Context, id string, artifacts []string) (string, error) {
	logger := zerolog.Ctx(ctx)
	cfg := p.opts.Config

	folderID, found, err := p.opts.Remote.FindFolder(ctx, id, cfg.Remote.OutputFolderID)
	if err != nil {
		return "", errors.Errorf("finding output container: %w", err)
	}
	if !found {
		folderID, err = p.opts.Remote.CreateFolder(ctx, id, cfg.Remote.OutputFolderID)
		if err != nil {
			return "", errors.Errorf("creating output container: %w", err)
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uploadWorkers)
	for _, artifact := range artifacts {
		artifact := artifact
		group.Go(func() error {
			if _, err := p.opts.Remote.Upload(groupCtx, artifact, folderID); err != nil {
				return errors.Errorf("uploading %s: %w", filepath.Base(artifact), err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return "", err
	}

	logger.Info().
		Str("item", id).
		Int("artifacts", len(artifacts)).
		Msg("published artifacts")

	return folderID, nil
}

// 📊 track updates the external tracking sheet, best-effort.
func (p *Processor) track(ctx context.Context, id string, result string) {
	console := log.FromContext(ctx)
	cfg := p.opts.Config

	if p.opts.Tracker == nil || cfg.Sheet == nil || cfg.Sheet.FolderID == "" {
		return
	}

	err := p.opts.Tracker.UpdateCell(ctx,
		cfg.Sheet.FolderID, cfg.Sheet.Worksheet,
		id, cfg.Sheet.IDColumn, cfg.Sheet.ResultColumn, result)
	if err != nil {
		console.Warningf("%s: updating tracking sheet: %v", id, err)
	}
}

// 🏁 finish pushes the final state table after the last item.
func (p *Processor) finish(ctx context.Context) {
	console := log.FromContext(ctx)
	if p.syncer == nil {
		return
	}
	if err := p.syncer.Push(ctx); err != nil {
		p.pushFailed = true
		console.Warningf("final state push failed, remote table may be stale: %v", err)
	} else {
		p.pushFailed = false
	}
}

// 🧹 cleanup removes the run's temp directory. Skipped when the output
// directory lives inside it and there is no remote copy to fall back on, so
// local results and state are never discarded.
func (p *Processor) cleanup(ctx context.Context) {
	logger := zerolog.Ctx(ctx)
	cfg := p.opts.Config

	outputInsideTemp := strings.HasPrefix(
		filepath.Clean(cfg.OutputDir())+string(os.PathSeparator),
		filepath.Clean(cfg.TempDir)+string(os.PathSeparator))

	if outputInsideTemp && (p.syncer == nil || p.pushFailed) {
		logger.Debug().Str("dir", cfg.TempDir).Msg("keeping temp directory, it holds the only copy of the run output")
		return
	}

	if err := os.RemoveAll(cfg.TempDir); err != nil {
		logger.Warn().Err(err).Str("dir", cfg.TempDir).Msg("could not remove temp directory")
		return
	}
	logger.Debug().Str("dir", cfg.TempDir).Msg("removed temp directory")
}

// 🏷️ mode names the run's input mode for display.
func (p *Processor) mode() string {
	if p.opts.Config.IsRemoteMode() {
		return "remote"
	}
	return "local"
}

func maxFiles(cfg *config.Config) *int {
	if cfg.Processing == nil {
		return nil
	}
	return cfg.Processing.MaxFiles
}

func statusText(err error, generated int) string {
	if err != nil {
		return "FAILED"
	}
	if generated == 0 {
		return "up to date"
	}
	return "generated"
}
