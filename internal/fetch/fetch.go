// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch implements the skip-if-exists batch download of migration
// datasets. Each item is checked for a local file, fetched through the
// strategy registered for its source kind when absent, and written
// atomically. A failing item is logged and never stops the batch.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/pdiddy/migstat/pkg/types"
)

// Error taxonomy. Strategies wrap failures with one of these so callers can
// tell them apart with errors.Is.
var (
	// ErrTransport covers network failures, timeouts and non-2xx statuses.
	ErrTransport = errors.New("transport error")

	// ErrSerialization covers failures writing a result to disk.
	ErrSerialization = errors.New("serialization error")

	// ErrUpstream covers the tabular service rejecting or garbling a request.
	ErrUpstream = errors.New("upstream service error")
)

const tempPattern = ".migstat-*.tmp"

// Strategy fetches one kind of dataset and streams its file content to w.
// New sources are added by implementing Strategy and registering it with
// NewBatch.
type Strategy interface {
	Kind() types.SourceKind
	Fetch(ctx context.Context, ds types.Dataset, w io.Writer) error
}

// Recorder persists fetch outcomes. The ledger package provides one.
type Recorder interface {
	Record(ctx context.Context, rec types.FetchRecord) error
}

// ItemResult is the outcome of one batch item.
type ItemResult struct {
	Dataset types.Dataset
	Path    string
	Outcome types.Outcome
	Err     error
}

// Result holds the outcome of a batch run.
type Result struct {
	Succeeded int
	Skipped   int
	Failed    int
	Pending   int
	Items     []ItemResult
}

// Total returns the number of items in the run.
func (r Result) Total() int {
	return r.Succeeded + r.Skipped + r.Failed + r.Pending
}

// HasFailures reports whether any item failed.
func (r Result) HasFailures() bool {
	return r.Failed > 0
}

// Batch runs the fetch loop over a list of datasets.
type Batch struct {
	fs         afero.Fs
	dir        string
	delay      time.Duration
	log        *slog.Logger
	strategies map[types.SourceKind]Strategy

	// Recorder, when set, receives one record per processed item. Recording
	// failures are logged and otherwise ignored.
	Recorder Recorder

	// Now returns the timestamp stored in records.
	Now func() time.Time
}

// NewBatch returns a Batch writing into cfg.OutputDir on fs.
func NewBatch(fs afero.Fs, cfg types.FetchConfig, log *slog.Logger, strategies ...Strategy) *Batch {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b := &Batch{
		fs:         fs,
		dir:        cfg.OutputDir,
		delay:      cfg.Delay,
		log:        log,
		strategies: make(map[types.SourceKind]Strategy, len(strategies)),
		Now:        time.Now,
	}
	for _, s := range strategies {
		b.strategies[s.Kind()] = s
	}
	return b
}

// Path returns the target file for ds: <dir>/<name><ext>.
func (b *Batch) Path(ds types.Dataset) string {
	return filepath.Join(b.dir, ds.FileName())
}

// Run processes datasets in order. It fails only when the output directory
// cannot be created; item failures are reported in the Result. When ctx is
// cancelled the remaining items are left pending.
func (b *Batch) Run(ctx context.Context, datasets []types.Dataset) (Result, error) {
	var result Result
	if err := b.fs.MkdirAll(b.dir, 0o755); err != nil {
		return result, fmt.Errorf("creating output directory %s: %w", b.dir, err)
	}

	fetched := false
	for _, ds := range datasets {
		if fetched && b.delay > 0 && ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case <-time.After(b.delay):
			}
		}
		if ctx.Err() != nil {
			result.Items = append(result.Items, ItemResult{Dataset: ds, Path: b.Path(ds), Outcome: types.OutcomePending})
			result.Pending++
			continue
		}

		item := b.Process(ctx, ds)
		result.Items = append(result.Items, item)
		switch item.Outcome {
		case types.OutcomeSkipped:
			result.Skipped++
		case types.OutcomeSucceeded:
			result.Succeeded++
			fetched = true
		default:
			result.Failed++
			fetched = true
			b.log.Warn("skipping dataset after failure", slog.String("dataset", ds.Name))
		}
	}

	b.log.Info("batch complete",
		slog.Int("succeeded", result.Succeeded),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
		slog.Int("pending", result.Pending),
		slog.Int("total", result.Total()))
	return result, nil
}

// Process handles one dataset: skip when its file exists, fetch otherwise.
// Existence is the only check; file content is never inspected.
func (b *Batch) Process(ctx context.Context, ds types.Dataset) ItemResult {
	path := b.Path(ds)
	item := ItemResult{Dataset: ds, Path: path, Outcome: types.OutcomePending}

	exists, err := afero.Exists(b.fs, path)
	if err != nil {
		item.Outcome = types.OutcomeFailed
		item.Err = fmt.Errorf("checking %s: %w", path, err)
		b.log.Error("download failed", slog.String("dataset", ds.Name), slog.Any("error", item.Err))
		b.record(ctx, item, 0, "")
		return item
	}
	if exists {
		b.log.Info("already exists, skipping download", slog.String("dataset", ds.Name), slog.String("path", path))
		item.Outcome = types.OutcomeSkipped
		b.record(ctx, item, 0, "")
		return item
	}

	size, sum, err := b.fetch(ctx, ds, path)
	if err != nil {
		item.Outcome = types.OutcomeFailed
		item.Err = err
		b.log.Error("download failed",
			slog.String("dataset", ds.Name),
			slog.String("id", ds.ID),
			slog.Any("error", err))
		b.record(ctx, item, 0, "")
		return item
	}

	item.Outcome = types.OutcomeSucceeded
	b.log.Info("downloaded",
		slog.String("dataset", ds.Name),
		slog.String("kind", string(ds.Kind)),
		slog.String("path", path),
		slog.Int64("bytes", size))
	b.record(ctx, item, size, sum)
	return item
}

// fetch runs the strategy into a temporary file and renames it onto path
// only on success, so a failed or interrupted fetch leaves no target file.
func (b *Batch) fetch(ctx context.Context, ds types.Dataset, path string) (int64, string, error) {
	strategy, ok := b.strategies[ds.Kind]
	if !ok {
		return 0, "", fmt.Errorf("no fetch strategy for source kind %q", ds.Kind)
	}

	tmp, err := afero.TempFile(b.fs, filepath.Dir(path), tempPattern)
	if err != nil {
		return 0, "", fmt.Errorf("%w: creating temp file: %w", ErrSerialization, err)
	}
	tmpPath := tmp.Name()

	tw := newTrackingWriter(tmp)
	fetchErr := strategy.Fetch(ctx, ds, tw)
	closeErr := tmp.Close()

	switch {
	case tw.err != nil:
		b.fs.Remove(tmpPath)
		return 0, "", fmt.Errorf("%w: writing %s: %w", ErrSerialization, path, tw.err)
	case fetchErr != nil:
		b.fs.Remove(tmpPath)
		return 0, "", fetchErr
	case closeErr != nil:
		b.fs.Remove(tmpPath)
		return 0, "", fmt.Errorf("%w: closing temp file: %w", ErrSerialization, closeErr)
	}

	if err := b.fs.Rename(tmpPath, path); err != nil {
		b.fs.Remove(tmpPath)
		return 0, "", fmt.Errorf("%w: renaming temp file: %w", ErrSerialization, err)
	}
	return tw.n, hex.EncodeToString(tw.h.Sum(nil)), nil
}

func (b *Batch) record(ctx context.Context, item ItemResult, size int64, sum string) {
	if b.Recorder == nil {
		return
	}
	rec := types.FetchRecord{
		Kind:      item.Dataset.Kind,
		ID:        item.Dataset.ID,
		Name:      item.Dataset.Name,
		Path:      item.Path,
		Outcome:   item.Outcome,
		Size:      size,
		SHA256:    sum,
		FetchedAt: b.Now().UTC(),
	}
	if item.Err != nil {
		rec.Error = item.Err.Error()
	}
	// A cancelled run still records what happened to its in-flight item.
	if err := b.Recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		b.log.Warn("ledger record failed", slog.String("dataset", item.Dataset.Name), slog.Any("error", err))
	}
}

// trackingWriter counts and hashes bytes and remembers the first write error
// so disk failures can be told apart from read failures.
type trackingWriter struct {
	w   io.Writer
	h   hash.Hash
	n   int64
	err error
}

func newTrackingWriter(w io.Writer) *trackingWriter {
	return &trackingWriter{w: w, h: sha256.New()}
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	n, err := t.w.Write(p)
	t.h.Write(p[:n])
	t.n += int64(n)
	if err != nil {
		t.err = err
	}
	return n, err
}
