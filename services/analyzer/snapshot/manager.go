// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot stores analysis reports in BadgerDB and compares them.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/fxzscan/services/analyzer/report"
)

const (
	snapNamespace = "fxz:snap:"
	indexPrefix   = snapNamespace + "index:"
	dataSuffix    = ":data"
	metaSuffix    = ":meta"
	latestSuffix  = ":latest"
)

// SchemaVersion identifies the stored report layout.
const SchemaVersion = "1"

// DefaultListLimit caps List results when no limit is given.
const DefaultListLimit = 100

// ErrSnapshotNotFound is returned when a snapshot ID or latest pointer does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

var tracer = otel.Tracer("fxzscan.snapshot")

// Metadata describes a saved report snapshot.
type Metadata struct {
	// SnapshotID is SHA256(ProjectRoot:CreatedAtNano:RunID)[:16].
	SnapshotID string `json:"snapshot_id"`

	// RunID identifies the analysis run that produced the report.
	RunID string `json:"run_id"`

	ProjectRoot string `json:"project_root"`

	// ProjectHash is SHA256(ProjectRoot)[:16] for key grouping.
	ProjectHash string `json:"project_hash"`

	// ReportHash is the SHA256 of the report JSON. Equal hashes mean equal reports.
	ReportHash string `json:"report_hash"`

	Label string `json:"label,omitempty"`

	// CreatedAtMilli is when the snapshot was saved (Unix milliseconds UTC).
	CreatedAtMilli int64 `json:"created_at_milli"`

	ScannedFiles  int `json:"scanned_files"`
	Components    int `json:"components"`
	Routes        int `json:"routes"`
	Forms         int `json:"forms"`
	APICalls      int `json:"api_calls"`
	Stores        int `json:"stores"`
	ParseFailures int `json:"parse_failures"`

	SchemaVersion string `json:"schema_version"`

	// CompressedSize is the size of the gzip-compressed payload in bytes.
	CompressedSize int64 `json:"compressed_size"`

	// ContentHash is the SHA256 of the compressed payload, checked on load.
	ContentHash string `json:"content_hash"`
}

// Manager saves and loads report snapshots.
//
// Description:
//
//	Each snapshot is the report JSON, gzip-compressed, plus a metadata
//	record used for listing. A per-project latest pointer and a reverse
//	index from snapshot ID to project are maintained alongside.
//
// Key Schema:
//
//	fxz:snap:{projectHash}:{snapshotID}:data → gzip(report JSON)
//	fxz:snap:{projectHash}:{snapshotID}:meta → JSON(Metadata)
//	fxz:snap:{projectHash}:latest            → snapshotID
//	fxz:snap:index:{snapshotID}              → projectHash
//
// Thread Safety: Safe for concurrent use. BadgerDB handles its own
// concurrency control.
type Manager struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time
}

// OpenDB opens a BadgerDB at dir. An empty dir opens an in-memory database.
func OpenDB(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db %q: %w", dir, err)
	}
	return db, nil
}

// NewManager creates a Manager over an opened BadgerDB. The caller owns db.
func NewManager(db *badger.DB, logger *slog.Logger) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("badger db must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Manager{db: db, logger: logger, now: time.Now}, nil
}

// Save stores out as a new snapshot and makes it the project's latest.
//
// Inputs:
//   - ctx: Context for tracing. Must not be nil.
//   - out: The finished report. Must not be nil.
//   - label: Optional human-readable label.
//   - runID: The producing run's ID. A new UUID is generated when empty.
//
// Outputs:
//   - *Metadata: The saved snapshot's metadata.
//   - error: Non-nil if encoding or storage fails.
func (m *Manager) Save(ctx context.Context, out *report.AnalysisOutput, label, runID string) (*Metadata, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if out == nil {
		return nil, fmt.Errorf("report must not be nil")
	}
	_, span := tracer.Start(ctx, "snapshot.Manager.Save",
		trace.WithAttributes(attribute.String("project_root", out.ProjectRoot)))
	defer span.End()

	if runID == "" {
		runID = uuid.NewString()
	}

	raw, err := report.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	payload, err := compress(raw)
	if err != nil {
		return nil, err
	}

	created := m.now()
	meta := newMetadata(out, runID, label, created)
	meta.ReportHash = digest(raw)
	meta.CompressedSize = int64(len(payload))
	meta.ContentHash = digest(payload)

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	ks := keysFor(meta.ProjectHash, meta.SnapshotID)
	writes := []struct {
		key, what string
		val       []byte
	}{
		{ks.data, "payload", payload},
		{ks.meta, "metadata", metaJSON},
		{ks.latest, "latest pointer", []byte(meta.SnapshotID)},
		{ks.index, "index entry", []byte(meta.ProjectHash)},
	}
	if err := m.db.Update(func(txn *badger.Txn) error {
		for _, w := range writes {
			if err := txn.Set([]byte(w.key), w.val); err != nil {
				return fmt.Errorf("set %s: %w", w.what, err)
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("saving snapshot %s: %w", meta.SnapshotID, err)
	}

	span.SetAttributes(
		attribute.String("snapshot_id", meta.SnapshotID),
		attribute.Int64("compressed_size", meta.CompressedSize),
	)
	m.logger.Info("snapshot saved",
		slog.String("snapshot_id", meta.SnapshotID),
		slog.String("run_id", runID),
		slog.String("project_root", out.ProjectRoot),
		slog.Int("components", meta.Components),
		slog.Int64("compressed_size", meta.CompressedSize),
	)
	return meta, nil
}

// newMetadata fills the identity and count fields for a report about to be saved.
func newMetadata(out *report.AnalysisOutput, runID, label string, created time.Time) *Metadata {
	id := digest([]byte(fmt.Sprintf("%s:%d:%s", out.ProjectRoot, created.UnixNano(), runID)))[:16]
	return &Metadata{
		SnapshotID:     id,
		RunID:          runID,
		ProjectRoot:    out.ProjectRoot,
		ProjectHash:    ProjectHash(out.ProjectRoot),
		Label:          label,
		CreatedAtMilli: created.UnixMilli(),
		ScannedFiles:   out.ScannedFiles,
		Components:     len(out.Components),
		Routes:         len(out.Routes),
		Forms:          len(out.Forms),
		APICalls:       len(out.APICalls),
		Stores:         len(out.ZustandStores),
		ParseFailures:  len(out.ParseFailures()),
		SchemaVersion:  SchemaVersion,
	}
}

// Load retrieves a snapshot by ID.
func (m *Manager) Load(ctx context.Context, snapshotID string) (*report.AnalysisOutput, *Metadata, error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("ctx must not be nil")
	}
	if snapshotID == "" {
		return nil, nil, fmt.Errorf("snapshot ID must not be empty")
	}
	_, span := tracer.Start(ctx, "snapshot.Manager.Load",
		trace.WithAttributes(attribute.String("snapshot_id", snapshotID)))
	defer span.End()

	projectHash, err := m.readString(indexPrefix + snapshotID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving snapshot %s: %w", snapshotID, err)
	}
	return m.load(keysFor(projectHash, snapshotID))
}

// LoadLatest loads the most recent snapshot for the project rooted at projectRoot.
func (m *Manager) LoadLatest(ctx context.Context, projectRoot string) (*report.AnalysisOutput, *Metadata, error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("ctx must not be nil")
	}
	if projectRoot == "" {
		return nil, nil, fmt.Errorf("project root must not be empty")
	}

	projectHash := ProjectHash(projectRoot)
	snapshotID, err := m.readString(keysFor(projectHash, "").latest)
	if err != nil {
		return nil, nil, fmt.Errorf("no latest snapshot for %s: %w", projectRoot, err)
	}
	return m.load(keysFor(projectHash, snapshotID))
}

// List returns snapshot metadata, newest first.
//
// Inputs:
//   - ctx: Must not be nil.
//   - projectRoot: Optional filter. Empty lists every project.
//   - limit: Maximum results. Values <= 0 use DefaultListLimit.
func (m *Manager) List(ctx context.Context, projectRoot string, limit int) ([]*Metadata, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	prefix := []byte(snapNamespace)
	if projectRoot != "" {
		prefix = []byte(snapNamespace + ProjectHash(projectRoot) + ":")
	}

	var found []*Metadata
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 64})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if !strings.HasSuffix(string(item.Key()), metaSuffix) {
				continue
			}
			meta := new(Metadata)
			err := item.Value(func(val []byte) error { return json.Unmarshal(val, meta) })
			if err != nil {
				m.logger.Warn("ignoring unreadable snapshot metadata",
					slog.String("key", string(item.KeyCopy(nil))), slog.Any("error", err))
				continue
			}
			found = append(found, meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning snapshots: %w", err)
	}

	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.CreatedAtMilli == b.CreatedAtMilli {
			return a.SnapshotID < b.SnapshotID
		}
		return a.CreatedAtMilli > b.CreatedAtMilli
	})
	if len(found) > limit {
		found = found[:limit]
	}
	if found == nil {
		found = []*Metadata{}
	}
	return found, nil
}

// Delete removes a snapshot. When it was the project's latest, the latest
// pointer moves to the next-newest remaining snapshot, or is removed when none
// remain.
func (m *Manager) Delete(ctx context.Context, snapshotID string) error {
	if ctx == nil {
		return fmt.Errorf("ctx must not be nil")
	}
	if snapshotID == "" {
		return fmt.Errorf("snapshot ID must not be empty")
	}

	projectHash, err := m.readString(indexPrefix + snapshotID)
	if err != nil {
		return fmt.Errorf("resolving snapshot %s: %w", snapshotID, err)
	}
	ks := keysFor(projectHash, snapshotID)

	var successor string
	err = m.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{ks.data, ks.meta, ks.index} {
			if err := txn.Delete([]byte(key)); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}

		latest, err := txnString(txn, ks.latest)
		if err != nil || latest != snapshotID {
			return nil
		}
		successor = m.newestIn(txn, projectHash, snapshotID)
		if successor == "" {
			return txn.Delete([]byte(ks.latest))
		}
		return txn.Set([]byte(ks.latest), []byte(successor))
	})
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", snapshotID, err)
	}

	m.logger.Info("snapshot deleted",
		slog.String("snapshot_id", snapshotID),
		slog.String("new_latest", successor))
	return nil
}

// newestIn returns the ID of the project's newest snapshot other than skip,
// using the same ordering as List. Empty when there is none.
func (m *Manager) newestIn(txn *badger.Txn, projectHash, skip string) string {
	prefix := []byte(snapNamespace + projectHash + ":")
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 64})
	defer it.Close()

	var best *Metadata
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		if !strings.HasSuffix(string(item.Key()), metaSuffix) {
			continue
		}
		meta := new(Metadata)
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, meta) }); err != nil {
			continue
		}
		if meta.SnapshotID == skip {
			continue
		}
		if best == nil || meta.CreatedAtMilli > best.CreatedAtMilli ||
			(meta.CreatedAtMilli == best.CreatedAtMilli && meta.SnapshotID < best.SnapshotID) {
			best = meta
		}
	}
	if best == nil {
		return ""
	}
	return best.SnapshotID
}

// load reads the payload and metadata under ks, verifies the payload digest
// and decodes the report.
func (m *Manager) load(ks keySet) (*report.AnalysisOutput, *Metadata, error) {
	var payload, metaJSON []byte
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		if payload, err = txnBytes(txn, ks.data); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		if metaJSON, err = txnBytes(txn, ks.meta); err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reading snapshot %s: %w", ks.id, err)
	}

	meta := new(Metadata)
	if err := json.Unmarshal(metaJSON, meta); err != nil {
		return nil, nil, fmt.Errorf("decoding metadata for %s: %w", ks.id, err)
	}
	if got := digest(payload); meta.ContentHash != "" && got != meta.ContentHash {
		return nil, nil, fmt.Errorf("snapshot %s is corrupt: content hash %s does not match %s", ks.id, got, meta.ContentHash)
	}

	raw, err := decompress(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %s: %w", ks.id, err)
	}
	out, err := report.Load(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("decoding report for %s: %w", ks.id, err)
	}
	return out, meta, nil
}

func (m *Manager) readString(key string) (string, error) {
	var s string
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		s, err = txnString(txn, key)
		return err
	})
	return s, err
}

func txnBytes(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func txnString(txn *badger.Txn, key string) (string, error) {
	b, err := txnBytes(txn, key)
	return string(b), err
}

// keySet holds every key belonging to one snapshot.
type keySet struct {
	id     string
	data   string
	meta   string
	latest string
	index  string
}

func keysFor(projectHash, snapshotID string) keySet {
	project := snapNamespace + projectHash
	return keySet{
		id:     snapshotID,
		data:   project + ":" + snapshotID + dataSuffix,
		meta:   project + ":" + snapshotID + metaSuffix,
		latest: project + latestSuffix,
		index:  indexPrefix + snapshotID,
	}
}

// ProjectHash returns SHA256(projectRoot)[:16], the key prefix for a project.
func ProjectHash(projectRoot string) string {
	return digest([]byte(projectRoot))[:16]
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(payload []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	return raw, nil
}
