// Package export renders resolved parameter responses into immutable
// artifacts (JSON document plus an options CSV) and stores them in a blob
// store. This is an out-of-band audit concern; the core never depends on it.
package export

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"paramcore/internal/blob"
	"paramcore/internal/graph"
	"paramcore/pkg/params"
)

// Status describes the lifecycle stage of a snapshot request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Format identifies a rendered artifact flavor.
type Format string

const (
	FormatJSON Format = "json" // full response document
	FormatCSV  Format = "csv"  // flat per-option table
)

// Artifact captures one stored snapshot artifact.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks a snapshot request and its resulting artifacts.
type Record struct {
	ID          string            `json:"id"`
	Selections  map[string]string `json:"selections,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Formats     []Format          `json:"formats"`
	Status      Status            `json:"status"`
	Error       string            `json:"error,omitempty"`
	Artifacts   []Artifact        `json:"artifacts,omitempty"`
	RequestedBy string            `json:"requested_by"`
	Reason      string            `json:"reason,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Input represents an enqueue request for the worker.
type Input struct {
	Attributes  map[string]string
	Selections  map[string]string
	Formats     []Format
	RequestedBy string
	Reason      string
}

// Source resolves a parameter response for a snapshot. Implemented by the
// service layer.
type Source interface {
	Respond(ctx context.Context, user graph.User, selections map[string]string, debug bool) (params.Response, error)
}

// AuditLogger records snapshot audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for snapshots.
type AuditEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	Status     Status    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Worker renders snapshots asynchronously off a bounded queue.
type Worker struct {
	source Source
	store  blob.Store
	audit  AuditLogger

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id    string
	input Input
}

// NewWorker constructs a snapshot worker over the given source and store.
func NewWorker(source Source, store blob.Store, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		audit:  audit,
		queue:  make(chan task, 32),
		jobs:   make(map[string]*Record),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing snapshot requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// Enqueue schedules a snapshot job and returns the queued record.
func (w *Worker) Enqueue(ctx context.Context, input Input) (Record, error) {
	if w.source == nil {
		return Record{}, fmt.Errorf("snapshot source not configured")
	}
	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, f := range formats {
		if f != FormatJSON && f != FormatCSV {
			return Record{}, fmt.Errorf("unsupported snapshot format %s", f)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		uniq = append(uniq, f)
	}

	id := newID()
	now := time.Now().UTC()
	record := Record{
		ID:          id,
		Selections:  cloneStrings(input.Selections),
		Attributes:  cloneStrings(input.Attributes),
		Formats:     uniq,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	snapshot := record.copy()
	w.mu.Unlock()

	w.auditRecord(ctx, input.RequestedBy, StatusQueued, input.Reason, "")

	select {
	case w.queue <- task{id: id, input: input}:
	default:
		return Record{}, fmt.Errorf("snapshot queue full")
	}
	return snapshot, nil
}

// Get returns a snapshot of the record.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(t task) {
	w.setStatus(t.id, StatusRunning, "")

	var user graph.User
	if len(t.input.Attributes) > 0 {
		user = graph.Attributes(t.input.Attributes)
	}
	resp, err := w.source.Respond(w.ctx, user, t.input.Selections, true)
	if err != nil {
		w.fail(t.id, fmt.Sprintf("resolve parameters: %v", err))
		return
	}

	w.mu.RLock()
	formats := append([]Format(nil), w.jobs[t.id].Formats...)
	w.mu.RUnlock()

	artifacts := make([]Artifact, 0, len(formats))
	for _, format := range formats {
		payload, contentType, err := render(format, resp)
		if err != nil {
			w.fail(t.id, err.Error())
			return
		}
		key := fmt.Sprintf("snapshots/%s/parameters.%s", t.id, format)
		info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"requested_by": t.input.RequestedBy},
		})
		if err != nil {
			w.fail(t.id, fmt.Sprintf("store artifact: %v", err))
			return
		}
		artifacts = append(artifacts, Artifact{
			Key:         info.Key,
			Format:      format,
			ContentType: contentType,
			SizeBytes:   info.Size,
			CreatedAt:   info.LastModified,
		})
	}
	w.complete(t.id, artifacts)
}

func render(format Format, resp params.Response) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.Marshal(resp)
		if err != nil {
			return nil, "", fmt.Errorf("marshal response: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		if err := writer.Write([]string{"parameter", "kind", "option_id", "option_label", "selected"}); err != nil {
			return nil, "", err
		}
		for _, p := range resp.Parameters {
			if len(p.Options) == 0 {
				if err := writer.Write([]string{p.Name, string(p.Kind), "", "", ""}); err != nil {
					return nil, "", err
				}
				continue
			}
			selected := make(map[string]struct{}, len(p.SelectedIDs)+1)
			if p.SelectedID != "" {
				selected[p.SelectedID] = struct{}{}
			}
			for _, id := range p.SelectedIDs {
				selected[id] = struct{}{}
			}
			for _, opt := range p.Options {
				mark := ""
				if _, ok := selected[opt.ID]; ok {
					mark = "true"
				}
				if err := writer.Write([]string{p.Name, string(p.Kind), opt.ID, opt.Label, mark}); err != nil {
					return nil, "", err
				}
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported snapshot format %s", format)
	}
}

func (w *Worker) setStatus(id string, status Status, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	actor, reason := "", ""
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
		actor, reason = record.RequestedBy, record.Reason
	}
	w.mu.Unlock()
	w.auditRecord(w.ctx, actor, status, reason, message)
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	actor, reason := "", ""
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
		actor, reason = record.RequestedBy, record.Reason
	}
	w.mu.Unlock()
	w.auditRecord(w.ctx, actor, StatusSucceeded, reason, "")
}

func (w *Worker) fail(id, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	actor, reason := "", ""
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusFailed
		record.Error = message
		record.UpdatedAt = now
		record.CompletedAt = &now
		actor, reason = record.RequestedBy, record.Reason
	}
	w.mu.Unlock()
	w.auditRecord(w.ctx, actor, StatusFailed, reason, message)
}

func (w *Worker) auditRecord(ctx context.Context, actor string, status Status, reason, note string) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, AuditEntry{
		ID:         newID(),
		Action:     "parameter_snapshot",
		Actor:      actor,
		Status:     status,
		Reason:     reason,
		Note:       note,
		OccurredAt: time.Now().UTC(),
	})
}

func (r Record) copy() Record {
	dup := r
	dup.Selections = cloneStrings(r.Selections)
	dup.Attributes = cloneStrings(r.Attributes)
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return dup
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}

// MemoryAuditLog captures audit entries in memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a defensive copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
