package export

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"paramcore/internal/blob"
	"paramcore/internal/graph"
	"paramcore/pkg/params"
)

type stubSource struct {
	resp params.Response
	err  error
}

func (s stubSource) Respond(context.Context, graph.User, map[string]string, bool) (params.Response, error) {
	return s.resp, s.err
}

func sampleResponse() params.Response {
	return params.Response{
		ResponseVersion: params.ResponseVersion,
		Parameters: []params.ParameterRecord{
			{
				Kind: params.KindSingleSelect, Name: "region", Label: "Region",
				Options:    []params.OptionRecord{{ID: "east", Label: "East"}, {ID: "west", Label: "West"}},
				SelectedID: "west",
			},
			{Kind: params.KindNumber, Name: "limit", Label: "Limit", MinValue: "0", MaxValue: "10", Increment: "2", SelectedValue: "6"},
		},
	}
}

func TestWorkerProcess_RendersAndStores(t *testing.T) {
	store := blob.NewMemory()
	audit := &MemoryAuditLog{}
	w := NewWorker(stubSource{resp: sampleResponse()}, store, audit)

	record, err := w.Enqueue(context.Background(), Input{RequestedBy: "analyst", Reason: "weekly audit"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if record.Status != StatusQueued || len(record.Formats) != 2 {
		t.Fatalf("queued record: %#v", record)
	}

	// Drain the queue synchronously.
	w.process(<-w.queue)

	got, ok := w.Get(record.ID)
	if !ok || got.Status != StatusSucceeded || len(got.Artifacts) != 2 {
		t.Fatalf("record after process: %#v", got)
	}

	_, rc, err := store.Get(context.Background(), "snapshots/"+record.ID+"/parameters.json")
	if err != nil {
		t.Fatalf("stored json: %v", err)
	}
	payload, _ := io.ReadAll(rc)
	_ = rc.Close()
	var resp params.Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		t.Fatalf("unmarshal artifact: %v", err)
	}
	if resp.ResponseVersion != params.ResponseVersion || len(resp.Parameters) != 2 {
		t.Fatalf("artifact content: %#v", resp)
	}

	_, rc, err = store.Get(context.Background(), "snapshots/"+record.ID+"/parameters.csv")
	if err != nil {
		t.Fatalf("stored csv: %v", err)
	}
	csvPayload, _ := io.ReadAll(rc)
	_ = rc.Close()
	text := string(csvPayload)
	if !strings.Contains(text, "region,single_select,west,West,true") {
		t.Fatalf("csv should mark the selected option: %s", text)
	}
	if !strings.Contains(text, "limit,number,,,") {
		t.Fatalf("csv should carry option-less parameters as a single row: %s", text)
	}

	var sawSucceeded bool
	for _, entry := range audit.Entries() {
		if entry.Action != "parameter_snapshot" {
			t.Fatalf("audit action: %#v", entry)
		}
		if entry.Status == StatusSucceeded && entry.Actor == "analyst" {
			sawSucceeded = true
		}
	}
	if !sawSucceeded {
		t.Fatalf("audit trail missing success: %#v", audit.Entries())
	}
}

func TestWorkerProcess_SourceFailure(t *testing.T) {
	store := blob.NewMemory()
	w := NewWorker(stubSource{err: params.Inputf("region", "bad selection")}, store, nil)

	record, err := w.Enqueue(context.Background(), Input{RequestedBy: "analyst"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	w.process(<-w.queue)

	got, _ := w.Get(record.ID)
	if got.Status != StatusFailed || !strings.Contains(got.Error, "region") {
		t.Fatalf("record: %#v", got)
	}
	list, err := store.List(context.Background(), "snapshots/")
	if err != nil || len(list) != 0 {
		t.Fatalf("no artifacts expected on failure: %#v %v", list, err)
	}
}

func TestWorkerEnqueue_Validation(t *testing.T) {
	w := NewWorker(nil, blob.NewMemory(), nil)
	if _, err := w.Enqueue(context.Background(), Input{}); err == nil {
		t.Fatalf("expected error without source")
	}

	w = NewWorker(stubSource{resp: sampleResponse()}, blob.NewMemory(), nil)
	if _, err := w.Enqueue(context.Background(), Input{Formats: []Format{"parquet"}}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	record, err := w.Enqueue(context.Background(), Input{Formats: []Format{FormatJSON, FormatJSON}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(record.Formats) != 1 {
		t.Fatalf("formats should deduplicate: %#v", record.Formats)
	}
}

func TestWorkerStartStop(t *testing.T) {
	store := blob.NewMemory()
	w := NewWorker(stubSource{resp: sampleResponse()}, store, nil)
	w.Start()

	record, err := w.Enqueue(context.Background(), Input{RequestedBy: "analyst", Formats: []Format{FormatJSON}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, _ := w.Get(record.ID)
		if got.Status == StatusSucceeded {
			break
		}
		if got.Status == StatusFailed {
			t.Fatalf("snapshot failed: %s", got.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for snapshot, status %s", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
