package fedsearch

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func sse(events ...string) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString(e)
	}
	return b.String()
}

func TestWatchProgress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload-csv/progress/products" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, sse(
			"data: {\"jobId\":\"j\",\"state\":\"running\",\"progressPercent\":40}\n\n",
			": heartbeat\n\n",
			"data: {\"jobId\":\"j\",\"state\":\"completed\",\"progressPercent\":100,\"done\":true,\"totalInserted\":9,\"totalFailed\":1}\n\n",
			"data: {\"jobId\":\"ignored\"}\n\n",
		))
	})

	snaps, err := c.WatchProgress(context.Background(), FormatCSV, "products")
	if err != nil {
		t.Fatalf("WatchProgress: %v", err)
	}

	var got []Progress
	for p := range snaps {
		got = append(got, p)
	}
	if len(got) != 2 {
		t.Fatalf("got %d snapshots, want 2: %+v", len(got), got)
	}
	if got[0].ProgressPercent != 40 || got[0].TotalInserted != nil {
		t.Errorf("first = %+v", got[0])
	}
	last := got[1]
	if !last.Done || *last.TotalInserted != 9 || *last.TotalFailed != 1 {
		t.Errorf("last = %+v", last)
	}
}

func TestWatchProgress_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"code":"not_found","message":"no job"}`)
	})

	_, err := c.WatchProgress(context.Background(), FormatJSON, "products")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestWaitProgress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, sse(
			"data: {\"state\":\"running\"}\n\n",
			"data: {\"state\":\"failed\",\"done\":true,\"error\":\"unexpected EOF\"}\n\n",
		))
	})

	p, err := c.WaitProgress(context.Background(), FormatJSON, "products")
	if err != nil {
		t.Fatalf("WaitProgress: %v", err)
	}
	if p.State != "failed" || p.Error != "unexpected EOF" {
		t.Errorf("final = %+v", p)
	}
}

func TestWaitProgress_StreamEnded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"state\":\"running\"}\n\n")
	})

	p, err := c.WaitProgress(context.Background(), FormatCSV, "products")
	if !errors.Is(err, errStreamEnded) {
		t.Errorf("err = %v, want errStreamEnded", err)
	}
	if p.State != "running" {
		t.Errorf("last = %+v", p)
	}
}

func TestWatchProgress_CancelStopsStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"state\":\"running\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	snaps, err := c.WatchProgress(ctx, FormatCSV, "products")
	if err != nil {
		t.Fatalf("WatchProgress: %v", err)
	}
	if p := <-snaps; p.State != "running" {
		t.Fatalf("first = %+v", p)
	}
	cancel()

	select {
	case _, ok := <-snaps:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
}

func TestReadEvents_MultilineData(t *testing.T) {
	in := "event: progress\nid: 1\ndata: {\"state\":\ndata: \"running\",\"done\":true}\n\n"
	out := make(chan Progress, 1)

	if err := readEvents(context.Background(), bufio.NewScanner(strings.NewReader(in)), out); err != nil {
		t.Fatalf("readEvents: %v", err)
	}
	if p := <-out; p.State != "running" || !p.Done {
		t.Errorf("got %+v", p)
	}
}

func TestReadEvents_BadPayload(t *testing.T) {
	out := make(chan Progress, 1)
	err := readEvents(context.Background(), bufio.NewScanner(strings.NewReader("data: {oops\n\n")), out)
	if err == nil {
		t.Fatal("expected decode error")
	}
}
