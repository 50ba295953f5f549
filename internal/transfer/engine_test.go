package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jmagar/prodl/internal/model"
	"github.com/jmagar/prodl/internal/progress"
)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

// rangeServer serves body honouring Range headers, or ignoring them when
// ignoreRange is set.
func rangeServer(t *testing.T, body []byte, ignoreRange bool, requests *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		rng := r.Header.Get("Range")
		if rng == "" || ignoreRange {
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}
		start, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(rng, "bytes="), "-"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if start >= len(body) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, len(body)-1, len(body)))
		w.Header().Set("Content-Length", strconv.Itoa(len(body)-start))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(body[start:])
	}))
	t.Cleanup(srv.Close)
	return srv
}

type recorder struct {
	mu     sync.Mutex
	events []model.ProgressEvent
}

func (r *recorder) Report(ev model.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestFetch_FreshDownload(t *testing.T) {
	body := payload(300 * 1024)
	var reqs int32
	srv := rangeServer(t, body, false, &reqs)
	dest := filepath.Join(t.TempDir(), "clip.mp4")

	rec := &recorder{}
	if err := New(Options{}, nil).Fetch(context.Background(), srv.URL, dest, rec); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("content mismatch: got %d bytes, want %d", len(got), len(body))
	}
	if _, err := os.Stat(PartialPath(dest)); !os.IsNotExist(err) {
		t.Fatalf("partial file should be gone after finalize")
	}
	if len(rec.events) == 0 {
		t.Fatalf("expected progress events for known content length")
	}
	last := rec.events[len(rec.events)-1]
	if last.Percent != 90 {
		t.Fatalf("expected final percent 90 (base 20 + span 70), got %d", last.Percent)
	}
	for i := 1; i < len(rec.events); i++ {
		if rec.events[i].Percent < rec.events[i-1].Percent {
			t.Fatalf("percent decreased: %+v", rec.events)
		}
	}
}

func TestFetch_ResumeAppendsOn206(t *testing.T) {
	body := payload(200 * 1024)
	var reqs int32
	srv := rangeServer(t, body, false, &reqs)
	dest := filepath.Join(t.TempDir(), "clip.mp4")

	n := 70 * 1024
	if err := os.WriteFile(PartialPath(dest), body[:n], 0644); err != nil {
		t.Fatal(err)
	}
	if err := New(Options{}, nil).Fetch(context.Background(), srv.URL, dest, nil); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	got, _ := os.ReadFile(dest)
	if len(got) != len(body) {
		t.Fatalf("expected %d bytes, got %d", len(body), len(got))
	}
	if !bytes.Equal(got[n:], body[n:]) {
		t.Fatalf("resumed tail differs from fresh download")
	}
}

func TestFetch_416FinalizesWithoutRefetch(t *testing.T) {
	body := payload(64 * 1024)
	var reqs int32
	srv := rangeServer(t, body, false, &reqs)
	dest := filepath.Join(t.TempDir(), "clip.mp4")

	if err := os.WriteFile(PartialPath(dest), body, 0644); err != nil {
		t.Fatal(err)
	}
	if err := New(Options{}, nil).Fetch(context.Background(), srv.URL, dest, nil); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	fi, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat dest: %v", err)
	}
	if fi.Size() != int64(len(body)) {
		t.Fatalf("expected %d bytes, got %d", len(body), fi.Size())
	}
	if got := atomic.LoadInt32(&reqs); got != 1 {
		t.Fatalf("expected exactly one request, got %d", got)
	}
}

func TestFetch_200DuringResumeRestarts(t *testing.T) {
	body := payload(100 * 1024)
	var reqs int32
	srv := rangeServer(t, body, true, &reqs)
	dest := filepath.Join(t.TempDir(), "clip.mp4")

	if err := os.WriteFile(PartialPath(dest), bytes.Repeat([]byte{0xff}, 40*1024), 0644); err != nil {
		t.Fatal(err)
	}
	if err := New(Options{}, nil).Fetch(context.Background(), srv.URL, dest, nil); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	got, _ := os.ReadFile(dest)
	if !bytes.Equal(got, body) {
		t.Fatalf("expected fresh content of %d bytes, got %d bytes", len(body), len(got))
	}
	if got := atomic.LoadInt32(&reqs); got != 2 {
		t.Fatalf("expected ranged request plus restart, got %d requests", got)
	}
}

func TestFetch_BadStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusForbidden)
	}))
	defer srv.Close()
	dest := filepath.Join(t.TempDir(), "clip.mp4")

	err := New(Options{}, nil).Fetch(context.Background(), srv.URL, dest, nil)
	if !errors.Is(err, model.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if code, ok := IsTransportError(err); !ok || code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d ok=%v", code, ok)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("destination must not exist after failure")
	}
}

func TestFetch_UnknownLengthReportsNothing(t *testing.T) {
	body := payload(50 * 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		for i := 0; i < len(body); i += 10 * 1024 {
			_, _ = w.Write(body[i : i+10*1024])
			w.(http.Flusher).Flush()
		}
	}))
	defer srv.Close()
	dest := filepath.Join(t.TempDir(), "clip.mp4")

	rec := &recorder{}
	if err := New(Options{}, nil).Fetch(context.Background(), srv.URL, dest, rec); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("expected no percent events without Content-Length, got %d", len(rec.events))
	}
	if got, _ := os.ReadFile(dest); !bytes.Equal(got, body) {
		t.Fatalf("content mismatch")
	}
}

func TestPercent_ClampsToSpan(t *testing.T) {
	e := New(Options{BaseProgress: 10, ProgressSpan: 50}, nil)
	cases := []struct {
		written, total int64
		want           int
	}{
		{0, 100, 10},
		{50, 100, 35},
		{100, 100, 60},
		{150, 100, 60},
	}
	for _, c := range cases {
		if got := e.percent(c.written, c.total); got != c.want {
			t.Errorf("percent(%d, %d) = %d, want %d", c.written, c.total, got, c.want)
		}
	}
}

func TestPreparePartial_UnwritableIsReplaced(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can write read-only files")
	}
	dir := t.TempDir()
	part := filepath.Join(dir, "clip.mp4.part")
	if err := os.WriteFile(part, []byte("stale"), 0444); err != nil {
		t.Fatal(err)
	}
	n, err := preparePartial(part)
	if err != nil {
		t.Fatalf("expected stale partial to be removed, got %v", err)
	}
	if n != 0 {
		t.Fatalf("expected fresh start, got %d existing bytes", n)
	}
	if _, err := os.Stat(part); !os.IsNotExist(err) {
		t.Fatalf("stale partial should be removed")
	}
}

func TestPreparePartial_UnremovableIsPermissionError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	dir := t.TempDir()
	part := filepath.Join(dir, "clip.mp4.part")
	if err := os.WriteFile(part, []byte("stale"), 0444); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0755) })

	_, err := preparePartial(part)
	if !errors.Is(err, model.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if !strings.Contains(err.Error(), "sudo rm '"+part+"'") {
		t.Fatalf("expected remediation command in %q", err.Error())
	}
}

func TestOpenPartial_OnlyPermissionFailuresSuggestRemoval(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := openPartial(filepath.Join(blocker, "clip.mp4.part"), os.O_CREATE|os.O_WRONLY)
	if err == nil {
		t.Fatal("expected open to fail under a regular file")
	}
	if errors.Is(err, model.ErrPermissionDenied) || strings.Contains(err.Error(), "sudo rm") {
		t.Fatalf("non-permission failure must not suggest removal: %v", err)
	}
	if !strings.Contains(err.Error(), "failed to open partial file") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	locked := filepath.Join(dir, "locked")
	if err := os.Mkdir(locked, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })
	_, err = openPartial(filepath.Join(locked, "clip.mp4.part"), os.O_CREATE|os.O_WRONLY)
	if !errors.Is(err, model.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestFetch_ReportsThroughChannel(t *testing.T) {
	body := payload(256 * 1024)
	var reqs int32
	srv := rangeServer(t, body, false, &reqs)
	dest := filepath.Join(t.TempDir(), "clip.mp4")

	ch := progress.NewChannel()
	if err := New(Options{ChunkSize: 32 * 1024}, nil).Fetch(context.Background(), srv.URL, dest, ch); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := ch.Last().Percent; got != 90 {
		t.Fatalf("expected channel at 90, got %d", got)
	}
}
