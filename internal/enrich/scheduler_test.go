package enrich

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pfrederiksen/sportshub/internal/event"
	"github.com/pfrederiksen/sportshub/internal/logger"
	"github.com/pfrederiksen/sportshub/internal/scraper"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name  string
		items int
		n     int
		sizes []int
	}{
		{"ten over three", 10, 3, []int{4, 3, 3}},
		{"even split", 9, 3, []int{3, 3, 3}},
		{"more workers than items", 2, 5, []int{1, 1}},
		{"zero workers", 4, 0, []int{4}},
		{"single", 1, 1, []int{1}},
		{"empty", 0, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.items)
			for i := range items {
				items[i] = i
			}

			chunks := Partition(items, tt.n)

			var sizes []int
			var flat []int
			for _, c := range chunks {
				sizes = append(sizes, len(c))
				flat = append(flat, c...)
			}
			if !reflect.DeepEqual(sizes, tt.sizes) {
				t.Errorf("sizes = %v, want %v", sizes, tt.sizes)
			}
			if len(flat) != tt.items {
				t.Fatalf("assigned %d items, want %d", len(flat), tt.items)
			}
			for i, v := range flat {
				if v != i {
					t.Fatalf("chunks are not contiguous in order: %v", chunks)
				}
			}
		})
	}
}

func TestPartition_Isolated(t *testing.T) {
	chunks := Partition([]int{1, 2, 3, 4}, 2)
	chunks[0] = append(chunks[0], 99)
	if chunks[1][0] != 3 {
		t.Error("appending to one chunk must not overwrite the next")
	}
}

func pendingEvent(url string) event.Event {
	return event.Event{URL: url, Home: "H", Away: "A", StartTime: time.Unix(1706745600, 0).UTC()}
}

func newScheduler(b *fakeBrowser, db *fakeDB, workers int) *Scheduler {
	return &Scheduler{
		Browser:     b,
		Source:      db,
		Connect:     db.connect,
		Workers:     workers,
		PageTimeout: time.Second,
		Selectors:   scraper.DefaultSelectors(),
		Metrics:     logger.NewMetrics(),
	}
}

func TestScheduler_Run(t *testing.T) {
	b := &fakeBrowser{pages: map[string]fakePage{
		"https://s/a":       {links: []string{"https://stream.one/a", "javascript:void(0)", "#"}},
		"https://s/b":       {},
		"https://s/c":       {xpathLinks: []string{"//cdn.two/c", "//cdn.three/c"}},
		"https://s/d":       {navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")},
		"https://s/e%20two": {links: []string{"https://stream.one/e"}},
		"https://s/f":       {noContent: true},
	}}

	events := []event.Event{
		pendingEvent("https://s/a"),
		pendingEvent("https://s/b"),
		pendingEvent("https://s/c"),
		pendingEvent("https://s/d"),
		pendingEvent("https://s/e%20two"),
		pendingEvent("https://s/f"),
		pendingEvent("https://s/g"),
	}
	db := newFakeDB(events...)
	db.links["https://s/e two"] = ""

	var mu sync.Mutex
	var seen []int
	s := newScheduler(b, db, 3)
	s.OnProgress = func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != 7 {
			t.Errorf("progress total = %d, want 7", total)
		}
		seen = append(seen, done)
	}

	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.RunID == "" {
		t.Error("expected a run id")
	}
	if report.Total != 7 || report.Workers != 3 {
		t.Errorf("total = %d, workers = %d", report.Total, report.Workers)
	}
	if report.Enriched != 3 || report.Empty != 1 || len(report.Failed) != 3 {
		t.Errorf("unexpected report: enriched=%d empty=%d failed=%v", report.Enriched, report.Empty, report.Failed)
	}

	var failed []string
	for _, f := range report.Failed {
		failed = append(failed, f.URL)
	}
	sort.Strings(failed)
	if !reflect.DeepEqual(failed, []string{"https://s/d", "https://s/f", "https://s/g"}) {
		t.Errorf("failed urls = %v", failed)
	}

	wantLinks := map[string]string{
		"https://s/a":     "https://stream.one/a",
		"https://s/b":     "",
		"https://s/c":     "//cdn.two/c,//cdn.three/c",
		"https://s/e two": "https://stream.one/e",
	}
	for url, want := range wantLinks {
		if got := db.links[url]; got != want {
			t.Errorf("links[%s] = %q, want %q", url, got, want)
		}
	}

	if !reflect.DeepEqual(seen, []int{1, 2, 3, 4, 5, 6, 7}) {
		t.Errorf("progress sequence = %v", seen)
	}
	if db.connects != 3 || db.closes != 3 {
		t.Errorf("connects = %d, closes = %d, want 3 each", db.connects, db.closes)
	}
	if b.opened != 3 || b.closed != 3 {
		t.Errorf("tabs opened = %d, closed = %d, want 3 each", b.opened, b.closed)
	}

	counters := s.Metrics.Snapshot().Counters
	if counters["enrich.enriched"] != 3 || counters["enrich.failed"] != 3 {
		t.Errorf("metrics = %v", counters)
	}
}

func TestScheduler_TimeoutIsPerEvent(t *testing.T) {
	b := &fakeBrowser{pages: map[string]fakePage{
		"https://s/slow": {delay: time.Second, links: []string{"//x"}},
		"https://s/fast": {links: []string{"//y"}},
	}}
	db := newFakeDB(pendingEvent("https://s/slow"), pendingEvent("https://s/fast"))

	s := newScheduler(b, db, 1)
	s.PageTimeout = 20 * time.Millisecond

	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Failed) != 1 || report.Failed[0].URL != "https://s/slow" {
		t.Errorf("expected slow page to fail, got %+v", report.Failed)
	}
	if !strings.Contains(report.Failed[0].Reason, "deadline") {
		t.Errorf("reason = %q", report.Failed[0].Reason)
	}
	if db.links["https://s/fast"] != "//y" {
		t.Error("worker should continue after a timed out page")
	}
}

func TestScheduler_PanicFailsRun(t *testing.T) {
	b := &fakeBrowser{pages: map[string]fakePage{
		"https://s/boom": {panics: true},
		"https://s/ok":   {links: []string{"//ok"}},
	}}
	db := newFakeDB(pendingEvent("https://s/boom"), pendingEvent("https://s/ok"))

	_, err := newScheduler(b, db, 2).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("expected panic error, got %v", err)
	}
	if db.closes != 2 || b.closed != 2 {
		t.Errorf("resources must be released after a panic: conns %d tabs %d", db.closes, b.closed)
	}
}

func TestScheduler_StorageErrorFailsRun(t *testing.T) {
	b := &fakeBrowser{pages: map[string]fakePage{"https://s/a": {links: []string{"//a"}}}}
	db := newFakeDB(pendingEvent("https://s/a"))
	db.updateErr = errors.New("database is locked")

	_, err := newScheduler(b, db, 1).Run(context.Background())
	if !errors.Is(err, db.updateErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestScheduler_Validation(t *testing.T) {
	b := &fakeBrowser{}
	db := newFakeDB(pendingEvent("https://s/a"))

	if _, err := newScheduler(b, db, 0).Run(context.Background()); err == nil {
		t.Error("expected error for zero workers")
	}

	b.tabErr = errors.New("chrome gone")
	if _, err := newScheduler(b, db, 1).Run(context.Background()); err == nil {
		t.Error("expected error when a tab cannot be opened")
	}
	if db.connects != 0 {
		t.Error("storage must not be opened when tab creation fails")
	}
}

func TestScheduler_NothingPending(t *testing.T) {
	b := &fakeBrowser{}
	done := event.Event{URL: "https://s/done", StreamLink: "//x"}
	db := newFakeDB(done)

	report, err := newScheduler(b, db, 4).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 0 || b.opened != 0 {
		t.Errorf("expected no work, got %+v (tabs %d)", report, b.opened)
	}
}

func TestScheduler_WorkerClamp(t *testing.T) {
	pages := map[string]fakePage{}
	var events []event.Event
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://s/%d", i)
		pages[url] = fakePage{links: []string{"//" + url}}
		events = append(events, pendingEvent(url))
	}

	tests := []struct {
		name    string
		workers int
		maxTabs int
		want    int
	}{
		{"capped by pending", 10, 0, 5},
		{"capped by max tabs", 4, 2, 2},
		{"as requested", 3, 8, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBrowser{pages: pages}
			s := newScheduler(b, newFakeDB(events...), tt.workers)
			s.MaxTabs = tt.maxTabs

			report, err := s.Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if report.Workers != tt.want || b.opened != tt.want {
				t.Errorf("workers = %d, tabs = %d, want %d", report.Workers, b.opened, tt.want)
			}
			if report.Enriched != 5 {
				t.Errorf("enriched = %d, want 5", report.Enriched)
			}
		})
	}
}

func TestExtractLinks(t *testing.T) {
	sel := scraper.DefaultSelectors()
	ctx := context.Background()

	tests := []struct {
		name string
		page fakePage
		want []string
	}{
		{"primary", fakePage{links: []string{"https://a", "text only"}}, []string{"https://a"}},
		{"fallback", fakePage{xpathLinks: []string{"//b"}}, []string{"//b"}},
		{"primary wins", fakePage{links: []string{"//a"}, xpathLinks: []string{"//b"}}, []string{"//a"}},
		{"none", fakePage{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.page
			tab := &fakeTab{browser: &fakeBrowser{}, current: &p}
			got, err := ExtractLinks(ctx, tab, sel)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	var last int
	p := NewProgress(100, func(done, total int) {
		if done != last+1 {
			t.Errorf("progress jumped from %d to %d", last, done)
		}
		last = done
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Step()
		}()
	}
	wg.Wait()

	if p.Done() != 100 || last != 100 {
		t.Errorf("done = %d, last = %d", p.Done(), last)
	}
}
