package poller

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"VIXBar/internal/collector"
	"VIXBar/internal/state"
)

// manualScheduler is a fake clock-driven scheduler. Advance fires every
// active entry once per elapsed interval.
type manualScheduler struct {
	mu      sync.Mutex
	next    int
	entries map[int]*manualEntry
}

type manualEntry struct {
	interval time.Duration
	elapsed  time.Duration
	job      func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{entries: make(map[int]*manualEntry)}
}

func (m *manualScheduler) Every(interval time.Duration, job func()) (func(), error) {
	if interval <= 0 {
		return nil, fmt.Errorf("bad interval %v", interval)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.entries[id] = &manualEntry{interval: interval, job: job}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.entries, id)
	}, nil
}

func (m *manualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	var due []func()
	for _, e := range m.entries {
		e.elapsed += d
		for e.elapsed >= e.interval {
			e.elapsed -= e.interval
			due = append(due, e.job)
		}
	}
	m.mu.Unlock()
	for _, job := range due {
		job()
	}
}

func (m *manualScheduler) Active() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Duration
	for _, e := range m.entries {
		out = append(out, e.interval)
	}
	return out
}

func newMockPoller(t *testing.T, value float64) (*Poller, *collector.MockFetcher, *manualScheduler, *state.Store) {
	t.Helper()
	mock := &collector.MockFetcher{Value: value}
	store := state.NewStore()
	t.Cleanup(store.Close)
	sched := newManualScheduler()
	p := New(context.Background(), collector.NewCollector(mock, "^VIX"), store, sched)
	return p, mock, sched, store
}

func newHTTPPoller(t *testing.T, handler http.HandlerFunc) (*Poller, *state.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	store := state.NewStore()
	t.Cleanup(store.Close)
	fetcher := collector.NewYahooFetcher(server.URL, "", 5*time.Second)
	p := New(context.Background(), collector.NewCollector(fetcher, "^VIX"), store, newManualScheduler())
	return p, store
}

func chartBody(closes string) string {
	return `{"chart":{"result":[{"indicators":{"quote":[{"close":` + closes + `}]}}]}}`
}

func TestPoller_StartDoesNotFetch(t *testing.T) {
	p, mock, _, _ := newMockPoller(t, 18)
	if err := p.Start(time.Minute); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if mock.Calls() != 0 {
		t.Errorf("expected no immediate fetch, got %d calls", mock.Calls())
	}
	if st := p.Status(); !st.Scheduled || st.Interval != time.Minute {
		t.Errorf("status = %+v", st)
	}
}

func TestPoller_RestartKeepsSingleSchedule(t *testing.T) {
	p, mock, sched, _ := newMockPoller(t, 18)
	if err := p.Start(60 * time.Second); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(10 * time.Second); err != nil {
		t.Fatalf("Start: %v", err)
	}

	active := sched.Active()
	if !reflect.DeepEqual(active, []time.Duration{10 * time.Second}) {
		t.Fatalf("expected one schedule at 10s, got %v", active)
	}

	sched.Advance(60 * time.Second)
	if got := mock.Calls(); got != 6 {
		t.Errorf("expected 6 fetches at the new interval, got %d", got)
	}
}

func TestPoller_StopHaltsFetches(t *testing.T) {
	p, mock, sched, _ := newMockPoller(t, 18)
	if err := p.Start(time.Minute); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sched.Advance(time.Minute)
	if mock.Calls() != 1 {
		t.Fatalf("expected 1 fetch before stop, got %d", mock.Calls())
	}

	p.Stop()
	p.Stop()
	sched.Advance(10 * time.Minute)
	if mock.Calls() != 1 {
		t.Errorf("expected no fetches after stop, got %d", mock.Calls())
	}
	if st := p.Status(); st.Scheduled {
		t.Errorf("expected stopped status, got %+v", st)
	}
}

func TestPoller_StartRejectsNonPositive(t *testing.T) {
	p, _, sched, _ := newMockPoller(t, 18)
	if err := p.Start(0); err == nil {
		t.Error("expected error for zero interval")
	}
	if len(sched.Active()) != 0 {
		t.Error("expected no schedule")
	}
}

func TestPoller_FailureKeepsSchedule(t *testing.T) {
	p, mock, sched, store := newMockPoller(t, 0)
	mock.Err = fmt.Errorf("%w: connection refused", collector.ErrTransport)
	if err := p.Start(time.Minute); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sched.Advance(3 * time.Minute)
	if mock.Calls() != 3 {
		t.Errorf("expected polling to continue after failures, got %d calls", mock.Calls())
	}
	if !p.Status().Scheduled {
		t.Error("expected poller to stay scheduled")
	}
	if store.Latest().LatestValue != nil {
		t.Error("expected no state change on failure")
	}
}

func TestFetchOnce_EndToEnd(t *testing.T) {
	p, store := newHTTPPoller(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"indicators":{"quote":[{"close":[20.1, null, 21.3]}]}}]}}`))
	})

	before := time.Now()
	if ok := p.FetchOnce(context.Background()); !ok {
		t.Fatal("expected FetchOnce to succeed")
	}
	snap := store.Snapshot()
	if snap.LatestValue == nil || *snap.LatestValue != 21.3 {
		t.Fatalf("LatestValue = %v, want 21.3", snap.LatestValue)
	}
	if snap.LastUpdated == nil || snap.LastUpdated.Before(before) {
		t.Errorf("LastUpdated = %v", snap.LastUpdated)
	}
	if !reflect.DeepEqual(snap.History, []float64{21.3}) {
		t.Errorf("History = %v, want [21.3]", snap.History)
	}
}

func TestFetchOnce_LastNonNull(t *testing.T) {
	p, store := newHTTPPoller(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"indicators":{"quote":[{"close":[null, 18.2, null, 19.5, null]}]}}]}}`))
	})
	p.FetchOnce(context.Background())
	if v := store.Latest().LatestValue; v == nil || *v != 19.5 {
		t.Errorf("LatestValue = %v, want 19.5", v)
	}
}

func TestFetchOnce_FailuresLeaveStateUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"service unavailable", http.StatusServiceUnavailable, `{"chart":{"result":[{"indicators":{"quote":[{"close":[99]}]}}]}}`},
		{"malformed json", http.StatusOK, `{"chart":{"result":[`},
		{"empty close", http.StatusOK, `{"chart":{"result":[{"indicators":{"quote":[{"close":[]}]}}]}}`},
		{"absent close", http.StatusOK, `{"chart":{"result":[{"indicators":{"quote":[{}]}}]}}`},
		{"all null", http.StatusOK, `{"chart":{"result":[{"indicators":{"quote":[{"close":[null,null,null]}]}}]}}`},
		{"empty result", http.StatusOK, `{"chart":{"result":[]}}`},
	}

	for _, tt := range tests {
		var fail atomic.Bool
		p, store := newHTTPPoller(t, func(w http.ResponseWriter, r *http.Request) {
			if fail.Load() {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
				return
			}
			w.Write([]byte(`{"chart":{"result":[{"indicators":{"quote":[{"close":[17.25]}]}}]}}`))
		})

		if !p.FetchOnce(context.Background()) {
			t.Fatalf("%s: seed fetch failed", tt.name)
		}
		before := store.Snapshot()

		fail.Store(true)
		if ok := p.FetchOnce(context.Background()); ok {
			t.Errorf("%s: expected FetchOnce to report no update", tt.name)
		}
		after := store.Snapshot()
		if !reflect.DeepEqual(before, after) {
			t.Errorf("%s: state changed: before=%+v after=%+v", tt.name, before, after)
		}
	}
}

func TestFetchOnce_FailureOnEmptyStateStaysAbsent(t *testing.T) {
	p, store := newHTTPPoller(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	p.FetchOnce(context.Background())
	st := store.Latest()
	if st.LatestValue != nil || st.LastUpdated != nil {
		t.Errorf("expected absent state, got %+v", st)
	}
}

func TestFetchOnce_ConcurrentCallsCoalesce(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	arrived := make(chan struct{}, 16)
	p, store := newHTTPPoller(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		arrived <- struct{}{}
		<-release
		w.Write([]byte(`{"chart":{"result":[{"indicators":{"quote":[{"close":[25.5]}]}}]}}`))
	})

	const n = 5
	var wg sync.WaitGroup
	results := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.FetchOnce(context.Background())
		}(i)
	}

	<-arrived
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := hits.Load(); got >= n {
		t.Errorf("expected concurrent fetches to share requests, got %d requests for %d calls", got, n)
	}
	for i, ok := range results {
		if !ok {
			t.Errorf("call %d reported failure", i)
		}
	}
	if got := len(store.History()); got != int(hits.Load()) {
		t.Errorf("expected one history entry per request, got %d entries for %d requests", got, hits.Load())
	}
}

func TestRefresh_RunsInBackground(t *testing.T) {
	p, mock, _, store := newMockPoller(t, 30.5)
	p.Refresh()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && store.Latest().LatestValue == nil {
		time.Sleep(5 * time.Millisecond)
	}
	if v := store.Latest().LatestValue; v == nil || *v != 30.5 {
		t.Errorf("LatestValue = %v, want 30.5", v)
	}
	if mock.Calls() != 1 {
		t.Errorf("expected 1 call, got %d", mock.Calls())
	}
}

func TestPoller_StopLetsInFlightFetchPublish(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.Write([]byte(chartBody("[20.1,null,21.3]")))
	}))
	t.Cleanup(server.Close)

	store := state.NewStore()
	t.Cleanup(store.Close)
	sched := newManualScheduler()
	fetcher := collector.NewYahooFetcher(server.URL, "", 5*time.Second)
	p := New(context.Background(), collector.NewCollector(fetcher, "^VIX"), store, sched)
	if err := p.Start(time.Minute); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		sched.Advance(time.Minute)
		close(done)
	}()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled fetch never reached the server")
	}
	p.Stop()
	close(release)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("in-flight fetch did not finish")
	}

	st := store.Latest()
	if st.LatestValue == nil || *st.LatestValue != 21.3 {
		t.Errorf("expected in-flight fetch to publish 21.3, got %v", st.LatestValue)
	}
	if p.Status().Scheduled {
		t.Error("expected poller to stay stopped")
	}
	if len(sched.Active()) != 0 {
		t.Errorf("expected no active schedule, got %v", sched.Active())
	}
}

func TestFetchOnce_CancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var hits atomic.Int32
	p, store := newHTTPPoller(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		w.Write([]byte(chartBody("[18.4]")))
	})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan bool, 1)
	go func() { first <- p.FetchOnce(firstCtx) }()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("fetch never reached the server")
	}

	second := make(chan bool, 1)
	go func() { second <- p.FetchOnce(context.Background()) }()

	cancelFirst()
	if <-first {
		t.Error("expected cancelled caller to report no update")
	}
	close(release)

	select {
	case ok := <-second:
		if !ok {
			t.Error("expected second caller to see the shared fetch succeed")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("second caller never returned")
	}
	if v := store.Latest().LatestValue; v == nil || *v != 18.4 {
		t.Errorf("expected 18.4 published, got %v", v)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", collector.ErrTransport), "transport"},
		{fmt.Errorf("x: %w", collector.ErrProtocol), "protocol"},
		{fmt.Errorf("x: %w", collector.ErrParse), "parse"},
		{context.Canceled, "cancelled"},
		{fmt.Errorf("other"), "unknown"},
	}
	for _, tt := range tests {
		if got := classify(tt.err); got != tt.want {
			t.Errorf("classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
