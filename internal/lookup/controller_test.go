package lookup_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/agroclima/internal/condition"
	"github.com/neexbeast/agroclima/internal/lookup"
)

// ---- mock Fetcher ----

type fetchResult struct {
	resp *lookup.Response
	err  error
}

// gatedFetcher blocks each Fetch until the test releases the city's gate.
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[string]chan fetchResult
	calls []string
}

func newGatedFetcher(cities ...string) *gatedFetcher {
	f := &gatedFetcher{gates: make(map[string]chan fetchResult)}
	for _, c := range cities {
		f.gates[c] = make(chan fetchResult, 1)
	}
	return f
}

func (f *gatedFetcher) Fetch(_ context.Context, city string) (*lookup.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, city)
	gate := f.gates[city]
	f.mu.Unlock()

	r := <-gate
	return r.resp, r.err
}

func (f *gatedFetcher) release(city string, r fetchResult) {
	f.gates[city] <- r
}

func (f *gatedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type funcFetcher func(ctx context.Context, city string) (*lookup.Response, error)

func (fn funcFetcher) Fetch(ctx context.Context, city string) (*lookup.Response, error) {
	return fn(ctx, city)
}

// ---- helpers ----

var fixedNow = time.Date(2026, 10, 14, 15, 4, 0, 0, time.Local)

func newController(f lookup.Fetcher) *lookup.Controller {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return lookup.NewControllerWithClock(f, log, func() time.Time { return fixedNow })
}

func sorrisoResponse() *lookup.Response {
	return &lookup.Response{
		City: "Sorriso",
		Reading: lookup.WeatherReading{
			Temperature:   28.5,
			Humidity:      60,
			WindSpeed:     12,
			Precipitation: 0,
			IsDay:         1,
			ConditionCode: 1,
		},
		ServerRetrievedAt: "2020-01-01T00:00:00",
	}
}

// ---- tests ----

func TestController_StartsIdle(t *testing.T) {
	c := newController(newGatedFetcher())
	assert.Equal(t, lookup.Idle{}, c.State())
}

func TestController_Submit_BlankInputIsNoop(t *testing.T) {
	f := newGatedFetcher()
	c := newController(f)

	var transitions int
	c.Subscribe(func(lookup.DisplayState) { transitions++ })

	for _, in := range []string{"", "   ", "\t\n"} {
		assert.False(t, c.Submit(context.Background(), in))
	}
	c.Wait()

	assert.Equal(t, lookup.Idle{}, c.State())
	assert.Zero(t, f.callCount())
	assert.Zero(t, transitions)
}

func TestController_Submit_BlankInputKeepsPreviousResult(t *testing.T) {
	f := newGatedFetcher("Sorriso")
	c := newController(f)

	require.True(t, c.Submit(context.Background(), "Sorriso"))
	f.release("Sorriso", fetchResult{resp: sorrisoResponse()})
	c.Wait()
	before := c.State()

	assert.False(t, c.Submit(context.Background(), "  "))
	assert.Equal(t, before, c.State())
}

func TestController_Submit_LoadingBeforeResolve(t *testing.T) {
	f := newGatedFetcher("Sorriso")
	c := newController(f)

	require.True(t, c.Submit(context.Background(), "  Sorriso  "))
	assert.Equal(t, lookup.Loading{Query: "Sorriso"}, c.State())

	f.release("Sorriso", fetchResult{resp: sorrisoResponse()})
	c.Wait()
}

func TestController_Success(t *testing.T) {
	f := newGatedFetcher("Sorriso")
	c := newController(f)

	c.Submit(context.Background(), "Sorriso")
	f.release("Sorriso", fetchResult{resp: sorrisoResponse()})
	c.Wait()

	s, ok := c.State().(lookup.Success)
	require.True(t, ok, "expected Success, got %#v", c.State())
	assert.Equal(t, "Sorriso", s.Result.City)
	assert.Equal(t, 28.5, s.Result.Reading.Temperature)
	assert.Equal(t, condition.PartlyCloudy, s.Result.Reading.Condition())
	assert.Equal(t, fixedNow, s.Result.RetrievedAt, "retrievedAt is local time of receipt")
}

func TestController_NotFound(t *testing.T) {
	f := newGatedFetcher("Atlantis")
	c := newController(f)

	c.Submit(context.Background(), "Atlantis")
	f.release("Atlantis", fetchResult{err: fmt.Errorf("%w: Atlantis", lookup.ErrNotFound)})
	c.Wait()

	assert.Equal(t, lookup.Failed{Kind: lookup.NotFound}, c.State())
}

func TestController_NetworkFailure(t *testing.T) {
	f := newGatedFetcher("Londrina")
	c := newController(f)

	c.Submit(context.Background(), "Londrina")
	f.release("Londrina", fetchResult{err: fmt.Errorf("%w: connection refused", lookup.ErrUnavailable)})
	c.Wait()

	assert.Equal(t, lookup.Failed{Kind: lookup.Unavailable}, c.State())
}

func TestController_UnclassifiedErrorIsUnavailable(t *testing.T) {
	f := newGatedFetcher("Londrina")
	c := newController(f)

	c.Submit(context.Background(), "Londrina")
	f.release("Londrina", fetchResult{err: fmt.Errorf("boom")})
	c.Wait()

	assert.Equal(t, lookup.Failed{Kind: lookup.Unavailable}, c.State())
}

func TestController_NilResponseIsUnavailable(t *testing.T) {
	f := newGatedFetcher("Londrina")
	c := newController(f)

	c.Submit(context.Background(), "Londrina")
	f.release("Londrina", fetchResult{})
	c.Wait()

	assert.Equal(t, lookup.Failed{Kind: lookup.Unavailable}, c.State())
}

func TestController_LastSubmitWins(t *testing.T) {
	f := newGatedFetcher("A", "B")
	c := newController(f)

	var mu sync.Mutex
	var seen []lookup.DisplayState
	c.Subscribe(func(s lookup.DisplayState) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	c.Submit(context.Background(), "A")
	c.Submit(context.Background(), "B")

	bResp := sorrisoResponse()
	bResp.City = "B"
	f.release("B", fetchResult{resp: bResp})
	require.Eventually(t, func() bool {
		_, ok := c.State().(lookup.Success)
		return ok
	}, time.Second, 5*time.Millisecond)

	aResp := sorrisoResponse()
	aResp.City = "A"
	f.release("A", fetchResult{resp: aResp})
	c.Wait()

	s, ok := c.State().(lookup.Success)
	require.True(t, ok)
	assert.Equal(t, "B", s.Result.City)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.Equal(t, lookup.Loading{Query: "A"}, seen[0])
	assert.Equal(t, lookup.Loading{Query: "B"}, seen[1])
	assert.IsType(t, lookup.Success{}, seen[2])
}

func TestController_SupersededFailureIsDiscarded(t *testing.T) {
	f := newGatedFetcher("A", "B")
	c := newController(f)

	c.Submit(context.Background(), "A")
	c.Submit(context.Background(), "B")

	f.release("A", fetchResult{err: fmt.Errorf("%w: A", lookup.ErrNotFound)})
	require.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, lookup.Loading{Query: "B"}, c.State())

	f.release("B", fetchResult{resp: sorrisoResponse()})
	c.Wait()
	assert.IsType(t, lookup.Success{}, c.State())
}

func TestController_SupersededRequestIsCancelled(t *testing.T) {
	cancelled := make(chan struct{})
	fetcher := funcFetcher(func(ctx context.Context, city string) (*lookup.Response, error) {
		if city == "A" {
			<-ctx.Done()
			close(cancelled)
			return nil, fmt.Errorf("%w: %w", lookup.ErrUnavailable, ctx.Err())
		}
		return sorrisoResponse(), nil
	})
	c := newController(fetcher)

	c.Submit(context.Background(), "A")
	c.Submit(context.Background(), "B")

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("superseded request was not cancelled")
	}
	c.Wait()
	assert.IsType(t, lookup.Success{}, c.State())
}

func TestController_ResubmitAfterFailure(t *testing.T) {
	f := newGatedFetcher("Atlantis", "Sorriso")
	c := newController(f)

	c.Submit(context.Background(), "Atlantis")
	f.release("Atlantis", fetchResult{err: lookup.ErrNotFound})
	c.Wait()
	require.Equal(t, lookup.Failed{Kind: lookup.NotFound}, c.State())

	c.Submit(context.Background(), "Sorriso")
	assert.Equal(t, lookup.Loading{Query: "Sorriso"}, c.State(), "prior error payload is cleared")
	f.release("Sorriso", fetchResult{resp: sorrisoResponse()})
	c.Wait()
	assert.IsType(t, lookup.Success{}, c.State())
}

func TestController_WithHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/weather/Atlantis" {
			http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
			return
		}
		jsonHandler(t, http.StatusOK, sorrisoFlat())(w, r)
	}))
	defer srv.Close()

	c := newController(lookup.NewClient(srv.URL, ""))

	c.Submit(context.Background(), "Atlantis")
	c.Wait()
	assert.Equal(t, lookup.Failed{Kind: lookup.NotFound}, c.State())

	c.Submit(context.Background(), "Sorriso")
	c.Wait()
	s, ok := c.State().(lookup.Success)
	require.True(t, ok)
	assert.Equal(t, 28.5, s.Result.Reading.Temperature)
	assert.Equal(t, condition.PartlyCloudy, s.Result.Reading.Condition())
}

func TestController_LogsServerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newGatedFetcher("Sorriso")
	c := lookup.NewControllerWithClock(f, log, func() time.Time { return fixedNow })

	c.Submit(context.Background(), "Sorriso")
	f.release("Sorriso", fetchResult{resp: sorrisoResponse()})
	c.Wait()

	assert.Contains(t, buf.String(), "server_retrieved_at=2020-01-01T00:00:00")
}
