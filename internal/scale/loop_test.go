package scale

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxibertaina03/balanza-industrial/internal/protocol"
)

// memPublisher records every published state for assertions.
type memPublisher struct {
	mu      sync.Mutex
	entries []publishedEntry
}

type publishedEntry struct {
	weight    float64
	acquiring bool
	status    string
}

func (p *memPublisher) Publish(weightKg float64, acquiring bool, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, publishedEntry{weightKg, acquiring, status})
}

func (p *memPublisher) last() publishedEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) == 0 {
		return publishedEntry{}
	}
	return p.entries[len(p.entries)-1]
}

func (p *memPublisher) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.status
	}
	return out
}

// waitForStatus polls until a published status satisfies match.
func (p *memPublisher) waitForStatus(t *testing.T, match func(string) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, s := range p.statuses() {
			if match(s) {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("status never matched; published: %v", p.statuses())
}

// scriptSource serves frames from a channel; a closed channel yields failErr.
type scriptSource struct {
	frames  chan []byte
	failErr error

	mu     sync.Mutex
	closed bool
}

func newScriptSource(failErr error) *scriptSource {
	return &scriptSource{frames: make(chan []byte, 16), failErr: failErr}
}

func (s *scriptSource) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame, ok := <-s.frames:
		if !ok {
			return nil, s.failErr
		}
		return frame, nil
	}
}

func (s *scriptSource) Describe() string { return "script" }

func (s *scriptSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *scriptSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type memRecorder struct {
	mu      sync.Mutex
	err     error
	entries []recordedReading
}

type recordedReading struct {
	weight   float64
	valid    bool
	protocol string
}

func (r *memRecorder) RecordReading(weightKg float64, valid bool, protocol, rawHex string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedReading{weightKg, valid, protocol})
	return r.err
}

func (r *memRecorder) recorded() []recordedReading {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedReading(nil), r.entries...)
}

func newTestLoop(src Source, pub Publisher, rec Recorder) *Loop {
	open := func(context.Context) (Source, error) { return src, nil }
	return NewLoop(protocol.NewEL05(10), open, pub, rec, time.Millisecond)
}

func TestLoopPublishesDecodedWeights(t *testing.T) {
	src := newScriptSource(nil)
	src.frames <- []byte("M000123\r")
	pub := &memPublisher{}
	rec := &memRecorder{}
	loop := newTestLoop(src, pub, rec)

	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	pub.waitForStatus(t, func(s string) bool { return s == "Leyendo: 12.30 kg" })

	require.Eventually(t, func() bool { return len(rec.recorded()) >= 1 }, time.Second, time.Millisecond)
	assert.Equal(t, recordedReading{12.3, true, "el05"}, rec.recorded()[0])
}

func TestLoopStopReleasesSource(t *testing.T) {
	src := newScriptSource(nil)
	src.frames <- []byte("M000010\r")
	pub := &memPublisher{}
	loop := newTestLoop(src, pub, nil)

	require.NoError(t, loop.Start(context.Background()))
	pub.waitForStatus(t, func(s string) bool { return strings.HasPrefix(s, "Leyendo") })

	loop.Stop()

	assert.True(t, src.isClosed(), "source not closed after Stop")
	assert.Equal(t, Idle, loop.State())

	last := pub.last()
	assert.Equal(t, "Detenido", last.status)
	assert.False(t, last.acquiring)
	assert.Zero(t, last.weight)
}

func TestLoopRejectsConcurrentStart(t *testing.T) {
	src := newScriptSource(nil)
	pub := &memPublisher{}
	loop := newTestLoop(src, pub, nil)

	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	assert.ErrorIs(t, loop.Start(context.Background()), ErrAlreadyAcquiring)
}

func TestLoopOpenFailureReturnsToIdle(t *testing.T) {
	boom := errors.New("no such port")
	open := func(context.Context) (Source, error) { return nil, boom }
	pub := &memPublisher{}
	loop := NewLoop(protocol.NewEL05(10), open, pub, nil, time.Millisecond)

	err := loop.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Idle, loop.State())

	last := pub.last()
	assert.False(t, last.acquiring)
	assert.Contains(t, last.status, "Error conexión")

	// A failed start must not wedge the loop.
	src := newScriptSource(nil)
	loop2 := newTestLoop(src, pub, nil)
	require.NoError(t, loop2.Start(context.Background()))
	loop2.Stop()
}

func TestLoopSourceErrorPublishesDisconnected(t *testing.T) {
	src := newScriptSource(errors.New("device unplugged"))
	src.frames <- []byte("M000010\r")
	close(src.frames)
	pub := &memPublisher{}
	loop := newTestLoop(src, pub, nil)

	require.NoError(t, loop.Start(context.Background()))
	pub.waitForStatus(t, func(s string) bool { return strings.HasPrefix(s, "Desconectado") })

	loop.Stop()
	assert.Equal(t, Idle, loop.State())
	assert.True(t, src.isClosed())
}

func TestLoopInvalidFrameContinuesAcquiring(t *testing.T) {
	src := newScriptSource(nil)
	src.frames <- []byte("????\r")
	src.frames <- []byte("M000555\r")
	pub := &memPublisher{}
	rec := &memRecorder{}
	loop := newTestLoop(src, pub, rec)

	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	pub.waitForStatus(t, func(s string) bool { return s == "Leyendo: 55.50 kg" })

	var sawInvalid bool
	for _, e := range pub.statuses() {
		if e == "Esperando datos válidos" {
			sawInvalid = true
		}
	}
	assert.True(t, sawInvalid, "invalid frame never published; statuses: %v", pub.statuses())

	require.Eventually(t, func() bool { return len(rec.recorded()) == 2 }, time.Second, time.Millisecond)
	got := rec.recorded()
	assert.Equal(t, recordedReading{0, false, "el05"}, got[0])
	assert.Equal(t, recordedReading{55.5, true, "el05"}, got[1])
}

func TestLoopInvalidFrameStatusMatchesProtocol(t *testing.T) {
	src := newScriptSource(nil)
	src.frames <- []byte("KG\n")
	pub := &memPublisher{}
	open := func(context.Context) (Source, error) { return src, nil }
	loop := NewLoop(protocol.Cond{}, open, pub, nil, time.Millisecond)

	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	pub.waitForStatus(t, func(s string) bool { return s == "Dato inválido" })
}

func TestLoopRecorderFailureDoesNotStopAcquisition(t *testing.T) {
	src := newScriptSource(nil)
	src.frames <- []byte("M000010\r")
	src.frames <- []byte("M000020\r")
	pub := &memPublisher{}
	rec := &memRecorder{err: errors.New("db locked")}
	loop := newTestLoop(src, pub, rec)

	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop()

	pub.waitForStatus(t, func(s string) bool { return s == "Leyendo: 2.00 kg" })
	require.Eventually(t, func() bool { return len(rec.recorded()) == 2 }, time.Second, time.Millisecond)
}

func TestLoopStopOnIdleIsNoOp(t *testing.T) {
	loop := newTestLoop(newScriptSource(nil), &memPublisher{}, nil)
	loop.Stop()
	assert.Equal(t, Idle, loop.State())
}

func TestLoopCanRestartAfterStop(t *testing.T) {
	src := newScriptSource(nil)
	src.frames <- []byte("M000010\r")
	pub := &memPublisher{}
	loop := newTestLoop(src, pub, nil)

	require.NoError(t, loop.Start(context.Background()))
	loop.Stop()

	src2 := newScriptSource(nil)
	src2.frames <- []byte("M000030\r")
	loop.open = func(context.Context) (Source, error) { return src2, nil }

	require.NoError(t, loop.Start(context.Background()))
	pub.waitForStatus(t, func(s string) bool { return s == "Leyendo: 3.00 kg" })
	loop.Stop()
}
