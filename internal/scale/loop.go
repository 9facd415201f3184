package scale

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/maxibertaina03/balanza-industrial/internal/monitoring"
	"github.com/maxibertaina03/balanza-industrial/internal/protocol"
)

// LoopState is the acquisition loop's lifecycle phase.
type LoopState int

const (
	// Idle means no acquisition goroutine is running.
	Idle LoopState = iota
	// Connecting means Start is opening the frame source.
	Connecting
	// Acquiring means the loop is reading and publishing frames.
	Acquiring
	// Stopping means a stop was requested and the loop is winding down.
	Stopping
)

func (s LoopState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Acquiring:
		return "acquiring"
	case Stopping:
		return "stopping"
	}
	return fmt.Sprintf("LoopState(%d)", int(s))
}

// ErrAlreadyAcquiring is returned by Start when a loop is already running.
var ErrAlreadyAcquiring = errors.New("acquisition already running")

// Publisher receives every decoded reading and status change. Satisfied by
// livestate.Store.
type Publisher interface {
	Publish(weightKg float64, acquiring bool, status string)
}

// Recorder persists readings for the audit trail. Satisfied by db.DB.
type Recorder interface {
	RecordReading(weightKg float64, valid bool, protocol, rawHex string) error
}

// OpenSourceFunc opens the frame source when acquisition starts. It is called
// once per Start so a reconnect gets a fresh port.
type OpenSourceFunc func(ctx context.Context) (Source, error)

// DefaultPace is the delay between consecutive frames, keeping display
// updates readable and the serial line from being polled hot.
const DefaultPace = 100 * time.Millisecond

// Loop drives acquisition: it opens a source, reads frames, decodes them and
// publishes the result until stopped or the source fails. At most one
// acquisition goroutine runs at a time.
type Loop struct {
	decoder protocol.Decoder
	open    OpenSourceFunc
	pub     Publisher
	rec     Recorder
	pace    time.Duration

	// invalidStatus is the operator-facing text for an undecodable frame.
	// The two scale models report this differently on their displays.
	invalidStatus string

	mu     sync.Mutex
	state  LoopState
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop builds an acquisition loop. rec may be nil when readings are not
// persisted. pace <= 0 selects DefaultPace.
func NewLoop(decoder protocol.Decoder, open OpenSourceFunc, pub Publisher, rec Recorder, pace time.Duration) *Loop {
	if pace <= 0 {
		pace = DefaultPace
	}
	invalid := "Dato inválido"
	if decoder.Name() == "el05" {
		invalid = "Esperando datos válidos"
	}
	return &Loop{decoder: decoder, open: open, pub: pub, rec: rec, pace: pace, invalidStatus: invalid}
}

// State reports the loop's current phase.
func (l *Loop) State() LoopState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start opens the source and launches the acquisition goroutine. It returns
// ErrAlreadyAcquiring if the loop is not idle. ctx bounds the whole
// acquisition; cancelling it is equivalent to Stop.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state != Idle {
		l.mu.Unlock()
		return ErrAlreadyAcquiring
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.state = Connecting
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	l.pub.Publish(0, true, "Iniciando...")

	src, err := l.open(runCtx)
	if err != nil {
		cancel()
		close(done)
		l.setState(Idle)
		l.pub.Publish(0, false, fmt.Sprintf("Error conexión: %v", err))
		return fmt.Errorf("open scale source: %w", err)
	}

	l.setState(Acquiring)
	l.pub.Publish(0, true, "Conectado a "+src.Describe())

	go func() {
		defer close(done)
		l.run(runCtx, src)
	}()
	return nil
}

// Stop requests a stop and waits for the acquisition goroutine to release the
// source. Stop on an idle loop is a no-op. The wait is bounded by the
// source's read timeout.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.state == Connecting || l.state == Acquiring {
		l.state = Stopping
		if l.cancel != nil {
			l.cancel()
		}
	}
	done := l.done
	l.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (l *Loop) setState(s LoopState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Loop) run(ctx context.Context, src Source) {
	defer func() {
		if err := src.Close(); err != nil {
			monitoring.Logf("error closing scale source %s: %v", src.Describe(), err)
		}
		l.setState(Idle)
	}()

	for {
		frame, err := src.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				l.pub.Publish(0, false, "Detenido")
				return
			}
			monitoring.Logf("scale source %s failed: %v", src.Describe(), err)
			l.pub.Publish(0, false, fmt.Sprintf("Desconectado: %v", err))
			return
		}

		reading, err := l.decoder.Decode(frame)
		if err != nil {
			l.pub.Publish(0, true, l.invalidStatus)
			l.record(0, false, reading.RawHex)
		} else {
			l.pub.Publish(reading.WeightKg, true, fmt.Sprintf("Leyendo: %.2f kg", reading.WeightKg))
			l.record(reading.WeightKg, reading.Valid, reading.RawHex)
		}

		select {
		case <-ctx.Done():
			l.pub.Publish(0, false, "Detenido")
			return
		case <-time.After(l.pace):
		}
	}
}

// record persists a reading when a recorder is configured. Persistence
// failures never interrupt acquisition.
func (l *Loop) record(weightKg float64, valid bool, rawHex string) {
	if l.rec == nil {
		return
	}
	if err := l.rec.RecordReading(weightKg, valid, l.decoder.Name(), rawHex); err != nil {
		monitoring.Logf("failed to record reading: %v", err)
	}
}
