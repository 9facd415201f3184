package livestate

import (
	"sync"
	"testing"
	"time"

	"github.com/maxibertaina03/balanza-industrial/internal/store"
)

func TestSnapshotDefaultsToStopped(t *testing.T) {
	s := NewStore()
	got := s.Snapshot()

	if got.WeightKg != 0 || got.Acquiring || got.Status != StatusStopped {
		t.Errorf("default snapshot = %+v, want stopped zero state", got)
	}
	if got.LastUpdate.IsZero() {
		t.Error("default snapshot has zero timestamp")
	}
}

func TestPublishThenSnapshot(t *testing.T) {
	s := NewStore()
	s.Publish(12.34, true, "Leyendo")

	got := s.Snapshot()
	if got.WeightKg != 12.34 || !got.Acquiring || got.Status != "Leyendo" {
		t.Errorf("snapshot = %+v, want {12.34 true Leyendo}", got)
	}
}

// A reader must never observe a weight from one publish paired with a status
// from another.
func TestSnapshotNeverInterleavesWrites(t *testing.T) {
	s := NewStore()
	pairs := map[float64]string{
		1.0: "uno",
		2.0: "dos",
		3.0: "tres",
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			for w, st := range pairs {
				s.Publish(w, true, st)
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
			got := s.Snapshot()
			if got.Status == StatusStopped {
				continue // initial state
			}
			if want := pairs[got.WeightKg]; want != got.Status {
				t.Fatalf("interleaved snapshot: weight %v paired with status %q", got.WeightKg, got.Status)
			}
		}
	}
}

func TestSubscribeReceivesPublishes(t *testing.T) {
	s := NewStore()
	id, ch := s.Subscribe()
	defer s.Unsubscribe(id)

	s.Publish(50, true, "Leyendo: 50.00 kg")

	select {
	case got := <-ch:
		if got.WeightKg != 50 {
			t.Errorf("subscriber got weight %v, want 50", got.WeightKg)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the published state")
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	s := NewStore()
	id, _ := s.Subscribe() // never drained
	defer s.Unsubscribe(id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			s.Publish(float64(i), true, "Leyendo")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := NewStore()
	id, ch := s.Subscribe()
	s.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("channel still open after Unsubscribe")
	}
	// Unsubscribing twice is harmless.
	s.Unsubscribe(id)
}

func TestDocumentRoundTrip(t *testing.T) {
	fs := store.NewMemoryFileSystem()
	const path = "balanza_realtime.json"

	s := NewStore()
	s.SetMirror(DocumentMirror(fs, path))
	s.Publish(77.7, true, "Leyendo: 77.70 kg")

	restored := LoadDocument(fs, path)
	if restored.WeightKg != 77.7 || !restored.Acquiring || restored.Status != "Leyendo: 77.70 kg" {
		t.Errorf("restored state = %+v", restored)
	}
	if restored.LastUpdate.IsZero() {
		t.Error("restored state has zero timestamp")
	}
}

func TestLoadDocumentDefaults(t *testing.T) {
	fs := store.NewMemoryFileSystem()

	got := LoadDocument(fs, "missing.json")
	if got.WeightKg != 0 || got.Acquiring || got.Status != StatusStopped {
		t.Errorf("missing document state = %+v, want stopped default", got)
	}

	fs.WriteFile("corrupt.json", []byte("{{{"), 0o644)
	got = LoadDocument(fs, "corrupt.json")
	if got.Status != StatusStopped {
		t.Errorf("corrupt document state = %+v, want stopped default", got)
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Publish(float64(i), true, "Leyendo")
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()
}
