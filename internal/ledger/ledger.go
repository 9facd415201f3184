package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/maxibertaina03/balanza-industrial/internal/monitoring"
)

var (
	// ErrIndexOutOfRange is returned by edit and delete operations that name
	// a record or expedition index that does not exist. No mutation happens.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNothingToArchive is returned when archiving an empty active record
	// list. No empty expedition is created.
	ErrNothingToArchive = errors.New("no records to archive")
)

// SaveFunc persists the ledger document. Save failures do not roll back the
// in-memory mutation: the data-loss risk is accepted and surfaced to the
// caller instead.
type SaveFunc func(Document) error

// Ledger is the exclusive owner of the active weigh-record history and the
// archived expeditions. All methods are safe for concurrent use.
type Ledger struct {
	mu   sync.Mutex
	doc  Document
	save SaveFunc
}

// New builds a Ledger around a loaded document. Records are normalized so
// documents written by older versions load cleanly. save may be nil for an
// in-memory ledger.
func New(doc Document, save SaveFunc) *Ledger {
	for i := range doc.CurrentHistory {
		doc.CurrentHistory[i].normalize()
	}
	for i := range doc.Expeditions {
		for j := range doc.Expeditions[i].Records {
			doc.Expeditions[i].Records[j].normalize()
		}
	}
	return &Ledger{doc: doc, save: save}
}

// persist writes the document through the save hook. Callers must hold mu.
func (l *Ledger) persist() error {
	if l.save == nil {
		return nil
	}
	if err := l.save(l.doc); err != nil {
		monitoring.Logf("ledger save failed (in-memory state kept): %v", err)
		return fmt.Errorf("ledger saved in memory but not persisted: %w", err)
	}
	return nil
}

// Add appends a record to the active history. A record without an ID gets a
// fresh one.
func (l *Ledger) Add(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.normalize()
	l.doc.CurrentHistory = append(l.doc.CurrentHistory, rec)
	l.doc.LastProduct = rec.Product
	return l.persist()
}

// Replace swaps the active record at index for rec. The stored record's ID is
// kept so the entity identity survives edits.
func (l *Ledger) Replace(index int, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.doc.CurrentHistory) {
		return fmt.Errorf("replace record %d: %w", index, ErrIndexOutOfRange)
	}
	rec.ID = l.doc.CurrentHistory[index].ID
	rec.normalize()
	l.doc.CurrentHistory[index] = rec
	return l.persist()
}

// Remove deletes the active record at index.
func (l *Ledger) Remove(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.doc.CurrentHistory) {
		return fmt.Errorf("remove record %d: %w", index, ErrIndexOutOfRange)
	}
	l.doc.CurrentHistory = append(l.doc.CurrentHistory[:index], l.doc.CurrentHistory[index+1:]...)
	return l.persist()
}

// Records returns a copy of the active history.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, len(l.doc.CurrentHistory))
	copy(out, l.doc.CurrentHistory)
	return out
}

// TotalNet returns the net total of the active history.
func (l *Ledger) TotalNet() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var sum float64
	for _, r := range l.doc.CurrentHistory {
		sum += r.NetKg
	}
	return Round(sum)
}

// LastProduct returns the most recently saved product name.
func (l *Ledger) LastProduct() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc.LastProduct
}

// ArchiveAll atomically moves the whole active history into a new expedition
// named after the date and a per-day sequence number starting at 1. Archiving
// an empty history is a no-op and returns ErrNothingToArchive.
func (l *Ledger) ArchiveAll(date string) (Expedition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.doc.CurrentHistory) == 0 {
		return Expedition{}, ErrNothingToArchive
	}

	seq := 1
	for _, e := range l.doc.Expeditions {
		if e.Date == date {
			seq++
		}
	}

	exp := Expedition{
		Date:    date,
		Name:    fmt.Sprintf("%s - Expedición %d", date, seq),
		Records: l.doc.CurrentHistory,
	}
	exp.TotalKg = exp.total()

	l.doc.Expeditions = append(l.doc.Expeditions, exp)
	l.doc.CurrentHistory = nil

	return copyExpedition(exp), l.persist()
}

// Expeditions returns a copy of all archived expeditions.
func (l *Ledger) Expeditions() []Expedition {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Expedition, len(l.doc.Expeditions))
	for i, e := range l.doc.Expeditions {
		out[i] = copyExpedition(e)
	}
	return out
}

// ReplaceExpeditionRecord swaps one record inside an archived expedition and
// recomputes the expedition total.
func (l *Ledger) ReplaceExpeditionRecord(expIndex, recIndex int, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.expedition(expIndex)
	if err != nil {
		return err
	}
	if recIndex < 0 || recIndex >= len(e.Records) {
		return fmt.Errorf("replace expedition record %d/%d: %w", expIndex, recIndex, ErrIndexOutOfRange)
	}
	rec.ID = e.Records[recIndex].ID
	rec.normalize()
	e.Records[recIndex] = rec
	e.TotalKg = e.total()
	return l.persist()
}

// RemoveExpeditionRecord deletes one record from an expedition and recomputes
// its total.
func (l *Ledger) RemoveExpeditionRecord(expIndex, recIndex int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.expedition(expIndex)
	if err != nil {
		return err
	}
	if recIndex < 0 || recIndex >= len(e.Records) {
		return fmt.Errorf("remove expedition record %d/%d: %w", expIndex, recIndex, ErrIndexOutOfRange)
	}
	e.Records = append(e.Records[:recIndex], e.Records[recIndex+1:]...)
	e.TotalKg = e.total()
	return l.persist()
}

// RemoveExpedition deletes a whole expedition.
func (l *Ledger) RemoveExpedition(expIndex int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expIndex < 0 || expIndex >= len(l.doc.Expeditions) {
		return fmt.Errorf("remove expedition %d: %w", expIndex, ErrIndexOutOfRange)
	}
	l.doc.Expeditions = append(l.doc.Expeditions[:expIndex], l.doc.Expeditions[expIndex+1:]...)
	return l.persist()
}

// RecomputeTotal refreshes an expedition's cached total from its records.
func (l *Ledger) RecomputeTotal(expIndex int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.expedition(expIndex)
	if err != nil {
		return err
	}
	e.TotalKg = e.total()
	return l.persist()
}

// expedition returns a pointer into the expeditions slice. Callers must hold mu.
func (l *Ledger) expedition(index int) (*Expedition, error) {
	if index < 0 || index >= len(l.doc.Expeditions) {
		return nil, fmt.Errorf("expedition %d: %w", index, ErrIndexOutOfRange)
	}
	return &l.doc.Expeditions[index], nil
}

func copyExpedition(e Expedition) Expedition {
	out := e
	out.Records = make([]Record, len(e.Records))
	copy(out.Records, e.Records)
	return out
}
