package livestate

import (
	"errors"
	"os"
	"time"

	"github.com/maxibertaina03/balanza-industrial/internal/monitoring"
	"github.com/maxibertaina03/balanza-industrial/internal/store"
)

// realtimeDoc is the persisted shared acquisition state document. Field names
// match the legacy realtime file so external tooling keeps working.
type realtimeDoc struct {
	Peso       float64 `json:"peso"`
	Reading    bool    `json:"reading"`
	LastUpdate float64 `json:"last_update"`
	Status     string  `json:"status"`
}

// LoadDocument reads the persisted realtime document and returns it as a
// State. A missing or unreadable document yields the default stopped state;
// an unreadable one is logged, never silent.
func LoadDocument(fs store.FileSystem, path string) State {
	var doc realtimeDoc
	if err := store.ReadJSON(fs, path, &doc); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			monitoring.Logf("realtime document unreadable, using stopped default: %v", err)
		}
		return State{Status: StatusStopped, LastUpdate: time.Now()}
	}
	status := doc.Status
	if status == "" {
		status = StatusStopped
	}
	sec := int64(doc.LastUpdate)
	nsec := int64((doc.LastUpdate - float64(sec)) * float64(time.Second))
	return State{
		WeightKg:   doc.Peso,
		Acquiring:  doc.Reading,
		Status:     status,
		LastUpdate: time.Unix(sec, nsec),
	}
}

// DocumentMirror returns a publish hook that rewrites the realtime document
// on every state change. Write failures are surfaced in the log but never
// interrupt acquisition.
func DocumentMirror(fs store.FileSystem, path string) func(State) {
	return func(s State) {
		doc := realtimeDoc{
			Peso:       s.WeightKg,
			Reading:    s.Acquiring,
			LastUpdate: float64(s.LastUpdate.UnixNano()) / float64(time.Second),
			Status:     s.Status,
		}
		if err := store.WriteJSON(fs, path, doc); err != nil {
			monitoring.Logf("realtime document write failed (latest value lost on restart): %v", err)
		}
	}
}
