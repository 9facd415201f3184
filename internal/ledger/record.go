// Package ledger owns the weigh-record history and its archived expeditions.
// All mutation goes through the Ledger type; viewers only ever get copies.
package ledger

import (
	"math"

	"github.com/google/uuid"
)

// StoragePrecision is the number of decimal places weights are rounded to
// before storage.
const StoragePrecision = 3

// Record is one weigh record: a gross scale reading combined with the
// operator-entered tare components and the derived net weight. JSON field
// names match the persisted ledger document.
type Record struct {
	ID        string  `json:"id,omitempty"`
	Product   string  `json:"producto"`
	Boxes     int     `json:"cajas"`
	Tray      string  `json:"bandeja"`
	TrayCount int     `json:"cant_bandeja"`
	PalletKg  float64 `json:"pallet"`
	GrossKg   float64 `json:"bruto"`
	NetKg     float64 `json:"neto"`
	Lot       string  `json:"lote"`
	Units     int     `json:"hormas"`
	Timestamp string  `json:"timestamp"`
}

// Expedition is an archived batch of weigh records grouped for shipment.
// TotalKg is derived from the records and recomputed whenever they change.
type Expedition struct {
	Date    string   `json:"date"`
	Name    string   `json:"name"`
	TotalKg float64  `json:"total"`
	Records []Record `json:"records"`
}

// Document is the persisted ledger document.
type Document struct {
	CurrentHistory []Record     `json:"current_history"`
	Expeditions    []Expedition `json:"expeditions"`
	LastProduct    string       `json:"last_product"`
}

// NetWeight computes the net weight of a pallet: gross minus pallet tare,
// box weight, and tray weight, rounded to the storage precision. A negative
// result is allowed; it is the operator's job to notice.
func NetWeight(grossKg, palletKg float64, boxes int, boxKg float64, trays int, trayKg float64) float64 {
	net := grossKg - palletKg - float64(boxes)*boxKg - float64(trays)*trayKg
	return Round(net)
}

// Round rounds a weight to the storage precision.
func Round(kg float64) float64 {
	shift := math.Pow(10, StoragePrecision)
	return math.Round(kg*shift) / shift
}

// newRecordID returns a stable identifier for a new record.
func newRecordID() string {
	return uuid.New().String()
}

// normalize fills defaults for fields older documents may lack and assigns an
// ID to records that predate stable identifiers.
func (r *Record) normalize() {
	if r.ID == "" {
		r.ID = newRecordID()
	}
	if r.Timestamp == "" {
		r.Timestamp = "Sin fecha"
	}
}

// total sums the net weight of the expedition's records at storage precision.
func (e *Expedition) total() float64 {
	var sum float64
	for _, r := range e.Records {
		sum += r.NetKg
	}
	return Round(sum)
}
