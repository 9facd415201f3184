package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/maxibertaina03/balanza-industrial/internal/catalog"
	"github.com/maxibertaina03/balanza-industrial/internal/ledger"
)

// catalogEntry is one product or tray with its tare weight. Arrays keep the
// catalog's sorted order; JSON objects would not.
type catalogEntry struct {
	Name string  `json:"name"`
	Kg   float64 `json:"kg"`
}

func (s *Server) showCatalog(w http.ResponseWriter, r *http.Request) {
	products := make([]catalogEntry, 0, len(catalog.Products()))
	for _, name := range catalog.Products() {
		kg, _ := catalog.BoxWeight(name)
		products = append(products, catalogEntry{Name: name, Kg: kg})
	}
	trays := make([]catalogEntry, 0, len(catalog.Trays()))
	for _, name := range catalog.Trays() {
		kg, _ := catalog.TrayWeight(name)
		trays = append(trays, catalogEntry{Name: name, Kg: kg})
	}
	s.writeJSON(w, http.StatusOK, map[string][]catalogEntry{
		"products": products,
		"trays":    trays,
	})
}

// recordRequest is the operator-entered part of a weigh record. The net
// weight is always derived server-side from the catalog tares.
type recordRequest struct {
	Product   string  `json:"producto"`
	Boxes     int     `json:"cajas"`
	Tray      string  `json:"bandeja"`
	TrayCount int     `json:"cant_bandeja"`
	PalletKg  float64 `json:"pallet"`
	GrossKg   float64 `json:"bruto"`
	Lot       string  `json:"lote"`
	Units     int     `json:"hormas"`
	Timestamp string  `json:"timestamp"`
}

// buildRecord validates the request against the catalog and derives the net
// weight.
func (s *Server) buildRecord(req recordRequest) (ledger.Record, error) {
	boxKg, ok := catalog.BoxWeight(req.Product)
	if !ok {
		return ledger.Record{}, fmt.Errorf("unknown product %q", req.Product)
	}

	tray := req.Tray
	if tray == "" {
		tray = catalog.NoTray
	}
	trayKg, ok := catalog.TrayWeight(tray)
	if !ok {
		return ledger.Record{}, fmt.Errorf("unknown tray %q", tray)
	}

	if req.Boxes < 0 || req.TrayCount < 0 || req.Units < 0 {
		return ledger.Record{}, errors.New("counts must not be negative")
	}
	if req.PalletKg < 0 {
		return ledger.Record{}, errors.New("pallet weight must not be negative")
	}
	if req.GrossKg < 0 {
		return ledger.Record{}, errors.New("gross weight must not be negative")
	}

	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = time.Now().Format("02/01/2006 15:04:05")
	}

	return ledger.Record{
		Product:   req.Product,
		Boxes:     req.Boxes,
		Tray:      tray,
		TrayCount: req.TrayCount,
		PalletKg:  req.PalletKg,
		GrossKg:   req.GrossKg,
		NetKg:     ledger.NetWeight(req.GrossKg, req.PalletKg, req.Boxes, boxKg, req.TrayCount, trayKg),
		Lot:       req.Lot,
		Units:     req.Units,
		Timestamp: timestamp,
	}, nil
}

// activeHistory is the response payload for every active-record route.
type activeHistory struct {
	Records     []ledger.Record `json:"current_history"`
	TotalKg     float64         `json:"total"`
	LastProduct string          `json:"last_product"`
}

func (s *Server) currentHistory() activeHistory {
	return activeHistory{
		Records:     s.ledger.Records(),
		TotalKg:     s.ledger.TotalNet(),
		LastProduct: s.ledger.LastProduct(),
	}
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.currentHistory())
}

func (s *Server) addRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rec, err := s.buildRecord(req)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ledger.Add(rec); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to persist record: %v", err))
		return
	}
	s.writeJSON(w, http.StatusCreated, s.currentHistory())
}

func (s *Server) replaceRecord(w http.ResponseWriter, r *http.Request) {
	index, ok := s.pathIndex(w, r, "index")
	if !ok {
		return
	}
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rec, err := s.buildRecord(req)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ledger.Replace(index, rec); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.currentHistory())
}

func (s *Server) removeRecord(w http.ResponseWriter, r *http.Request) {
	index, ok := s.pathIndex(w, r, "index")
	if !ok {
		return
	}
	if err := s.ledger.Remove(index); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.currentHistory())
}

func (s *Server) archiveRecords(w http.ResponseWriter, r *http.Request) {
	date := time.Now().Format("02/01/06")
	exp, err := s.ledger.ArchiveAll(date)
	if err != nil {
		if errors.Is(err, ledger.ErrNothingToArchive) {
			s.writeJSONError(w, http.StatusBadRequest, "No records to archive")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to archive records: %v", err))
		return
	}
	s.writeJSON(w, http.StatusCreated, exp)
}

func (s *Server) listExpeditions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]ledger.Expedition{
		"expeditions": s.ledger.Expeditions(),
	})
}

func (s *Server) removeExpedition(w http.ResponseWriter, r *http.Request) {
	exp, ok := s.pathIndex(w, r, "exp")
	if !ok {
		return
	}
	if err := s.ledger.RemoveExpedition(exp); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) replaceExpeditionRecord(w http.ResponseWriter, r *http.Request) {
	exp, ok := s.pathIndex(w, r, "exp")
	if !ok {
		return
	}
	index, ok := s.pathIndex(w, r, "index")
	if !ok {
		return
	}
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rec, err := s.buildRecord(req)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ledger.ReplaceExpeditionRecord(exp, index, rec); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) removeExpeditionRecord(w http.ResponseWriter, r *http.Request) {
	exp, ok := s.pathIndex(w, r, "exp")
	if !ok {
		return
	}
	index, ok := s.pathIndex(w, r, "index")
	if !ok {
		return
	}
	if err := s.ledger.RemoveExpeditionRecord(exp, index); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// pathIndex parses a numeric path segment; a malformed one is answered with
// 400 and ok=false.
func (s *Server) pathIndex(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	value, err := strconv.Atoi(r.PathValue(name))
	if err != nil || value < 0 {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid '%s' parameter", name))
		return 0, false
	}
	return value, true
}

func (s *Server) writeLedgerError(w http.ResponseWriter, err error) {
	if errors.Is(err, ledger.ErrIndexOutOfRange) {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to persist ledger: %v", err))
}
