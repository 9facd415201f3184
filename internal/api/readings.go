package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// queryInt parses an optional positive integer query parameter. A missing
// value yields def; a malformed one yields ok=false after a 400 response.
func (s *Server) queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid '%s' parameter", name))
		return 0, false
	}
	return value, true
}

func (s *Server) listReadings(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSONError(w, http.StatusNotFound, "Reading history disabled")
		return
	}
	limit, ok := s.queryInt(w, r, "limit", 100)
	if !ok {
		return
	}
	readings, err := s.history.Readings(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve readings: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, readings)
}

func (s *Server) showReadingStats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSONError(w, http.StatusNotFound, "Reading history disabled")
		return
	}
	days, ok := s.queryInt(w, r, "days", 7)
	if !ok {
		return
	}
	stats, err := s.history.ReadingStats(days)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve reading stats: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// weightChart renders a line chart of the most recent valid readings. A
// debugging view for checking the scale without the full UI.
func (s *Server) weightChart(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSONError(w, http.StatusNotFound, "Reading history disabled")
		return
	}
	limit, ok := s.queryInt(w, r, "limit", 200)
	if !ok {
		return
	}
	readings, err := s.history.Readings(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve readings: %v", err))
		return
	}

	// Readings arrive newest first; the chart wants chronological order.
	x := make([]string, 0, len(readings))
	y := make([]opts.LineData, 0, len(readings))
	for i := len(readings) - 1; i >= 0; i-- {
		rd := readings[i]
		if !rd.Valid {
			continue
		}
		x = append(x, rd.Timestamp.Format("15:04:05"))
		y = append(y, opts.LineData{Value: rd.WeightKg})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Peso (kg)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(x).AddSeries("peso", y)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
