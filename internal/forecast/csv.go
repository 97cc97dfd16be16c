package forecast

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// LoadHistoryFromCSV seeds the rolling history from a CSV export. The
// hour column may be named "hora" or "hour", the price column
// "cmg_clp_kwh" or "costo_marginal"; an optional "fecha" column orders
// rows chronologically. Malformed rows are skipped individually; a
// missing or unreadable file loads zero rows, never an error.
func (p *Predictor) LoadHistoryFromCSV(path string) int {
	f, err := os.Open(path)
	if err != nil {
		p.logger.Warn("history seed skipped", "node", p.node, "path", path, "reason", err.Error())
		return 0
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		p.logger.Warn("history seed skipped", "node", p.node, "path", path, "reason", "unreadable header")
		return 0
	}

	col := func(names ...string) int {
		for _, want := range names {
			for i, name := range header {
				if strings.EqualFold(strings.TrimSpace(name), want) {
					return i
				}
			}
		}
		return -1
	}
	dateIdx := col("fecha", "date")
	hourIdx := col("hora", "hour")
	priceIdx := col("cmg_clp_kwh", "costo_marginal")
	if hourIdx < 0 || priceIdx < 0 {
		p.logger.Warn("history seed skipped", "node", p.node, "path", path,
			"reason", "missing hour or price column")
		return 0
	}

	type seedRow struct {
		date string
		hour string
		rec  []string
	}
	var rows []seedRow
	for {
		rec, rerr := reader.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			continue
		}
		r := seedRow{rec: rec}
		if dateIdx >= 0 && dateIdx < len(rec) {
			r.date = rec[dateIdx]
		}
		if hourIdx < len(rec) {
			r.hour = rec[hourIdx]
		}
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].date != rows[j].date {
			return rows[i].date < rows[j].date
		}
		return rows[i].hour < rows[j].hour
	})

	// Only the most recent window's worth of rows matters
	if len(rows) > p.historyWindow {
		rows = rows[len(rows)-p.historyWindow:]
	}

	count := 0
	p.mu.Lock()
	for _, r := range rows {
		if hourIdx >= len(r.rec) || priceIdx >= len(r.rec) {
			continue
		}
		hourVal, herr := strconv.ParseFloat(strings.TrimSpace(r.rec[hourIdx]), 64)
		if herr != nil {
			continue
		}
		price, perr := strconv.ParseFloat(strings.TrimSpace(r.rec[priceIdx]), 64)
		if perr != nil {
			continue
		}
		p.updateLocked(int(hourVal), price)
		count++
	}
	p.mu.Unlock()

	p.logger.Info("price history seeded", "node", p.node, "path", path, "rows", count)
	return count
}
