
package ioformats

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"htmlspider/internal/models"
)

// ReadTargets reads crawl targets from a CSV (expects header with "url") or
// NDJSON file. If ext cannot be determined, tries CSV first then NDJSON.
func ReadTargets(path string) ([]models.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTargetsFrom(f, path)
}

// ReadTargetsFrom is ReadTargets over an open file; name only picks the format.
func ReadTargetsFrom(r io.ReadSeeker, name string) ([]models.Target, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return ReadCSV(r)
	case ".ndjson", ".jsonl":
		return ReadNDJSON(r)
	default:
		// try csv then ndjson
		if targets, err := ReadCSV(r); err == nil && len(targets) > 0 {
			return targets, nil
		}
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return ReadNDJSON(r)
	}
}

// ReadCSV needs a "url" header column. Optional "user_agent" and "referer"
// columns become request options.
func ReadCSV(r io.Reader) ([]models.Target, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty csv")
	}
	urlCol, uaCol, refCol := -1, -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "url":
			urlCol = i
		case "user_agent":
			uaCol = i
		case "referer":
			refCol = i
		}
	}
	if urlCol == -1 {
		return nil, errors.New("csv must contain a 'url' header column")
	}
	cell := func(row []string, col int) string {
		if col < 0 || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}
	var out []models.Target
	for _, row := range rows[1:] {
		u := cell(row, urlCol)
		if u == "" {
			continue
		}
		t := models.Target{URL: u}
		t.Options.UserAgent = cell(row, uaCol)
		if ref := cell(row, refCol); ref != "" {
			t.Options.Headers = map[string]string{"Referer": ref}
		}
		out = append(out, t)
	}
	return out, nil
}

// ReadNDJSON accepts one URL per line, either raw or as
// {"url": "...", "options": {...}}.
func ReadNDJSON(r io.Reader) ([]models.Target, error) {
	var out []models.Target
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "{") {
			var t models.Target
			if err := json.Unmarshal([]byte(text), &t); err != nil {
				return nil, fmt.Errorf("ndjson line %d: %w", line, err)
			}
			if t.URL == "" {
				return nil, fmt.Errorf("ndjson line %d: missing url", line)
			}
			out = append(out, t)
			continue
		}
		// fallback: treat whole line as url
		out = append(out, models.Target{URL: text})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no urls found in ndjson")
	}
	return out, nil
}

// WriteNDJSON writes any JSON-marshalable items as NDJSON to w.
func WriteNDJSON[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}
