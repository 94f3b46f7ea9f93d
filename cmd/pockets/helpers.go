package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/poverty-pockets/pockets-backend/internal/join"
	"github.com/poverty-pockets/pockets-backend/internal/tabular"
)

// joinedFile is the on-disk form of a joined dataset.
type joinedFile struct {
	Kind    string                    `json:"kind"`
	Records map[string]tabular.Record `json:"records"`
	Aliases map[string]string         `json:"aliases,omitempty"`
}

func newJoinedFile(kind string, d *join.Dataset) joinedFile {
	out := joinedFile{Kind: kind, Records: map[string]tabular.Record{}, Aliases: d.Aliases()}
	for _, id := range d.Keys() {
		rec, _ := d.Lookup(id)
		out.Records[id] = rec
	}
	return out
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// writeJSON writes v to path, or to w when path is empty or "-".
func writeJSON(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')
	if path == "" || path == "-" {
		_, err = w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
