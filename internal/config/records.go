package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/YvodeRooij/spendcube/pkg/spend"
	"gopkg.in/yaml.v3"
)

// recordFile is the object form of a record batch file
type recordFile struct {
	Records []spend.Record `json:"records" yaml:"records"`
}

// LoadRecords reads a batch of spend records from a .json, .yml or .yaml file.
// The file may hold either a bare list of records or an object with a "records" key.
func LoadRecords(path string) ([]spend.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	var unmarshal func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		unmarshal = json.Unmarshal
	case ".yml", ".yaml":
		unmarshal = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("unsupported records file extension: %q (expected .json, .yml or .yaml)", filepath.Ext(path))
	}

	var records []spend.Record
	if err := unmarshal(data, &records); err == nil && records != nil {
		return records, nil
	}

	var file recordFile
	if err := unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	if file.Records == nil {
		return nil, fmt.Errorf("records file %s has no records", path)
	}
	return file.Records, nil
}
