package config

import (
	"testing"

	"github.com/YvodeRooij/spendcube/pkg/spend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRecords(t *testing.T) {
	want := []spend.Record{
		{ID: "r1", Vendor: "Dell", Description: "Latitude laptop", Amount: 1299, Department: "IT"},
		{ID: "r2", Vendor: "Staples", Description: "Copy paper", Amount: 89.5},
	}

	t.Run("json list", func(t *testing.T) {
		path := writeFile(t, "batch.json", `[
  {"id": "r1", "vendor": "Dell", "description": "Latitude laptop", "amount": 1299, "department": "IT"},
  {"id": "r2", "vendor": "Staples", "description": "Copy paper", "amount": 89.5}
]`)
		got, err := LoadRecords(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("json object", func(t *testing.T) {
		path := writeFile(t, "batch.json", `{"records": [
  {"id": "r1", "vendor": "Dell", "description": "Latitude laptop", "amount": 1299, "department": "IT"},
  {"id": "r2", "vendor": "Staples", "description": "Copy paper", "amount": 89.5}
]}`)
		got, err := LoadRecords(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("yaml list with leading comment", func(t *testing.T) {
		path := writeFile(t, "batch.yaml", `# Q3 export
- id: r1
  vendor: Dell
  description: Latitude laptop
  amount: 1299
  department: IT
- id: r2
  vendor: Staples
  description: Copy paper
  amount: 89.5
`)
		got, err := LoadRecords(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("yaml object", func(t *testing.T) {
		path := writeFile(t, "batch.yml", `records:
  - id: r1
    vendor: Dell
    description: Latitude laptop
    amount: 1299
    department: IT
  - id: r2
    vendor: Staples
    description: Copy paper
    amount: 89.5
`)
		got, err := LoadRecords(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := LoadRecords(writeFile(t, "batch.yml", ""))
		assert.ErrorContains(t, err, "has no records")
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := LoadRecords(writeFile(t, "batch.csv", "id,vendor"))
		assert.ErrorContains(t, err, "unsupported records file extension")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := LoadRecords(writeFile(t, "batch.json", `{"records": [`))
		assert.ErrorContains(t, err, "failed to parse records")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRecords("/nonexistent/batch.json")
		assert.ErrorContains(t, err, "failed to read records")
	})
}
