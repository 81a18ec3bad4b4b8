package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV_ColumnOrderAndValues(t *testing.T) {
	rows := []map[string]any{
		{"id": float64(19995), "title": "Avatar", "budget_musd": "237", "runtime": float64(162)},
		{"id": float64(140607), "title": "Star Wars", "budget_musd": nil, "runtime": nil},
	}

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,title,budget_musd,runtime", lines[0])
	assert.Equal(t, "19995,Avatar,237,162", lines[1])
	assert.Equal(t, "140607,Star Wars,,", lines[2])
}

func TestWriteCSV_NestedValuesEncodedAsJSON(t *testing.T) {
	rows := []map[string]any{
		{"id": float64(1), "credits": map[string]any{"cast": []any{"A"}}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, rows))
	assert.Contains(t, buf.String(), `"{""cast"":[""A""]}"`)
}

func TestColumnOrder_UnionAcrossRows(t *testing.T) {
	rows := []map[string]any{
		{"title": "A", "id": float64(1)},
		{"id": float64(2), "zeta": "z", "alpha": "a"},
	}

	assert.Equal(t, []string{"id", "title", "alpha", "zeta"}, columnOrder(rows))
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", cellString(nil))
	assert.Equal(t, "plain", cellString("plain"))
	assert.Equal(t, "true", cellString(true))
	assert.Equal(t, "2.5", cellString(2.5))
	assert.Equal(t, "1000000", cellString(float64(1000000)))
}
