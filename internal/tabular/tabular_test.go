package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	t := NewTable("ID", "Name", "Phone", "Price")
	t.Append("1", "Acme, Inc.", "0300123", "12.5")
	t.Append("2", "Bolt", "", "8")
	t.Numeric("ID", "Price")
	return t
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, CSV, sampleTable()))

	rows, err := Read(&buf, CSV)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme, Inc.", rows[0].Get("name"))
	assert.Equal(t, "0300123", rows[0].Get("phone"))
	assert.False(t, rows[1].Has("phone"))
}

func TestXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, XLSX, sampleTable()))

	rows, err := Read(bytes.NewReader(buf.Bytes()), XLSX)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme, Inc.", rows[0].Get("name"))
	assert.Equal(t, "0300123", rows[0].Get("phone"), "leading zeros must stay text")

	price, ok, err := rows[0].Float("price")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 12.5, price)
}

func TestXLSXKeepsNumberLikeTextColumns(t *testing.T) {
	table := NewTable("sku", "name", "price")
	table.Append("1.50", "Inf", "2.50")
	table.Append("1e3", "NaN", "oops")
	table.Numeric("price")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, XLSX, table))

	rows, err := Read(bytes.NewReader(buf.Bytes()), XLSX)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1.50", rows[0].Get("sku"))
	assert.Equal(t, "Inf", rows[0].Get("name"))
	assert.Equal(t, "2.5", rows[0].Get("price"))
	assert.Equal(t, "1e3", rows[1].Get("sku"))
	assert.Equal(t, "NaN", rows[1].Get("name"))
	assert.Equal(t, "oops", rows[1].Get("price"))
}

func TestReadNormalizesHeadersAndSkipsBlankRows(t *testing.T) {
	in := "\ufeffProduct Name , SKU\nWidget,W-1\n,\n  Gadget ,G-2\n"
	rows, err := Read(strings.NewReader(in), CSV)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Widget", rows[0].Get("product_name"))
	assert.Equal(t, "Gadget", rows[1].Get("product_name"))
	assert.Equal(t, "G-2", rows[1].Get("sku"))
}

func TestRowNumbers(t *testing.T) {
	row := Row{"qty": "12.0", "bad": "1.5", "price": "1,200.50"}

	n, ok, err := row.Int("qty")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)

	_, _, err = row.Int("bad")
	assert.Error(t, err)

	_, ok, err = row.Int("missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	f, _, err := row.Float("price")
	require.NoError(t, err)
	assert.Equal(t, 1200.5, f)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)

	f, err = ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, XLSX, FormatFromFilename("stock.xlsx"))
	assert.Equal(t, CSV, FormatFromFilename("stock.txt"))
}
