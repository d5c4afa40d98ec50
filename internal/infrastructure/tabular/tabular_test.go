package tabular

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/sov-billing/internal/domain/errs"
)

func TestReader_CSV(t *testing.T) {
	data := []byte("\xef\xbb\xbfDesc,Amt\nFoundation,\"$12,500.00\"\n,\nShort\n")

	table, err := NewReader(zap.NewNop()).Read(context.Background(), "sov.CSV", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Desc", "Amt"}, table.Headers)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "Foundation", table.Rows[0]["Desc"])
	assert.Equal(t, "$12,500.00", table.Rows[0]["Amt"])
	assert.Equal(t, "", table.Rows[1]["Amt"])
	assert.Equal(t, "", table.Rows[2]["Amt"])
}

func TestReader_TSVAndDuplicateHeaders(t *testing.T) {
	data := []byte("Amount\tAmount\t\n1\t2\t3\n")

	table, err := NewReader(zap.NewNop()).Read(context.Background(), "sov.tsv", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Amount", "Amount (2)", "Column 3"}, table.Headers)
	assert.Equal(t, "2", table.Rows[0]["Amount (2)"])
	assert.Equal(t, "3", table.Rows[0]["Column 3"])
}

func TestWriterReaderXLSX(t *testing.T) {
	ctx := context.Background()
	out, err := NewWriter(zap.NewNop()).Write(ctx, "SOV", []string{"Item", "Description", "Scheduled Value"}, [][]any{
		{"1", "Foundation", 12500.0},
		{"2", "Framing", 800.5},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "SOV", f.GetSheetName(0))
	require.NoError(t, f.Close())

	table, err := NewReader(zap.NewNop()).Read(ctx, "export.xlsx", out)
	require.NoError(t, err)
	assert.Equal(t, []string{"Item", "Description", "Scheduled Value"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Framing", table.Rows[1]["Description"])
	assert.Equal(t, "800.5", table.Rows[1]["Scheduled Value"])
}

func TestReader_Rejects(t *testing.T) {
	r := NewReader(zap.NewNop())

	_, err := r.Read(context.Background(), "sov.pdf", []byte("x"))
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = r.Read(context.Background(), "sov.xlsx", []byte("not a zip"))
	assert.ErrorIs(t, err, errs.ErrValidation)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Read(ctx, "sov.csv", []byte("a\n1"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToTable_Empty(t *testing.T) {
	table := toTable(nil)
	assert.Empty(t, table.Headers)
	assert.Empty(t, table.Rows)
}
