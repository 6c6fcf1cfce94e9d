package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRowsFits(t *testing.T) {
	rows := historyRows([]float64{10, 9, 7, 15}, 100)
	require.Len(t, rows, 5)
	assert.Equal(t, []interface{}{"Round", "Balance"}, rows[0])
	assert.Equal(t, []interface{}{3, 15.0}, rows[4])
}

func TestHistoryRowsDownsamples(t *testing.T) {
	history := make([]float64, 1001)
	for i := range history {
		history[i] = float64(i)
	}
	const maxRows = 102

	rows := historyRows(history, maxRows)
	assert.LessOrEqual(t, len(rows), maxRows)
	require.Len(t, rows[0], 3)
	assert.Contains(t, rows[0][2], "every 11 rounds")
	assert.Equal(t, []interface{}{0, 0.0}, rows[1])
	assert.Equal(t, []interface{}{11, 11.0}, rows[2])
	assert.Equal(t, []interface{}{1000, 1000.0}, rows[len(rows)-1])
}
