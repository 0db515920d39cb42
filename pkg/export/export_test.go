package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	payload, err := CSV(Table{
		Title:   "GPA",
		Headers: []string{"Department", "Average GPA"},
		Rows: [][]string{
			{"Computer Science", "3.42"},
			{"Mathematics", "3.05"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Department,Average GPA", lines[0])
	assert.Equal(t, "Computer Science,3.42", lines[1])
}

func TestCSVPadsShortRows(t *testing.T) {
	payload, err := CSV(Table{
		Headers: []string{"A", "B", "C"},
		Rows:    [][]string{{"only"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(payload), "only,,")
}

func TestCSVRequiresHeaders(t *testing.T) {
	_, err := CSV(Table{})
	assert.Error(t, err)
}

func TestPDF(t *testing.T) {
	payload, err := PDF(Table{
		Title:   "GPA Report",
		Headers: []string{"Department", "Average GPA"},
		Rows:    [][]string{{"Computer Science", "3.42"}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}
