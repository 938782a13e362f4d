package sqlmock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCSVResponse_TwoColumns(t *testing.T) {
	csv := CSVResponse("select a, b from metrics", 3)
	assert.Equal(t, "a,b\n0,0,0\n1,1,1\n2,2,2\n", csv)
}

func TestCSVResponse_ZeroColumns(t *testing.T) {
	// A query with no identifiers yields a blank header followed by
	// rows containing only the row index.
	csv := CSVResponse("select 1 from metrics", 3)
	assert.Equal(t, "\n0\n1\n2\n", csv)
}

func TestCSVResponse_DefaultRowCount(t *testing.T) {
	csv := CSVResponse("select a from metrics", 0)
	assert.Equal(t, "a\n0,0\n1,1\n2,2\n", csv)
}
