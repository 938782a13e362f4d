package sqlmock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnNames_PlainColumns(t *testing.T) {
	names := ColumnNames("select a, b from metrics")
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestColumnNames_AliasWinsOverRawName(t *testing.T) {
	names := ColumnNames("select total as t, b from metrics")
	assert.Equal(t, []string{"t", "b"}, names)
}

func TestColumnNames_CompositeExpressionYieldsEmbeddedColumns(t *testing.T) {
	names := ColumnNames("select count(score) from metrics")
	assert.Equal(t, []string{"score"}, names)
}

func TestColumnNames_DuplicatesAndOrderPreserved(t *testing.T) {
	names := ColumnNames("select a, a, b from metrics")
	assert.Equal(t, []string{"a", "a", "b"}, names)
}

func TestColumnNames_NoIdentifiers(t *testing.T) {
	assert.Empty(t, ColumnNames("select 1 from metrics"))
	assert.Empty(t, ColumnNames("select * from metrics"))
}

func TestColumnNames_UnparseableQuery(t *testing.T) {
	assert.Empty(t, ColumnNames("this is not sql"))
	assert.Empty(t, ColumnNames(""))
}

func TestColumnNames_Union(t *testing.T) {
	names := ColumnNames("select a from m1 union select b from m2")
	assert.Equal(t, []string{"a", "b"}, names)
}
