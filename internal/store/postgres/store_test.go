package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereNumbersPlaceholders(t *testing.T) {
	var w where
	w.add("e.kind IS DISTINCT FROM 'CANCEL'")
	w.add("(a = ? OR b = ?)", int64(1), int64(2))
	w.add("c < ?", "x")

	assert.Equal(t, "WHERE e.kind IS DISTINCT FROM 'CANCEL' AND (a = $1 OR b = $2) AND c < $3", w.String())
	assert.Equal(t, []any{int64(1), int64(2), "x"}, w.args)
}

func TestWhereEmpty(t *testing.T) {
	var w where
	assert.Equal(t, "", w.String())
	assert.Empty(t, w.args)
}

func TestMigrationsAreEmbedded(t *testing.T) {
	files, err := fs.Glob(Migrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	core, err := fs.ReadFile(Migrations, "migrations/00001_core.sql")
	require.NoError(t, err)
	assert.Contains(t, string(core), "-- +goose Up")
	assert.Contains(t, string(core), "UNIQUE (lesson_id, start_time)")
	assert.Contains(t, string(core), "UNIQUE (tutor_id, week)")
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "x", *nullString("x"))
	assert.Equal(t, "", deref(nil))
}
