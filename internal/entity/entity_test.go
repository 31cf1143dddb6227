package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	d := Lookup(Schedule)
	require.NotNil(t, d)
	assert.Equal(t, []string{"gsis_id"}, d.Key)

	typ, ok := d.ColumnType("season")
	require.True(t, ok)
	assert.Equal(t, Int, typ)

	_, ok = d.ColumnType("no_such_column")
	assert.False(t, ok)

	assert.Nil(t, Lookup(Team))
	assert.Nil(t, Lookup(ScheduleProcess))
	assert.Nil(t, Lookup("unknown"))
}

func TestKeyFieldsAreColumns(t *testing.T) {
	t.Parallel()

	for _, name := range []string{Schedule, Roster, PlayerProfile, PlayerGamelog, GamePlay} {
		d := Lookup(name)
		require.NotNil(t, d, name)
		for _, k := range d.Key {
			_, ok := d.Columns[k]
			assert.True(t, ok, "%s: key field %s must be a declared column", name, k)
		}
	}
}

func TestCompoundKeyOrderPreserved(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"gsis_id", "drive_id", "play_id", "sequence"},
		Lookup(GamePlay).Key)
	assert.Equal(t,
		[]string{"profile_id", "season", "season_type", "wk"},
		Lookup(PlayerGamelog).Key)
}
