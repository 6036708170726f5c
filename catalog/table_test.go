package catalog

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRoundTrip(t *testing.T) {
	c := New(KindData, []CartesianPoint{
		{X: 1.5, Y: -2.25, Z: 3},
		{X: 0, Y: 0, Z: 0},
		{X: 123.456789, Y: 1e-3, Z: -42},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, c))
	assert.True(t, strings.HasPrefix(buf.String(), "# x y z\n"))

	got, err := ReadTable(&buf, KindData)
	require.NoError(t, err)
	require.Equal(t, c.Len(), got.Len())
	assert.False(t, got.HasMass())
	for i := range c.Len() {
		assert.InDelta(t, c.Point(i).X, got.Point(i).X, 1e-6)
		assert.InDelta(t, c.Point(i).Y, got.Point(i).Y, 1e-6)
		assert.InDelta(t, c.Point(i).Z, got.Point(i).Z, 1e-6)
	}
}

func TestTableRoundTripWithMass(t *testing.T) {
	c, err := NewWithMass(KindData,
		[]CartesianPoint{{X: 1}, {X: 2}},
		[]float64{1e12, 5e11},
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, c))
	assert.True(t, strings.HasPrefix(buf.String(), "# x y z mass\n"))

	got, err := ReadTable(&buf, KindData)
	require.NoError(t, err)
	require.True(t, got.HasMass())
	m, _ := got.Mass(0)
	assert.InDelta(t, 1e12, m, 1e6)
}

func TestReadTableSkipsCommentsAndBlanks(t *testing.T) {
	in := "# header\n\n1 2 3\n# trailing comment\n4 5 6\n"
	c, err := ReadTable(strings.NewReader(in), KindRandom)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, KindRandom, c.Kind())
}

func TestReadTableMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"TooFewColumns", "1 2\n"},
		{"TooManyColumns", "1 2 3 4 5\n"},
		{"NotANumber", "1 2 abc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTable(strings.NewReader(tt.in), KindData)
			assert.Error(t, err)
		})
	}
}

func TestSaveLoadFile(t *testing.T) {
	c := New(KindData, []CartesianPoint{
		{X: 1, Y: 2, Z: 3},
		{X: -4, Y: 5, Z: -6},
	})

	for _, ext := range []string{".txt", ".txt.gz", ".txt.zst", ".txt.lz4"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog"+ext)
			require.NoError(t, SaveFile(path, c))

			got, err := LoadFile(path, KindData)
			require.NoError(t, err)
			require.Equal(t, c.Len(), got.Len())
			assert.InDelta(t, c.Point(1).Z, got.Point(1).Z, 1e-9)
		})
	}
}
