package place

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKeyEquality(t *testing.T) {
	a := Record{Name: "Terelj", Lat: 47.98, Lon: 107.45, Comment: "x"}
	b := Record{Name: "Terelj", Lat: 47.98, Lon: 107.45, Image: "data:image/png;base64,AA=="}
	c := Record{Name: "Terelj", Lat: 47.98, Lon: 107.4500001}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestContainsAndWithout(t *testing.T) {
	recs := []Record{
		{Name: "A", Lat: 1, Lon: 2},
		{Name: "B", Lat: 3, Lon: 4},
		{Name: "C", Lat: 5, Lon: 6},
	}
	assert.True(t, Contains(recs, Key{Name: "B", Lat: 3, Lon: 4}))
	assert.False(t, Contains(recs, Key{Name: "B", Lat: 3, Lon: 5}))

	out := Without(recs, Key{Name: "B", Lat: 3, Lon: 4})
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Name)
	assert.Equal(t, "C", out[1].Name)
	assert.Len(t, recs, 3)

	same := Without(recs, Key{Name: "Z"})
	assert.Equal(t, recs, same)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Record{Name: "   "}.Validate(), ErrEmptyName)
	assert.NoError(t, Record{Name: "Khövsgöl"}.Validate())
}

func TestRecordJSONLayout(t *testing.T) {
	b, err := json.Marshal(Record{Name: "UB", Lat: 47.9, Lon: 106.9})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"UB","lat":47.9,"lon":106.9,"comment":""}`, string(b))

	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"name":"UB","lat":1,"lon":2,"image":null,"comment":"hi"}`), &r))
	assert.Equal(t, "", r.Image)
	assert.Equal(t, "hi", r.Comment)
}
