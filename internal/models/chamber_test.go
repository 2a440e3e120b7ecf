package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegions_LastURLWins(t *testing.T) {
	var regions Regions
	regions.Add("Texas", "https://example.com/co/chambers/texas")
	regions.Add("Ohio", "https://example.com/co/chambers/ohio")
	regions.Add("Texas", "https://example.com/co/chambers/texas-2")

	require.Equal(t, 2, regions.Len())

	all := regions.All()
	assert.Equal(t, "Texas", all[0].Name)
	assert.Equal(t, "https://example.com/co/chambers/texas-2", all[0].URL)
	assert.Equal(t, "Ohio", all[1].Name)

	got, ok := regions.Get("Ohio")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/co/chambers/ohio", got.URL)

	_, ok = regions.Get("Utah")
	assert.False(t, ok)
}

func discovered() Regions {
	var regions Regions
	regions.Add("Texas", "https://example.com/co/chambers/texas")
	regions.Add("Ohio", "https://example.com/co/chambers/ohio")
	return regions
}

func TestRegions_ReadOnReturnedValue(t *testing.T) {
	assert.Equal(t, 2, discovered().Len())
	assert.Equal(t, "Texas", discovered().All()[0].Name)

	ohio, ok := discovered().Get("Ohio")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/co/chambers/ohio", ohio.URL)

	var empty Regions
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, empty.All())
	_, ok = empty.Get("Texas")
	assert.False(t, ok)
}

func TestListing_FieldOrderAndNullWebsite(t *testing.T) {
	data, err := json.Marshal(Listing{Name: "Austin Chamber", Address: "123 Main St"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Austin Chamber","address":"123 Main St","website":null}`, string(data))
}

func TestRegionResult_JSON(t *testing.T) {
	site := "https://austinchamber.org"
	in := RegionResult{
		Region:   "Texas",
		Listings: []Listing{{Name: "Austin Chamber", Address: "123 Main St", Website: &site}},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Texas":[{"name":"Austin Chamber","address":"123 Main St","website":"https://austinchamber.org"}]}`, string(data))

	var out RegionResult
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestRegionResult_EmptyListings(t *testing.T) {
	data, err := json.Marshal(RegionResult{Region: "Ohio"})
	require.NoError(t, err)
	assert.Equal(t, `{"Ohio":[]}`, string(data))

	var out RegionResult
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "Ohio", out.Region)
	assert.Empty(t, out.Listings)
}

func TestRegionResult_RejectsMultipleKeys(t *testing.T) {
	var out RegionResult
	err := json.Unmarshal([]byte(`{"Ohio":[],"Texas":[]}`), &out)
	assert.Error(t, err)
}
