package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnknownField replaces a listing name or address that could not be read.
const UnknownField = "unknown"

// Region is one state-level page of the chamber directory.
type Region struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Regions keeps discovered regions unique by name in first-seen order.
// Adding a name again replaces its URL in place.
type Regions struct {
	items []Region
	index map[string]int
}

func (r *Regions) Add(name, url string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}

	if i, ok := r.index[name]; ok {
		r.items[i].URL = url
		return
	}

	r.index[name] = len(r.items)
	r.items = append(r.items, Region{Name: name, URL: url})
}

func (r Regions) Get(name string) (Region, bool) {
	i, ok := r.index[name]
	if !ok {
		return Region{}, false
	}
	return r.items[i], true
}

func (r Regions) Len() int {
	return len(r.items)
}

// All returns a copy of the regions in discovery order.
func (r Regions) All() []Region {
	out := make([]Region, len(r.items))
	copy(out, r.items)
	return out
}

// Listing is one chamber of commerce entry. Website is nil when the
// listing carries no external link and encodes as JSON null.
type Listing struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Website *string `json:"website"`
}

// RegionResult is the content of one output file: a single object keyed by
// the region's display name.
type RegionResult struct {
	Region   string
	Listings []Listing
}

func (r RegionResult) MarshalJSON() ([]byte, error) {
	listings := r.Listings
	if listings == nil {
		listings = []Listing{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string][]Listing{r.Region: listings}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (r *RegionResult) UnmarshalJSON(data []byte) error {
	var raw map[string][]Listing
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw) != 1 {
		return fmt.Errorf("region result must have exactly one key, got %d", len(raw))
	}

	for region, listings := range raw {
		r.Region = region
		r.Listings = listings
		if r.Listings == nil {
			r.Listings = []Listing{}
		}
	}

	return nil
}
