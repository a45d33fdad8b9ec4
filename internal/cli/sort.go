package cli

import (
	"sort"
	"strings"

	"github.com/0xAF/owrx-markers/internal/marker"
	"github.com/0xAF/owrx-markers/internal/schedule"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByID       SortOrder = "id"
	SortByMode     SortOrder = "mode"
	SortByDistance SortOrder = "distance"
)

// Valid reports whether the sort order is known
func (s SortOrder) Valid() bool {
	switch s {
	case SortByID, SortByMode, SortByDistance:
		return true
	}
	return false
}

// sortMarkers sorts markers in place. Distance is measured from lat, lon.
func sortMarkers(markers []*marker.Marker, order SortOrder, lat, lon float64) {
	switch order {
	case SortByID:
		sort.SliceStable(markers, func(i, j int) bool {
			return compareByID(markers[i], markers[j])
		})
	case SortByMode:
		sort.SliceStable(markers, func(i, j int) bool {
			if markers[i].Mode != markers[j].Mode {
				return strings.ToLower(markers[i].Mode) < strings.ToLower(markers[j].Mode)
			}
			// If modes are equal, sort by id
			return compareByID(markers[i], markers[j])
		})
	case SortByDistance:
		sort.SliceStable(markers, func(i, j int) bool {
			di := schedule.Distance(lat, lon, markers[i].Lat, markers[i].Lon)
			dj := schedule.Distance(lat, lon, markers[j].Lat, markers[j].Lon)
			if di != dj {
				return di < dj
			}
			return compareByID(markers[i], markers[j])
		})
	}
}

// compareByID orders case-insensitively, falling back to the exact id
func compareByID(i, j *marker.Marker) bool {
	a, b := strings.ToLower(i.ID), strings.ToLower(j.ID)
	if a != b {
		return a < b
	}
	return i.ID < j.ID
}
