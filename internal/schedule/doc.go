// Package schedule turns the broadcast schedule and the repeater database into map
// markers.
//
// Both databases are external collaborators reached through narrow provider
// interfaces. FileSchedule and FileRepeaters implement them on top of JSON dumps so
// the engine can run without the full databases.
package schedule
