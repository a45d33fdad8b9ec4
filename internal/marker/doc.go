// Package marker provides the map marker model shared by every producer in owrx-markers.
//
// A Marker has a fixed core (id, mode, coordinates) plus an open set of attributes that
// are kept as raw JSON so that keys this package does not know about survive a
// load/save cycle unchanged. Markers are grouped into a Set per category, and Diff
// reconciles two generations of a Set into the removals and updates that must be
// pushed to the map.
package marker
