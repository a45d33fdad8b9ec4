// Package storage provides JSON file persistence for markers.
//
// Two kinds of files are handled. The cache file (markers.json in the data directory)
// holds the last successful scrape of all receiver directories; its modification time
// decides when the directories are scraped again, and it is only ever replaced
// atomically by a non-empty scrape. Static marker files are hand-maintained JSON (or
// HuJSON, allowing comments and trailing commas) files that are read once at startup.
// The default storage location is ~/.local/share/owrx-markers/.
package storage
