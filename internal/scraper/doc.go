// Package scraper fetches public receiver directories and turns them into map markers.
//
// Three directories are supported, each with its own undocumented format: the KiwiSDR
// public list (HTML comments followed by an anchor per receiver), the WebSDR list (a JSON
// array behind a few "//" comment lines) and the ReceiverBook map (a JavaScript
// assignment holding a JSON array of sites). Every receiver is keyed by the host part of
// its URL, so the same receiver gets the same ID no matter which directory listed it.
//
// A failing directory never affects the others: Fetch logs the failure and returns an
// empty set.
package scraper
