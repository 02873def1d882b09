// ABOUTME: Root heaptrav package providing version information and package documentation
// ABOUTME: The engine lives in trav, the closure model in heap, analysis in graph

// Package heaptrav walks the closure graph of a paused, garbage-collected
// heap from a set of roots, reporting every reachable closure exactly once
// together with the edge that discovered it. The recorded edge list can then
// be analysed for retainers, reachability and retained size.
package heaptrav

// Version is the semantic version of the heaptrav tool
const Version = "0.1.0-dev"
