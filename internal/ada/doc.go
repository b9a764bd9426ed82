// Package ada drives the records portal: it searches the civil-registry index for a
// certificate and downloads its scan, but only when the search is unambiguous.
package ada
