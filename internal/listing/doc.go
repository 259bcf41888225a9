// Package listing talks to the Reddit listing API.
//
// It decodes raw post records (the upstream shapes vary wildly by post type),
// fetches multiple sort variants of a source concurrently with settle-all
// semantics, and classifies upstream failures into the sentinel error
// taxonomy the feed layer reports on.
package listing
