// Package feed assembles the merged slideshow feed: it fans out over the
// configured sources, normalizes every post through the media resolver,
// deduplicates by post id, and orders the result priority class first with an
// independent shuffle inside each class.
package feed
