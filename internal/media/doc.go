// Package media classifies one raw upstream post and derives its displayable
// URLs. Resolution is a fixed-priority rule table evaluated top to bottom;
// the first matching rule wins. Resolve is pure: it performs no I/O and the
// same input always yields the same output.
package media
