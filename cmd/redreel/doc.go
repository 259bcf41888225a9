// Command redreel fetches, normalizes, and merges Reddit media feeds from
// the command line. It owns the OAuth credential lifecycle and prints the
// assembled feed as a table or JSON.
package main
