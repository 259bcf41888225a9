// Package redditauth manages the OAuth credential lifecycle: persistence,
// refresh-token exchange with memoized failures, and the connect and
// disconnect transitions. The Manager is the only component that talks to the
// token endpoint; listing requests consume tokens through its AccessToken
// method.
package redditauth
