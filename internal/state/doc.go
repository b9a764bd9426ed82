// Package state keeps the two plain-text files a batch survives restarts with: the
// records portal session cookie and the validation queue skip counter.
package state
