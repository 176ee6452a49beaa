package jwt

import (
	gocache "github.com/patrickmn/go-cache"
)

// RevocationList is the process-local set of revoked token strings. Entries
// never expire: a revoked token keeps failing as revoked after its exp.
type RevocationList struct {
	c *gocache.Cache
}

// NewRevocationList creates an empty list.
func NewRevocationList() *RevocationList {
	return &RevocationList{c: gocache.New(gocache.NoExpiration, 0)}
}

// Add revokes token for the life of the process. There is no un-revoke.
func (l *RevocationList) Add(token string) {
	l.c.Set(token, struct{}{}, gocache.NoExpiration)
}

// Contains reports whether token has been revoked.
func (l *RevocationList) Contains(token string) bool {
	_, ok := l.c.Get(token)
	return ok
}

// Len returns the number of revocations.
func (l *RevocationList) Len() int {
	return l.c.ItemCount()
}
