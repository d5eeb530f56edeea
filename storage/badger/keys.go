package badger

import "fmt"

// Key prefixes for different data types
const (
	vectorRecordPrefix = "vecrec"
	sessionLogPrefix   = "seslog"
)

// makeRecordKey generates a key for a record in a named collection.
func makeRecordKey(collection, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", vectorRecordPrefix, collection, id))
}

// makeCollectionPrefix generates the iteration prefix for a collection.
func makeCollectionPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", vectorRecordPrefix, collection))
}

// makeSessionKey generates a key for a session log.
func makeSessionKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", sessionLogPrefix, id))
}

// sessionPrefix returns the iteration prefix for session logs.
func sessionPrefix() []byte {
	return []byte(sessionLogPrefix + ":")
}
