package driver

import "github.com/andreasronge/neo4j-core/src/bolt"

// Version returns the current version of the neo4j-core driver.
func Version() string {
	return bolt.LibraryVersion
}

// UserAgent returns the user agent string used in Bolt protocol
// communications.
func UserAgent() string {
	return "neo4j-core::Bolt/" + bolt.LibraryVersion
}
