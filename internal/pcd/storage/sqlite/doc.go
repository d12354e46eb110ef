// Package sqlite records the history of point cloud loads in a SQLite
// database. Only load metadata is kept; transforms and points are never
// persisted.
package sqlite
