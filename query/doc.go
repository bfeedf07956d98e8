// Package query holds the read-side handlers. Each query opens one read unit
// of work, so multi-repository views such as the dashboard see a single
// consistent snapshot.
package query
