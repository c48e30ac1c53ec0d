// Package query is a small typed query layer over gorm: keyword filters are
// validated against a per-entity schema and turned into lazy, reusable
// queries.
package query
