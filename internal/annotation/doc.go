// Package annotation reconciles the bounding-box annotations an inspector
// saves for an inspection.
//
// Every save replaces the full set for the inspection inside one
// transaction. Row identities are derived from the inspection id and the
// 1-based position of the box in the submitted list, so resubmitting the
// same list yields the same ids. Boxes whose action is "deleted" are stored
// as soft-deleted rows and still returned by queries.
package annotation
