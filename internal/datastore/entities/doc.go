// Package entities defines the GORM models persisted by thermalwatch.
//
// Annotations and detection annotations reference detection records by a
// plain nullable column. There are no foreign keys, so deleting a detection
// record never cascades to annotations.
package entities
