// Package repository provides storage interfaces and GORM implementations
// for inspection annotations, detection records, detection annotations and
// feedback logs.
//
// Repositories return raw GORM errors except for lookups, which map
// gorm.ErrRecordNotFound to the sentinels in errors.go. Callers add error
// categories and context.
package repository
