// Package bamprovider provides access to coordinate-sorted BAM files.
//
// The Provider is an interface for reading the records that overlap a genomic
// region, or the whole file.  Region queries use the BAM index; whole-file
// scans don't need one.  NewFakeProvider serves in-memory records for tests.
package bamprovider
