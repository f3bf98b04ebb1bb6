// Package mapping translates between logical connector attributes and the
// remote object's physical fields.
//
// The reserved attributes __UID__, __NAME__ and __PASSWORD__ stand for the
// configured identity, display-name and password columns. Columns is the
// column resolver the soql compiler consults; it also builds request
// bodies, select lists and domain objects from returned records.
package mapping
