// Package soql compiles filter trees into SOQL WHERE clauses and builds the
// query strings sent to the remote object API.
//
// Values are bound inline as literals: the declared column type decides
// quoting (string-like types are single quoted, everything else is written
// as-is). No escaping is applied to literal values.
//
// Leaves the remote service cannot evaluate (binary payloads, null ordering
// comparisons, non-string LIKE patterns) produce no clause. How a boolean
// node reacts to an untranslatable child is a Compiler policy; see
// PartialAnd and WithStrictBooleans.
package soql
