// Package harness runs translation scenarios: YAML files that pair a filter
// with the WHERE clause and query it must compile to.
//
// # Scenario Format
//
//	name: starts_with_and_greater_than
//	description: "An AND of two leaves needs no brackets"
//	attributes: [Name, Age]
//	columns:
//	  Age: INTEGER
//	filter:
//	  and:
//	    - starts_with: {attribute: Name, value: A}
//	    - greater_than: {attribute: Age, value: 30}
//	assertions:
//	  - type: where
//	    value: "Name LIKE 'A%' AND Age > 30"
//	  - type: complete
//	    want: true
//	  - type: matches
//	    record: {Name: Alice, Age: 31}
//	    want: true
//
// # Assertion Types
//
//   - where: the WHERE clause text ("" when nothing translates)
//   - query: the unencoded query
//   - encoded: the URL-encoded query
//   - complete: whether the clause expresses the whole filter
//   - matches: whether the filter holds for a record, evaluated client-side
//
// # Golden Files
//
// RunWithGolden additionally snapshots the output to
// testdata/golden/<name>.golden, so a change in compiled text shows up as a
// diff even when no assertion names it.
package harness
