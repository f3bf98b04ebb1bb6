// Package filter provides the search-filter expression tree consumed by the
// SOQL compiler.
//
// The tree is the boundary between callers that express "which records do I
// want" and the backend that decides how much of that can be pushed to the
// remote API:
//
//	[caller / YAML] → [filter.Filter] → [soql.Compiler] → WHERE clause
//	                                  → [filter.Matches] → client-side check
//
// SEALED INTERFACES:
//
// Filter and Value are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so backends can switch
// exhaustively:
//
//	switch f := f.(type) {
//	case filter.And:
//	    // both sides
//	case filter.Equals:
//	    // leaf
//	}
//
// SHAPE:
//
// And and Or are binary. Not wraps exactly one child; backends push it down
// to the leaves (De Morgan over And/Or, double negation cancels) so every
// comparison receives a single negation flag. Each comparison leaf holds one
// attribute name and one Value.
package filter
