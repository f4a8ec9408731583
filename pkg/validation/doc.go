// Package validation checks field values against their declared constraints.
//
// Rules run in a fixed precedence and the first failure wins:
//
//	required > type mismatch > length/range > pattern > custom
//
// An empty value on a non-required field is valid and skips every other rule.
// Validate never panics; the verdict carries the failing rule and a localized
// message, and Apply mirrors it onto the page (invalid flag plus message
// region).
package validation
