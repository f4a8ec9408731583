// Package model defines the form definition consumed by the validator, the step
// controller and the terminal session. A Form is an ordered list of Steps, each
// holding Field descriptors. Fields carry a Kind, which selects the type rule
// the validator applies, and a Constraints set mirroring the browser constraint
// validation attributes (required, minlength/maxlength, min/max, pattern).
//
// Kinds are a closed set: definitions naming an unknown kind are rejected by
// Form.Validate instead of falling back to a generic rule at validation time.
package model
