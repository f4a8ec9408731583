// Package definition loads form definitions. Two document shapes are
// understood: native YAML/JSON form documents and OpenAPI 3 documents whose
// request body schema describes the form (steps, kinds and order come from
// `x-formwizard-*` extensions).
package definition
