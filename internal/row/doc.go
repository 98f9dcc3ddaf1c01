// Package row defines the unit of work tracked through a workflow.
//
// A row's status is modeled as a tagged value (idle at a step, in flight at a
// step, or one of the terminal markers) rather than the string-prefix encoding
// used by the external store. The string form exists only at the store
// boundary; everything else in the codebase works with the structured form.
package row
