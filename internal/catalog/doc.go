// Package catalog holds the static mapping from workflow type to its ordered
// list of steps.
//
// The catalog is loaded once at process start and never mutated. It only
// reports structural position within a workflow; what to do about an unknown
// workflow type or an unrecognized step is a caller policy decision.
package catalog
