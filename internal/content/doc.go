// Package content turns a content root directory into a registry of named
// collections and prepares raw entries for rendering.
//
// A content root is a directory whose immediate subdirectories are
// collections. Names starting with "." or "_" are reserved and never become
// collections. Each collection may carry a "_meta.yaml" document with
// collection-level metadata; everything else in the directory is an entry
// document owned by an external loader.
//
// Preparation is pure: given the same entry, descriptor and lookup results it
// returns structurally equal output. References are expanded exactly one hop
// deep, so cyclic references between entries cannot recurse.
package content
