// Package validation provides centralized input validation logic.
// This includes bucket and object key rules, part number parsing and batch
// limits, completion part sets, and session metadata.
//
// Every request is validated before anything is sent to the object store.
package validation
