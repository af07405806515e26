// Package policy implements the command validation pipeline: a
// quote-aware parser that splits chained shell input into segments, a
// classifier that maps each segment's base command to a trust
// category, a dangerous-pattern matcher, and the decision engine that
// combines them with session approval state into a single verdict.
//
// Everything in this package is pure and safe for concurrent use; the
// only shared state consulted is the Approvals implementation passed
// to Decide.
package policy
