// Package harness executes YAML conformance scenarios against fresh
// engines. A scenario scripts a flow of ledger and analytics operations
// with expected outcomes per step, asserts on the final engine state, and
// can pin its full execution trace with a golden file.
package harness
