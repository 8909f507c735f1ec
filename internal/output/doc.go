// Package output renders task trees.
//
// Three formatters share the Formatter interface:
//   - TextFormatter: indented, colored tree with a self-time summary per group
//   - JSONFormatter: nested JSON document for tooling
//   - OTELFormatter: one OpenTelemetry span per task, parented like the tree
//
// Formatters do not build or analyze trees. All data processing is delegated
// to specialized packages:
//   - tasktree: tree construction and normalization
//   - timesync: trace clock to wall-clock conversion
//   - attributes: expression evaluation
package output
