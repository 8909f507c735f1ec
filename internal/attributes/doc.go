// Package attributes provides expression evaluation and validation for custom
// span attributes, trace IDs, and parent span IDs.
//
// Expressions use the expr language. Two environments exist:
//   - per task (Evaluator): name, cat, group, start, end, duration, self_time,
//     urls, depth, unterminated, and args (the decoded event payload)
//   - per trace (TraceIDEvaluator, ParentIDEvaluator): env (the process
//     environment), file, pid, and tid
//
// Invalid trace IDs are automatically hashed with SHA-256 to produce valid IDs.
// Invalid parent IDs result in a null parent (zero span ID).
package attributes
