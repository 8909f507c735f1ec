// Package traceevent holds the raw trace events consumed by the task tree builder.
//
// Events follow the Chromium trace event format: a phase tag, a name, a
// microsecond timestamp, an optional duration and an opaque argument payload.
// The payload is kept as raw JSON and read lazily through accessors, since only
// a handful of event kinds carry fields the builder cares about:
//
//	args.data.url            script URL (EvaluateScript, FunctionCall, v8.compile)
//	args.fileName            module file (v8.compileModule)
//	args.data.timerId        timer identifier (TimerInstall, TimerFire)
//	args.data.stackTrace     JS call-stack snippet, a list of {url, ...}
//
// Decode reads a whole trace file in either the array form or the
// {"traceEvents": [...]} object form.
package traceevent
