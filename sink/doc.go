// SPDX-License-Identifier: EPL-2.0

// Package sink provides the storage backends fed by the writer.
//
// A Sink receives data organized in entries: each entry is a contiguous,
// gap-free segment that starts at a given frame and holds any number of
// channels. The variant is chosen once with New:
//
//   - KindNull keeps counters only.
//   - KindStream logs every call through zap without storing data.
//   - KindWAV stores one mono WAV file per sampled channel and a YAML
//     sidecar per entry, plus a session log.
//
// Sinks are used from the writer's consumer goroutine only and are not safe
// for concurrent use.
package sink
