// Package clip provides the wire types for identity-orchestration trace
// logs: the Clip union, the TraceLogInput batch record, handler result
// payloads, statebags, and the recursive RecorderRecord tree.
//
// This package contains type definitions and extraction helpers only. All
// other internal packages import clip; clip imports nothing internal. This
// ensures the wire model remains the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Absent or malformed fields degrade to "no value", never to an error
//     crossing the package boundary. The upstream log format is externally
//     defined and routinely fragmentary.
//   - RecorderRecord accessors return (value, ok) pairs, never panic.
//   - Canonical JSON (RFC 8785 key ordering, NFC strings) is used for
//     snapshot comparison, never for wire parsing.
package clip
