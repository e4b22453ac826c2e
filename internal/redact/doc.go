// Package redact detects secrets in outbound text, swaps them for
// reversible {{LABEL_N}} placeholders held in a process-wide Vault, and
// puts the originals back into returning text.
//
// Detection is regex based and scans patterns in registry order over a
// single accumulating buffer. A placeholder never matches a built-in
// pattern, so sanitizing already sanitized text is a no-op.
//
// Literal text that happens to have the shape of a known placeholder is
// indistinguishable from one and will be restored. There is no escaping.
package redact
