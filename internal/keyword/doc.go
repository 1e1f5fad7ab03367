// Package keyword provides the rule-based category fallback: a table of
// trigger words mapped to transaction categories. It backs the voice-entry
// flow whenever the remote model has no answer.
package keyword
