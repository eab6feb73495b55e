package domain

import "encoding/json"

// StdioResult is the decoded result of a Stdio/StdioEventloop invocation.
// The guest always returns a single string; spec.md's open question on
// Stdio dual interpretation is preserved here rather than resolved away:
// a string that parses as JSON decodes to that JSON, but a string that
// does not is still accepted and carried through as a JSON string
// literal instead of failing the invocation.
type StdioResult struct {
	// Value is the JSON that callers see: the guest's raw JSON on the
	// happy path, or the guest's literal text re-encoded as a JSON
	// string when it did not parse.
	Value json.RawMessage
	// Ambiguous is true when the fallback (treat-as-plain-string) path
	// was taken, so a caller that wants the stricter behavior can
	// observe it without changing the default.
	Ambiguous bool
}

// EncodeStdioParam wraps a JSON payload as the single String value the
// Stdio/StdioEventloop calling convention passes as a guest export's sole
// parameter.
func EncodeStdioParam(payload json.RawMessage) Value {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Str(string(payload))
}

// DecodeStdioResult interprets a guest export's single string result
// under the Stdio calling convention.
func DecodeStdioResult(raw string) StdioResult {
	if raw == "" {
		return StdioResult{Value: json.RawMessage("null")}
	}
	if json.Valid([]byte(raw)) {
		return StdioResult{Value: json.RawMessage(raw)}
	}
	literal, _ := json.Marshal(raw)
	return StdioResult{Value: literal, Ambiguous: true}
}
