package transcript

import (
	"bytes"
	"errors"

	"github.com/tidwall/gjson"
)

// ErrMalformedJSON marks a line that could not be parsed as JSON
var ErrMalformedJSON = errors.New("malformed JSON")

// Role identifies the speaker of a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SkipReason explains why a line produced no turn
type SkipReason string

const (
	SkipNone       SkipReason = ""
	SkipBlank      SkipReason = "blank"
	SkipParseError SkipReason = "parse_error"
	SkipNotMessage SkipReason = "not_message"
	SkipRole       SkipReason = "unsupported_role"
	SkipNoText     SkipReason = "no_text"
)

// Record is the parse result for one non-empty input line.
// A record either holds the decoded JSON value or reports ErrMalformedJSON via Err.
type Record struct {
	Line  int
	Raw   string
	value gjson.Result
	err   error
}

// ParseRecord parses a single trimmed line. The NaN, Infinity and -Infinity
// literals are accepted and read as null.
func ParseRecord(lineNum int, raw []byte) Record {
	rec := Record{Line: lineNum, Raw: string(raw)}
	data := replaceNonFinite(raw)
	if !gjson.ValidBytes(data) {
		rec.err = ErrMalformedJSON
		return rec
	}
	rec.value = gjson.ParseBytes(data)
	return rec
}

// Err returns ErrMalformedJSON for lines that failed to parse
func (r Record) Err() error {
	return r.err
}

// Payload returns the record's payload object, or an empty result when
// the record failed to parse or carries no object payload.
func (r Record) Payload() gjson.Result {
	if r.err != nil || !r.value.IsObject() {
		return gjson.Result{}
	}
	payload := lastField(r.value, "payload")
	if !payload.IsObject() {
		return gjson.Result{}
	}
	return payload
}

// Message extracts the message carried by the record.
// The returned reason is SkipNone only when the message yields a turn.
func (r Record) Message() (Message, SkipReason) {
	if r.err != nil {
		return Message{}, SkipParseError
	}

	payload := r.Payload()
	if stringField(payload, "type") != "message" {
		return Message{}, SkipNotMessage
	}

	role := Role(stringField(payload, "role"))
	if role != RoleUser && role != RoleAssistant {
		return Message{}, SkipRole
	}

	msg := Message{Role: role}
	for _, item := range arrayField(payload, "content") {
		if !item.IsObject() {
			continue
		}
		if text := stringField(item, "text"); text != "" {
			msg.Parts = append(msg.Parts, text)
		}
	}

	if len(msg.Parts) == 0 {
		return msg, SkipNoText
	}
	return msg, SkipNone
}

// lastField returns the value of the last occurrence of name in obj.
// Repeated keys resolve the way a decoded map would.
func lastField(obj gjson.Result, name string) gjson.Result {
	var field gjson.Result
	obj.ForEach(func(key, value gjson.Result) bool {
		if key.Str == name {
			field = value
		}
		return true
	})
	return field
}

// stringField returns the named field when it is a JSON string, "" otherwise
func stringField(obj gjson.Result, name string) string {
	field := lastField(obj, name)
	if field.Type != gjson.String {
		return ""
	}
	return field.Str
}

// arrayField returns the elements of the named field when it is an array
func arrayField(obj gjson.Result, name string) []gjson.Result {
	field := lastField(obj, name)
	if !field.IsArray() {
		return nil
	}
	return field.Array()
}

var nonFiniteLiterals = [][]byte{
	[]byte("-Infinity"),
	[]byte("Infinity"),
	[]byte("NaN"),
}

// replaceNonFinite rewrites bare NaN, Infinity and -Infinity tokens outside
// of strings to null. raw is returned unchanged when it holds none.
func replaceNonFinite(raw []byte) []byte {
	if !bytes.Contains(raw, []byte("NaN")) && !bytes.Contains(raw, []byte("Infinity")) {
		return raw
	}

	out := make([]byte, 0, len(raw))
	inString := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			out = append(out, c)
			switch c {
			case '\\':
				if i+1 < len(raw) {
					i++
					out = append(out, raw[i])
				}
			case '"':
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			out = append(out, c)
			continue
		}

		replaced := false
		for _, lit := range nonFiniteLiterals {
			if bytes.HasPrefix(raw[i:], lit) {
				out = append(out, "null"...)
				i += len(lit) - 1
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, c)
		}
	}
	return out
}
