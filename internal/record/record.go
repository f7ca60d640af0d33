// Package record parses single-line msf records of the form
//
//	id NAME /field value /field -12.3 /;
//
// A line is first validated against the whole-record grammar (ContentFormat)
// and then decomposed into key/value pairs with KeyValueFormat.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// IDKey is the key holding the record identifier.
const IDKey = "id"

// Space is the separator class. It spells out the C-locale whitespace set
// because RE2's \s omits the vertical tab.
const Space = `[\t\n\v\f\r ]`

// Grammar sources. The value alternatives are permissive: leading zeros
// and repeated '-' are accepted and stored as written.
const (
	ContentFormat  = `^id` + Space + `(\w+)` + Space + `(/\w+` + Space + `(\w+|-*?\d+|-*?\d+\.\d+)` + Space + `)+/;$`
	KeyValueFormat = `(id|/\w+)` + Space + `(\w+|-*?\d+|-*?\d+\.\d+)` + Space
)

var (
	contentRe  = regexp.MustCompile(ContentFormat)
	keyValueRe = regexp.MustCompile(KeyValueFormat)
)

// ErrMalformed is returned by Parse when a line does not match the record grammar.
var ErrMalformed = errors.New("malformed record")

// Record is an ordered field map populated from one line.
type Record struct {
	fields map[string]string
}

// New returns an empty record.
func New() *Record {
	return &Record{fields: make(map[string]string)}
}

// Load resets the record and populates it from content. It reports false,
// leaving the record empty, when content does not match the record grammar.
// Repeated keys keep the last value.
func (r *Record) Load(content string) bool {
	r.fields = make(map[string]string)

	if !contentRe.MatchString(content) {
		return false
	}

	for _, m := range keyValueRe.FindAllStringSubmatch(content, -1) {
		r.fields[m[1]] = m[2]
	}
	return true
}

// Parse builds a record from a single line.
func Parse(content string) (*Record, error) {
	r := New()
	if !r.Load(content) {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, excerpt(content, 48))
	}
	return r, nil
}

// Get returns the raw value stored under key.
func (r *Record) Get(key string) (string, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// ID returns the record identifier, or "" for an empty record.
func (r *Record) ID() string {
	return r.fields[IDKey]
}

// Len returns the number of keys, including id.
func (r *Record) Len() int {
	return len(r.fields)
}

// Keys returns all keys in sorted order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fields returns a copy of the field map.
func (r *Record) Fields() map[string]string {
	out := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Value returns the typed view of a field.
func (r *Record) Value(key string) (Value, bool) {
	v, ok := r.fields[key]
	return Value(v), ok
}

// String renders the record in canonical form: id first, then the
// remaining keys in sorted order.
func (r *Record) String() string {
	if len(r.fields) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(IDKey)
	b.WriteByte(' ')
	b.WriteString(r.fields[IDKey])
	b.WriteByte(' ')
	for _, k := range r.Keys() {
		if k == IDKey {
			continue
		}
		b.WriteString(k)
		b.WriteByte(' ')
		b.WriteString(r.fields[k])
		b.WriteByte(' ')
	}
	b.WriteString("/;")
	return b.String()
}

// MarshalJSON encodes the record as a flat JSON object.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}

// MarshalYAML encodes the record as a flat mapping.
func (r *Record) MarshalYAML() (interface{}, error) {
	return r.Fields(), nil
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
