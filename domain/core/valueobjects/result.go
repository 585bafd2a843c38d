package valueobjects

import (
	"encoding/json"
	"errors"
)

// Result is the payload of a completed operation: a number for the
// arithmetic operations, a list of strings for generators.
type Result struct {
	number  float64
	strings []string
	isList  bool
}

func NumberResult(n float64) Result {
	return Result{number: n}
}

func StringsResult(s []string) Result {
	cp := make([]string, len(s))
	copy(cp, s)
	return Result{strings: cp, isList: true}
}

func (r Result) IsStrings() bool { return r.isList }

func (r Result) Number() float64 { return r.number }

func (r Result) Strings() []string {
	cp := make([]string, len(r.strings))
	copy(cp, r.strings)
	return cp
}

// Value returns the payload as a plain Go value for encoding.
func (r Result) Value() interface{} {
	if r.isList {
		return r.Strings()
	}
	return r.number
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value())
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*r = NumberResult(n)
		return nil
	}
	var s []string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = StringsResult(s)
		return nil
	}
	return errors.New("result must be a number or a list of strings")
}
