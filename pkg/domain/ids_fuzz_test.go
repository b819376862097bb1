//go:build go1.18

package domain

import (
	"testing"
)

// FuzzParseRequestID tests that parsing never panics on arbitrary input
// and always returns either a valid id or an error.
func FuzzParseRequestID(f *testing.F) {
	f.Add("")
	f.Add("1")
	f.Add("0")
	f.Add("-1")
	f.Add("abc")
	f.Add("9223372036854775808")
	f.Add("'; DROP TABLE desarquivamentos;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseRequestID(input)
		if err != nil {
			return
		}
		if id.Int64() <= 0 {
			t.Errorf("accepted non-positive id %d from %q", id.Int64(), input)
		}
		roundTrip, err := ParseRequestID(id.String())
		if err != nil {
			t.Errorf("valid id failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Error("round-trip changed id value")
		}
	})
}
