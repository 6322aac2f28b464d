package domain

import (
	"testing"
	"unicode/utf8"
)

func FuzzParseUserID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE users;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseUserID(input)
		if err == nil {
			again, err2 := ParseUserID(id.String())
			if err2 != nil {
				t.Errorf("valid id failed round-trip: %v", err2)
			}
			if again != id {
				t.Error("round-trip changed id value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// All id kinds share one validation path; they must agree on every input.
func FuzzParseAllIDs(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errUser := ParseUserID(input)
		_, errVer := ParseVerificationID(input)
		_, errPol := ParsePoliticianID(input)
		_, errPerm := ParsePermissionID(input)

		accepted := errUser == nil
		if (errVer == nil) != accepted || (errPol == nil) != accepted || (errPerm == nil) != accepted {
			t.Error("inconsistent parsing across id types")
		}
	})
}
