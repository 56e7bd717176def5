package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0151 12345678", "+4915112345678"},
		{"+49 151 12345678", "+4915112345678"},
		{"not a number", "not a number"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeE164(tc.in); got != tc.want {
			t.Fatalf("NormalizeE164(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUsable(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"+4915112345678", true},
		{"030 901820", true},
		{"12345", false},
		{"", false},
		{"   ", false},
	}
	for _, tc := range cases {
		if got := Usable(tc.in); got != tc.want {
			t.Fatalf("Usable(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
