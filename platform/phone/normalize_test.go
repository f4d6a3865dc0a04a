package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		in, region, want string
	}{
		{"650-253-0000", "", "+16502530000"},
		{" (650) 253-0000 ", "us", "+16502530000"},
		{"+44 20 7031 3000", "US", "+442070313000"},
		{"call me maybe", "US", "call me maybe"},
		{"   ", "US", ""},
	}
	for _, tc := range cases {
		if got := NormalizeE164(tc.in, tc.region); got != tc.want {
			t.Fatalf("NormalizeE164(%q, %q) = %q, want %q", tc.in, tc.region, got, tc.want)
		}
	}
}
