package identity

import (
	"reflect"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"PlainTenDigits", "9876543210", "9876543210", true},
		{"CountryCodeWithSeparators", "+91 98765-43210", "9876543210", true},
		{"CountryCodeNoPlus", "919876543210", "9876543210", true},
		{"TrunkZero", "09876543210", "9876543210", true},
		{"TenDigitsStartingWith91", "9123456789", "9123456789", true},
		{"DoubledCountryCode", "+91 91 98765 43210", "9876543210", true},
		{"Parentheses", "(987) 654-3210", "9876543210", true},
		{"ServiceNumber", "100", "", false},
		{"EmergencyNumber", "112", "", false},
		{"TooShort", "12345", "", false},
		{"Empty", "", "", false},
		{"Letters", "call me", "", false},
		{"NineDigits", "987654321", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizePhone(tc.in)
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("NormalizePhone(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestNormalizePhone_SameCanonicalValue(t *testing.T) {
	a, okA := NormalizePhone("+91 98765-43210")
	b, okB := NormalizePhone("9876543210")
	if !okA || !okB || a != b {
		t.Fatalf("expected equal canonical values, got %q/%v and %q/%v", a, okA, b, okB)
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"Plain", "Ravi Kumar", "Ravi Kumar", true},
		{"Padded", "  Ravi   Kumar \n", "Ravi Kumar", true},
		{"KeepsCase", "RAVI kumar", "RAVI kumar", true},
		{"Unknown", "Unknown", "", false},
		{"NoneUpper", "NONE", "", false},
		{"NA", " n/a ", "", false},
		{"Null", "null", "", false},
		{"Empty", "", "", false},
		{"Whitespace", "   ", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeName(tc.in)
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("NormalizeName(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"SpacedLowercase", "mh 02 c 5555", "MH02C5555", true},
		{"Compact", "MH12HG9999", "MH12HG9999", true},
		{"Dashes", "DL-3C-AB-1234", "DL3CAB1234", true},
		{"SingleDigitDistrict", "KA5MN123", "KA5MN123", true},
		{"NoDigits", "ABCDEF", "", false},
		{"TooManySeriesLetters", "MH12ABCD1234", "", false},
		{"TooFewTrailingDigits", "MH12AB12", "", false},
		{"Empty", "", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizePlate(tc.in)
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("NormalizePlate(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestNormalizersAreIdempotent(t *testing.T) {
	normalizers := map[string]struct {
		fn     Normalizer
		inputs []string
	}{
		"phone": {NormalizePhone, []string{"+91 98765-43210", "919198765432", "09876543210", "9123456789"}},
		"name":  {NormalizeName, []string{"  Ravi   Kumar ", "Anil"}},
		"plate": {NormalizePlate, []string{"mh 02 c 5555", "dl-3c-ab-1234"}},
	}

	for name, n := range normalizers {
		for _, in := range n.inputs {
			once, ok := n.fn(in)
			if !ok {
				t.Fatalf("%s: %q unexpectedly rejected", name, in)
			}
			twice, ok := n.fn(once)
			if !ok || twice != once {
				t.Fatalf("%s: not idempotent for %q: %q then %q", name, in, once, twice)
			}
		}
	}
}

func TestToArray(t *testing.T) {
	tests := []struct {
		name  string
		value any
		fn    Normalizer
		want  []string
	}{
		{"Scalar", "+91 98765 43210", NormalizePhone, []string{"9876543210"}},
		{"ScalarRejected", "100", NormalizePhone, []string{}},
		{"SequenceDropsFailures", []string{"9876543210", "12345", "9123456789"}, NormalizePhone, []string{"9876543210", "9123456789"}},
		{"SequenceDedupes", []string{"9876543210", "+919876543210"}, NormalizePhone, []string{"9876543210"}},
		{"AnySlice", []any{"mh 02 c 5555", 7, "junk"}, NormalizePlate, []string{"MH02C5555"}},
		{"Nil", nil, NormalizeName, nil},
		{"UnsupportedType", 42, NormalizeName, nil},
		{"OrderPreserved", []string{"Zed", "Amy", "unknown", "Bob"}, NormalizeName, []string{"Zed", "Amy", "Bob"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ToArray(tc.value, tc.fn)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ToArray(%v) = %#v, want %#v", tc.value, got, tc.want)
			}
		})
	}
}

func TestCompactText(t *testing.T) {
	if got := CompactText("mh-12 hg.9999"); got != "MH12HG9999" {
		t.Fatalf("CompactText() = %q", got)
	}
}
