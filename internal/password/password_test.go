package password

import "testing"

func TestCheck_RejectsTooShort(t *testing.T) {
	for _, pw := range []string{"", "a", "1234567"} {
		result := Check(pw)
		if result.OK {
			t.Errorf("Password %q should fail the hard minimum", pw)
		}
		if result.Warning == "" {
			t.Errorf("Password %q should carry a warning", pw)
		}
	}
}

func TestCheck_AcceptsMinimumWithWarning(t *testing.T) {
	result := Check("12345678")
	if !result.OK {
		t.Error("Eight characters should pass the hard minimum")
	}
	if result.Strong {
		t.Error("Eight characters should not be considered strong")
	}
	if result.Warning != msgShort {
		t.Errorf("Expected length recommendation, got %q", result.Warning)
	}
}

func TestCheck_WarnsOnMissingCharacterClasses(t *testing.T) {
	cases := []struct {
		pw      string
		warning string
	}{
		{"ABCDEFGHIJKLMNOPQRSTUV", msgLower},
		{"abcdefghijklmnopqrstuv", msgUpper},
		{"abcdefghijKLmnopqrstuv", msgDigits},
		{"abcdefghijKL12mnopqrst", msgSpecial},
	}
	for _, tc := range cases {
		result := Check(tc.pw)
		if !result.OK {
			t.Errorf("Password %q should pass the hard minimum", tc.pw)
		}
		if result.Strong {
			t.Errorf("Password %q should not be strong", tc.pw)
		}
		if result.Warning != tc.warning {
			t.Errorf("Password %q: expected warning %q, got %q", tc.pw, tc.warning, result.Warning)
		}
	}
}

func TestCheck_Strong(t *testing.T) {
	result := Check("Tr0ub4dor&Horse!Staple99")
	if !result.OK || !result.Strong {
		t.Errorf("Expected a strong result, got %+v", result)
	}
	if result.Warning != "" {
		t.Errorf("Strong password should carry no warning, got %q", result.Warning)
	}
}
