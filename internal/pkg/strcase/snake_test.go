package strcase

import "testing"

func TestToLowerSnake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Email", "email"},
		{"FullName", "full_name"},
		{"userID", "user_id"},
		{"HTTPServer", "http_server"},
		{"ResendAfter60s", "resend_after60s"},
		{"already_snake", "already_snake"},
	}

	for _, tc := range cases {
		if got := ToLowerSnake(tc.in); got != tc.want {
			t.Errorf("ToLowerSnake(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
