package services

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "Intro to Go", want: "intro-to-go"},
		{in: "  Spaces  Everywhere  ", want: "spaces-everywhere"},
		{in: "C++ & Systems Programming!", want: "c-systems-programming"},
		{in: "already-a-slug", want: "already-a-slug"},
		{in: "ALL CAPS 101", want: "all-caps-101"},
	}

	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}
