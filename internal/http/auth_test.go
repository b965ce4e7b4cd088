package http

import "testing"

func TestValidPassword(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"Abcdef12", true},
		{"LongEnough99", true},
		{"short1A", false},
		{"alllowercase1", false},
		{"ALLUPPERCASE1", false},
		{"NoDigitsHere", false},
		{"WayTooLongPassword12345", false},
	}
	for _, tc := range cases {
		if got := validPassword(tc.password); got != tc.ok {
			t.Fatalf("validPassword(%q) = %v, want %v", tc.password, got, tc.ok)
		}
	}
}

func TestValidFullName(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"Ada Lovelace", true},
		{"Ada", true},
		{"Jean Luc Picard", true},
		{"", false},
		{" Ada", false},
		{"Ada ", false},
		{"Ada  Lovelace", false},
		{"Ada L0velace", false},
	}
	for _, tc := range cases {
		if got := validFullName(tc.name); got != tc.ok {
			t.Fatalf("validFullName(%q) = %v, want %v", tc.name, got, tc.ok)
		}
	}
}
