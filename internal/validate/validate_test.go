package validate

import "testing"

func TestEmail(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"marie@bakehouse.test", true},
		{"  marie@bakehouse.test  ", true},
		{"m+orders@sub.example.co", true},
		{"not-an-email", false},
		{"@bakehouse.test", false},
		{"marie@bakehouse", false},
		{"", false},
	}
	for _, c := range cases {
		if _, ok := Email(c.in); ok != c.ok {
			t.Errorf("Email(%q) ok = %v, want %v", c.in, ok, c.ok)
		}
	}
}

func TestPhone(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"+1 555 0101", true},
		{"(301) 555-0147", true},
		{"5550101", true},
		{"555", false},
		{"call me maybe", false},
		{"", false},
	}
	for _, c := range cases {
		if _, ok := Phone(c.in); ok != c.ok {
			t.Errorf("Phone(%q) ok = %v, want %v", c.in, ok, c.ok)
		}
	}
}

func TestQtyClamps(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"3", 3},
		{" 7 ", 7},
		{"0", 1},
		{"-2", 1},
		{"banana", 1},
		{"51", 50},
	}
	for _, c := range cases {
		if got := Qty(c.in); got != c.want {
			t.Errorf("Qty(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestCash(t *testing.T) {
	if !Cash(20, 13.5) || !Cash(13.5, 13.5) {
		t.Error("sufficient cash rejected")
	}
	if Cash(10, 13.5) {
		t.Error("short cash accepted")
	}
}
