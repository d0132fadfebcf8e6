package api

import "testing"

func TestValidateEmailRegex(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"a@b.com", true},
		{"a+b@b.com.br", true},
		{"", false},
		{"   ", false},
		{"a@", false},
		{"@b.com", false},
		{"a@b", false},
		{"a b@c.com", false},
	}
	for _, c := range cases {
		err := ValidateEmailRegex(c.in)
		if (err == nil) != c.want {
			t.Fatalf("email=%q wantOk=%v gotErr=%v", c.in, c.want, err)
		}
	}
}

func TestValidateDateISO(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"2024-06-10", true},
		{"", true},
		{"10/06/2024", false},
		{"2024-6-1", false},
		{"2024-13-40", false},
		{"amanhã", false},
	}
	for _, c := range cases {
		err := ValidateDateISO(c.in)
		if (err == nil) != c.want {
			t.Fatalf("date=%q wantOk=%v gotErr=%v", c.in, c.want, err)
		}
	}
}

func TestValidateTimeHHMM(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"09:00", true},
		{"23:59", true},
		{"", true},
		{"9:00", false},
		{"24:00", false},
		{"09:60", false},
		{"0900", false},
	}
	for _, c := range cases {
		err := ValidateTimeHHMM(c.in)
		if (err == nil) != c.want {
			t.Fatalf("time=%q wantOk=%v gotErr=%v", c.in, c.want, err)
		}
	}
}
