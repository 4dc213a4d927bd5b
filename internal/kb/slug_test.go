package kb

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Learned Recursion", "learned-recursion"},
		{"Retry with Backoff", "retry-with-backoff"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"C++ vs. Go!", "c-vs-go"},
		{"already-a-slug", "already-a-slug"},
		{"UPPER_case_MIX", "upper-case-mix"},
		{"---", ""},
		{"", ""},
		{"2024 Goals: Q1/Q2", "2024-goals-q1-q2"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	inputs := []string{
		"Learned Recursion",
		"Retry with Backoff!!!",
		"déjà vu",
		"a--b__c",
	}
	for _, in := range inputs {
		once := Slugify(in)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}
