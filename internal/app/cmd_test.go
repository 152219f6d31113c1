package app

import "testing"

func TestParseCommand(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want Command
	}{
		{"no args defaults to serve", nil, CommandServe},
		{"explicit serve", []string{"serve"}, CommandServe},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"unknown falls back to serve", []string{"migrate"}, CommandServe},
		{"extra args ignored", []string{"healthcheck", "--verbose"}, CommandHealthcheck},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ParseCommand(c.args); got != c.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", c.args, got, c.want)
			}
		})
	}
}
