package main

import (
	"strings"
	"testing"
)

func TestColorizeRespectsNoColor(t *testing.T) {
	orig := noColor
	defer func() { noColor = orig }()

	noColor = false
	got := colorize(colorGreen, "ok")
	if !strings.Contains(got, colorGreen) || !strings.Contains(got, colorReset) {
		t.Errorf("colorize = %q, want ANSI-wrapped", got)
	}

	noColor = true
	if got := colorize(colorGreen, "ok"); got != "ok" {
		t.Errorf("colorize with no-color = %q, want plain text", got)
	}
}

func TestRootRegistersSubcommands(t *testing.T) {
	want := []string{"plan", "execute", "status", "serve", "run", "config"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestConfigSetUnknownKey(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"config", "set", "bogus.key", "1"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for unknown config key")
	}
	if !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("error = %q", err.Error())
	}
}
