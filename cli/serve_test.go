package cli

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func newFlaggedCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("registry-url", "", "")
	cmd.Flags().Duration("http-timeout", 0, "")
	cmd.Flags().Int("max-result-bytes", 0, "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	return cmd
}

func TestStringSettingFlagWinsOverConfig(t *testing.T) {
	cmd := newFlaggedCmd(t, "--registry-url", "https://flag.example.test")
	if got := stringSetting(cmd, "registry-url", "https://config.example.test"); got != "https://flag.example.test" {
		t.Fatalf("stringSetting = %q, want flag value", got)
	}
}

func TestStringSettingFallsBackToConfig(t *testing.T) {
	cmd := newFlaggedCmd(t)
	if got := stringSetting(cmd, "registry-url", "https://config.example.test"); got != "https://config.example.test" {
		t.Fatalf("stringSetting = %q, want config value", got)
	}
}

func TestDurationSettingConvertsConfigMillis(t *testing.T) {
	cmd := newFlaggedCmd(t)
	if got := durationSetting(cmd, "http-timeout", 2500); got != 2500*time.Millisecond {
		t.Fatalf("durationSetting = %v, want 2.5s", got)
	}

	cmd = newFlaggedCmd(t, "--http-timeout", "7s")
	if got := durationSetting(cmd, "http-timeout", 2500); got != 7*time.Second {
		t.Fatalf("durationSetting = %v, want flag value", got)
	}
}

func TestIntSettingExplicitZeroFlagWins(t *testing.T) {
	// An explicitly passed zero disables truncation even when config sets it.
	cmd := newFlaggedCmd(t, "--max-result-bytes", "0")
	if got := intSetting(cmd, "max-result-bytes", 4096); got != 0 {
		t.Fatalf("intSetting = %d, want explicit 0", got)
	}
}

func TestServeRejectsUnknownFamily(t *testing.T) {
	if _, ok := serverNames["imaging"]; ok {
		t.Fatal("imaging should not be a known tool family")
	}
	for family, name := range serverNames {
		if name == "" {
			t.Fatalf("family %q has empty server name", family)
		}
	}
}
