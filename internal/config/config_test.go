package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/rvento/drtp/pkg/drtp/strategy"
)

func parseArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("drtp", pflag.ContinueOnError)
	flags := Register(fs)
	require.NoError(t, fs.Parse(args))
	return Parse(flags)
}

func TestParseValidClient(t *testing.T) {
	cfg, err := parseArgs(t, "--mode=client", "--reliability=gbn", "--file=report.bin")
	require.NoError(t, err)
	require.Equal(t, ModeClient, cfg.Mode)
	require.Equal(t, strategy.GoBackN, cfg.Reliability)
	require.Equal(t, strategy.DefaultWireWindow, cfg.Window)
}

func TestParseValidServer(t *testing.T) {
	cfg, err := parseArgs(t, "--mode=server", "--file=/tmp/out")
	require.NoError(t, err)
	require.Equal(t, ModeServer, cfg.Mode)
}

func TestParseRejectsUnknownMode(t *testing.T) {
	_, err := parseArgs(t, "--mode=bogus", "--file=f")
	require.Error(t, err)
}

func TestParseRejectsUnknownReliability(t *testing.T) {
	_, err := parseArgs(t, "--mode=client", "--reliability=bogus", "--file=f")
	require.Error(t, err)
}

func TestParseRejectsBadIP(t *testing.T) {
	_, err := parseArgs(t, "--mode=client", "--file=f", "--ip=not-an-ip")
	require.Error(t, err)
}

func TestParseRejectsBadPort(t *testing.T) {
	_, err := parseArgs(t, "--mode=client", "--file=f", "--port=70000")
	require.Error(t, err)
}

func TestParseRejectsWindowTooSmallForHeader(t *testing.T) {
	_, err := parseArgs(t, "--mode=client", "--file=f", "--window=12")
	require.Error(t, err)
}

func TestParseRequiresFile(t *testing.T) {
	_, err := parseArgs(t, "--mode=client")
	require.Error(t, err)
}

func TestParseRejectsFilenameLongerThanFrame(t *testing.T) {
	longName := "this-filename-is-deliberately-far-too-long-for-the-frame.bin"
	_, err := parseArgs(t, "--mode=client", "--file="+longName)
	require.Error(t, err)
}

func TestParseAllowsLongSaveDirOnServer(t *testing.T) {
	longDir := "/tmp/this-directory-path-is-deliberately-far-too-long-for-the-filename-frame"
	_, err := parseArgs(t, "--mode=server", "--file="+longDir)
	require.NoError(t, err)
}
