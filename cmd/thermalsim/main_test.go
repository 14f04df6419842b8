package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kacperjurak/thermalcore"
)

func TestReadProfile(t *testing.T) {
	in := `timestamp,load,ambient,top_oil
# comment
2021-01-01T00:00:00Z, 100, 21, 41
2021-01-01T00:15:00Z, 110, 21.5, 42
`
	p, err := readProfile(strings.NewReader(in), thermalcore.Amperes)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []float64{100, 110}, p.Load)
	assert.Equal(t, []float64{21, 21.5}, p.Ambient)
	assert.Equal(t, []float64{41, 42}, p.TopOil)
	assert.Equal(t, 15*time.Minute, p.Timestamps[1].Sub(p.Timestamps[0]))

	p, err = readProfile(strings.NewReader("2021-01-01T00:00:00Z,0.5,20\n"), thermalcore.Fraction)
	require.NoError(t, err)
	assert.Nil(t, p.TopOil)
	assert.Equal(t, thermalcore.Fraction, p.Unit)
}

func TestReadProfileErrors(t *testing.T) {
	tests := map[string]string{
		"empty":            "timestamp,load,ambient\n",
		"bad timestamp":    "2021-01-01T00:00:00Z,1,2\nyesterday,1,2\n",
		"bad number":       "2021-01-01T00:00:00Z,one,2\n",
		"too few columns":  "2021-01-01T00:00:00Z,1\n",
		"ragged top-oil":   "2021-01-01T00:00:00Z,1,2,3\n2021-01-01T00:15:00Z,1,2\n",
		"too many columns": "2021-01-01T00:00:00Z,1,2,3,4\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := readProfile(strings.NewReader(in), thermalcore.Amperes)
			assert.Error(t, err)
		})
	}
}

func writeProfile(t *testing.T, n int, load float64) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("timestamp,load,ambient\n")
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "%s,%g,20\n", start.Add(time.Duration(i)*15*time.Minute).Format(time.RFC3339), load)
	}
	path := filepath.Join(t.TempDir(), "profile.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestRun(t *testing.T) {
	cfg := parseFlags([]string{
		"-f", writeProfile(t, 4, 1500),
		"-ll", "1000", "-in", "1500", "-p0", "200", "-surcharge", "0",
		"-paper", "normal",
		"-imgsave", "-imgpath", filepath.Join(t.TempDir(), "run.svg"),
	})

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out, zaptest.NewLogger(t)))

	text := out.String()
	assert.Contains(t, text, "top-oil")
	assert.Contains(t, text, "2021-01-01T00:45:00Z")
	assert.Contains(t, text, "H=1.3000")
	assert.Contains(t, text, "aged")

	_, err := os.Stat(cfg.ImgPath)
	assert.NoError(t, err)
}

func TestRunCalibrateAndSweep(t *testing.T) {
	cfg := parseFlags([]string{
		"-f", writeProfile(t, 4, 1500),
		"-ll", "1000", "-in", "1500", "-p0", "200", "-surcharge", "0",
		"-rise", "51.3", "-gr", "22.6",
		"-calibrate", "-method", "secant",
		"-h", "1.1", "-h", "1.3", "-q",
	})

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "calibration (secant")
	assert.Contains(t, lines[0], "H = 1.18")
	assert.True(t, strings.HasPrefix(lines[1], "H=1.1000"))
	assert.True(t, strings.HasPrefix(lines[2], "H=1.3000"))
}

func TestRunErrors(t *testing.T) {
	cfg := parseFlags([]string{"-f", filepath.Join(t.TempDir(), "missing.csv")})
	assert.Error(t, run(context.Background(), cfg, &bytes.Buffer{}, nil))

	cfg = parseFlags([]string{"-f", writeProfile(t, 2, 10), "-ll", "1000", "-p0", "200", "-surcharge", "0"})
	assert.ErrorIs(t, run(context.Background(), cfg, &bytes.Buffer{}, nil), thermalcore.ErrConfiguration, "the nominal current is required")

	cfg = parseFlags([]string{"-f", writeProfile(t, 2, 10), "-ll", "1000", "-in", "1500", "-p0", "200", "-surcharge", "0", "-top-oil0", "40", "-load0", "1"})
	assert.ErrorIs(t, run(context.Background(), cfg, &bytes.Buffer{}, nil), thermalcore.ErrConfiguration)

	cfg = parseFlags([]string{"-f", writeProfile(t, 2, 10), "-ll", "1000", "-in", "1500", "-surcharge", "0"})
	err := run(context.Background(), cfg, &bytes.Buffer{}, nil)
	var cfgErr *thermalcore.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "no_load_loss", cfgErr.Field, "the no-load loss has no default")
}
