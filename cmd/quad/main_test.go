package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/njchilds90/goquad"
)

func runQuad(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("QUAD_CONFIG_FILE", "")
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Simpson(t *testing.T) {
	store := filepath.Join(t.TempDir(), "graphics_info.csv")
	code, out, errOut := runQuad(t, "-expr", "x^2", "-a", "0", "-b", "1", "-n", "10", "-rule", "simpson", "-store", store)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	got, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		t.Fatalf("stdout should be a number, got %q", out)
	}
	if math.Abs(got-1.0/3) > 1e-6 {
		t.Errorf("∫_0^1 x^2 dx = %v", got)
	}
	s, err := goquad.NewFileStore(store).Read()
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 21 {
		t.Errorf("want 21 stored samples, got %d", s.Len())
	}
}

func TestRun_NoStore(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	code, out, _ := runQuad(t, "-expr", "1", "-a", "-1", "-b", "2", "-n", "4", "-rule", "trap", "-store", "")
	if code != 0 || strings.TrimSpace(out) == "" {
		t.Fatalf("exit %d, stdout %q", code, out)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("no file should be written, found %v", entries)
	}
}

func TestRun_Plot(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "out.png")
	code, _, errOut := runQuad(t, "-expr", "sin(x)", "-b", "3", "-n", "20", "-store", "", "-plot", png)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	data, err := os.ReadFile(png)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("plot is not a PNG")
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"missing expr", []string{"-n", "4"}, 2, "-expr is required"},
		{"bad rule", []string{"-expr", "x", "-rule", "boole"}, 2, "unknown quadrature rule"},
		{"bad flag", []string{"-expr", "x", "-n", "many"}, 2, "invalid value"},
		{"positional", []string{"-expr", "x", "extra"}, 2, "positional"},
		{"parse error", []string{"-expr", "x +* 1", "-store", ""}, 1, "cannot parse"},
		{"unwritable store", []string{"-expr", "x", "-store", filepath.Join(t.TempDir(), "no", "such", "dir.csv")}, 1, "write samples"},
	}
	for _, tt := range tests {
		code, out, errOut := runQuad(t, tt.args...)
		if code != tt.code {
			t.Errorf("%s: want exit %d, got %d (%s)", tt.name, tt.code, code, errOut)
		}
		if out != "" {
			t.Errorf("%s: nothing should reach stdout, got %q", tt.name, out)
		}
		if !strings.Contains(errOut, tt.msg) {
			t.Errorf("%s: stderr %q should contain %q", tt.name, errOut, tt.msg)
		}
	}
}

func TestRun_MaxN(t *testing.T) {
	t.Setenv("QUAD_MAX_N", "10")
	code, _, errOut := runQuad(t, "-expr", "x", "-n", "11", "-store", "")
	if code != 2 || !strings.Contains(errOut, "exceeds") {
		t.Errorf("want exit 2 for n above max, got %d: %s", code, errOut)
	}
}

func TestRun_Help(t *testing.T) {
	code, _, errOut := runQuad(t, "-h")
	if code != 0 || !strings.Contains(errOut, "-expr") {
		t.Errorf("help should exit 0 and list flags, got %d: %s", code, errOut)
	}
}
