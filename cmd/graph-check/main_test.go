package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"paramcore/pkg/params"
)

func TestCLI_ValidatesDemoGraph(t *testing.T) {
	t.Setenv("PARAMCORE_FETCH_DRIVER", "memory")
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	if code := cli(nil, stdout, stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "graph ok: 2 parameters") {
		t.Fatalf("stdout: %q", stdout.String())
	}
}

func TestCLI_PrintsResponseWithSelection(t *testing.T) {
	t.Setenv("PARAMCORE_FETCH_DRIVER", "memory")
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := cli([]string{"-response", "-select", "region=west"}, stdout, stderr)
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}

	var resp params.Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ResponseVersion != params.ResponseVersion || len(resp.Parameters) != 2 {
		t.Fatalf("response: %#v", resp)
	}
	city := resp.Parameters[1]
	if city.Name != "city" || len(city.Options) != 1 || city.Options[0].ID != "seattle" {
		t.Fatalf("city should narrow to the selected region: %#v", city)
	}
}

func TestCLI_InvalidSelectionFails(t *testing.T) {
	t.Setenv("PARAMCORE_FETCH_DRIVER", "memory")
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	if code := cli([]string{"-select", "region=mars"}, stdout, stderr); code != 1 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "resolve failed") {
		t.Fatalf("stderr: %q", stderr.String())
	}
}

func TestCLI_FlagErrors(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	if code := cli([]string{"-bogus"}, stdout, stderr); code != 2 {
		t.Fatalf("exit %d", code)
	}
	if code := cli([]string{"-select", "no-equals"}, stdout, stderr); code != 2 {
		t.Fatalf("exit %d for malformed selection", code)
	}
}
