package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("METRICS_BACKEND", "none")
	t.Setenv("STORAGE_KIND", "")
	t.Setenv("LOG_LEVEL", "error")
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

const clients = "Company Name,Status,Email\nAcme,active,a@acme.test\nGlobex,lead,g@globex.test\n"

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "clients.csv", clients)

	code, out, _ := run(t, "parse", p, "--sample-size", "1")
	require.Equal(t, exitOK, code)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []any{"Company Name", "Status", "Email"}, got["headers"])
	assert.Len(t, got["sampleRows"], 1)
	assert.EqualValues(t, 2, got["totalRowCount"])

	bad := writeFile(t, dir, "bad.csv", "a,b\n\"x,1\n")
	code, _, errOut := run(t, "parse", bad)
	assert.Equal(t, exitParse, code)
	assert.Contains(t, errOut, "parse csv")
}

func TestUsageErrors(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "clients.csv", clients)

	tests := []struct {
		name string
		args []string
	}{
		{"missing file arg", []string{"parse"}},
		{"unknown flag", []string{"parse", p, "--nope"}},
		{"unknown command", []string{"frobnicate"}},
		{"map without entity", []string{"map", p}},
		{"unknown entity", []string{"map", "--entity", "invoices", p}},
		{"bad comma", []string{"parse", p, "--comma", ";;"}},
		{"run without inputs", []string{"run"}},
		{"schema unknown", []string{"schema", "invoices"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := run(t, tt.args...)
			assert.Equal(t, exitUsage, code)
		})
	}
}

func TestMapAndValidateCommands(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "clients.csv", "Company,Label\nAcme,Active\n")

	code, out, _ := run(t, "map", "--entity", "clients", p)
	require.Equal(t, exitOK, code)
	var mapped struct {
		UnmappedColumns       []string `json:"unmappedColumns"`
		MissingRequiredFields []string `json:"missingRequiredFields"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &mapped))
	assert.Equal(t, []string{"Label"}, mapped.UnmappedColumns)
	assert.Equal(t, []string{"status"}, mapped.MissingRequiredFields)

	code, out, _ = run(t, "validate", "--entity", "clients", p)
	assert.Equal(t, exitValidation, code)
	assert.Contains(t, out, `"isValid": false`)

	m := writeFile(t, dir, "m.json", `{"Label":"status"}`)
	code, out, _ = run(t, "validate", "--entity", "clients", "--mappings", m, p)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, `"isValid": true`)
}

func TestRunCommand_SQLiteSink(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "clients.csv", clients)
	db := filepath.Join(dir, "import.db")

	code, out, errOut := run(t, "run", "--entity", "clients", p, "--sink", "sqlite", "--dsn", db)
	require.Equal(t, exitOK, code, errOut)

	var rep map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.EqualValues(t, 2, rep["stored"])
	assert.Equal(t, "clients", rep["entity"])
}

func TestRunCommand_Batch(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "a.csv", clients)
	writeFile(t, dir, "b.csv", "Email\nx@y.test\n")
	list := writeFile(t, dir, "list.txt", "# inputs\nb.csv\n")

	code, out, _ := run(t, "run", "--entity", "clients", good, "--list", list)
	assert.Equal(t, exitValidation, code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.NotContains(t, got[0], "error")
	assert.Contains(t, got[1]["error"], "invalid mapping")
}

func TestRunCommand_Job(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clients.csv", "Company;Status\nAcme;lead\n")
	job := writeFile(t, dir, "job.json", `{
  "job": "q1",
  "entity": "clients",
  "source": {"kind": "file", "path": "`+filepath.Join(dir, "clients.csv")+`"},
  "parser": {"options": {"comma": ";"}}
}`)

	code, _, errOut := run(t, "run", "--job", job, "--check")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, errOut, "is valid")

	code, out, _ := run(t, "run", "--job", job)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, `"job": "q1"`)

	badJob := writeFile(t, dir, "bad.json", `{"entity":"invoices","source":{"path":""}}`)
	code, _, errOut = run(t, "run", "--job", badJob)
	assert.Equal(t, exitUsage, code)
	assert.True(t, strings.Contains(errOut, "error: "), errOut)
}

func TestSchemaCommand(t *testing.T) {
	code, out, _ := run(t, "schema")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "clients\nprojects\n", out)

	code, out, _ = run(t, "schema", "projects")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "entity: projects")

	code, out, _ = run(t, "schema", "clients", "--json")
	require.Equal(t, exitOK, code)
	var got struct {
		Entity   string           `json:"entity"`
		Fields   []map[string]any `json:"fields"`
		Defaults map[string]any   `json:"defaults"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "clients", got.Entity)
	assert.Equal(t, "lead", got.Defaults["status"])
}
