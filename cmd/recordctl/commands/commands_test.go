package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/recordstore/pkg/stores"
)

// run executes recordctl with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand("test", "none", "today")
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestGetMissingPrintsAbsent(t *testing.T) {
	out, err := run(t, "", "get", "1")
	require.NoError(t, err)
	assert.Equal(t, "absent\n", out)

	out, err = run(t, "", "--json", "get", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"get","id":1,"found":false}`, out)
}

func TestExecScenario(t *testing.T) {
	script := writeFile(t, "script.yaml", `
- {op: insert, id: 1, value: initial_value}
- {op: update, id: 1, value: updated_value}
- {op: get, id: 1}
- {op: update, id: 2, value: nobody}
- {op: delete, id: 1}
- {op: delete, id: 1}
- {op: get, id: 1}
- {op: count}
`)

	out, err := run(t, "", "exec", "-f", script)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"inserted 1",
		"updated 1",
		"updated_value",
		"no record 2",
		"deleted 1",
		"no record 1",
		"absent",
		"0",
	}, "\n")+"\n", out)
}

func TestExecJSONFromStdin(t *testing.T) {
	out, err := run(t, "steps:\n  - {op: insert, id: 7, value: \"\"}\n  - {op: get, id: 7}\n",
		"--json", "exec", "-f", "-")
	require.NoError(t, err)

	var results []Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	require.NotNil(t, results[1].Found)
	assert.True(t, *results[1].Found)
	require.NotNil(t, results[1].Value)
	assert.Equal(t, "", *results[1].Value)
}

func TestExecStopsAtFailingStep(t *testing.T) {
	script := writeFile(t, "dup.yaml", `
- {op: insert, id: 1, value: a}
- {op: insert, id: 1, value: b}
- {op: get, id: 1}
`)

	out, err := run(t, "", "exec", "-f", script)
	require.Error(t, err)
	assert.ErrorIs(t, err, stores.ErrDuplicateID)
	assert.Contains(t, err.Error(), "step 2 (insert)")
	assert.Equal(t, "inserted 1\n", out)
}

func TestBoltFilePersistsAcrossInvocations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.bolt")
	flags := []string{"--driver", "bolt", "--path", path}

	_, err := run(t, "", append(flags, "insert", "--", "-5", "negative")...)
	require.NoError(t, err)
	_, err = run(t, "", append(flags, "insert", "3", "positive")...)
	require.NoError(t, err)

	out, err := run(t, "", append(flags, "get", "--", "-5")...)
	require.NoError(t, err)
	assert.Equal(t, "negative\n", out)

	out, err = run(t, "", append(flags, "list")...)
	require.NoError(t, err)
	assert.Equal(t, "-5\tnegative\n3\tpositive\n", out)

	_, err = run(t, "", append(flags, "insert", "3", "again")...)
	assert.ErrorIs(t, err, stores.ErrDuplicateID)
}

func TestSQLiteListPagination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	flags := []string{"--path", path}

	for _, id := range []string{"30", "10", "20"} {
		_, err := run(t, "", append(flags, "insert", id, "v"+id)...)
		require.NoError(t, err)
	}

	out, err := run(t, "", append(flags, "list", "--limit", "1", "--offset", "1")...)
	require.NoError(t, err)
	assert.Equal(t, "20\tv20\n", out)

	out, err = run(t, "", append(flags, "--json", "count")...)
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"count","count":3}`, out)
}

func TestMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")

	for i := 0; i < 2; i++ {
		out, err := run(t, "", "--path", path, "migrate")
		require.NoError(t, err)
		assert.Equal(t, "sqlite store at "+path+" is up to date\n", out)
	}
}

func TestInvalidArguments(t *testing.T) {
	_, err := run(t, "", "get", "one")
	assert.ErrorContains(t, err, "invalid record id")

	_, err = run(t, "", "--driver", "postgres", "count")
	assert.Error(t, err)

	_, err = run(t, "", "--driver", "bolt", "count")
	assert.Error(t, err, "bolt cannot use the in-memory default path")

	_, err = run(t, "", "insert", "1")
	assert.Error(t, err)
}

func TestConfigFileSelectsStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "records.bolt")
	cfgPath := writeFile(t, "recordctl.yaml", "store:\n  driver: bolt\n  path: "+dbPath+"\n")

	_, err := run(t, "", "--config", cfgPath, "insert", "1", "from config")
	require.NoError(t, err)

	out, err := run(t, "", "--driver", "bolt", "--path", dbPath, "get", "1")
	require.NoError(t, err)
	assert.Equal(t, "from config\n", out)
}

func TestShellSession(t *testing.T) {
	input := strings.Join([]string{
		"# comment",
		"insert 1 hello world",
		"get 1",
		"insert 1 again",
		"bogus",
		"list",
		"exit",
		"get 1",
	}, "\n")

	out, err := run(t, input, "shell")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "inserted 1", lines[0])
	assert.Equal(t, "hello world", lines[1])
	assert.Contains(t, lines[2], "error: store duplicate_id")
	assert.Contains(t, lines[3], `error: unknown command "bogus"`)
	assert.Equal(t, "1\thello world", lines[4])
}

func TestParseShellLine(t *testing.T) {
	tests := []struct {
		line    string
		want    Op
		wantErr bool
	}{
		{line: "insert 4 a  b", want: Op{Op: OpInsert, ID: 4, Value: "a b"}},
		{line: "update 4", want: Op{Op: OpUpdate, ID: 4}},
		{line: "READ 9", want: Op{Op: "read", ID: 9}},
		{line: "delete -2", want: Op{Op: OpDelete, ID: -2}},
		{line: "list 10 5", want: Op{Op: OpList, Limit: 10, Offset: 5}},
		{line: "list", want: Op{Op: OpList}},
		{line: "count", want: Op{Op: OpCount}},
		{line: "get", wantErr: true},
		{line: "list x", wantErr: true},
		{line: "count 1", wantErr: true},
		{line: "insert x y", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseShellLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
