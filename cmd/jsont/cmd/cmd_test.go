package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/benjaminschreck/go-jsont/pkg/jsont"
)

// run executes the root command with colors off and returns stdout and
// stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// writeFiles creates files in a temporary directory and returns it.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestRenderCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"list.jsont":    "{name|html}: {.repeated section items}{@}{.alternates with}, {.end}",
		"data.yaml":     "name: \"<b>\"\nitems: [1, 2]\n",
		"data.json":     `{"name": "json", "items": []}`,
		"partials.yaml": "greet: \"hi {name}\"\n",
		"include.jsont": "{.include greet output}!",
		"extra.json":    `{"k": "injected"}`,
		"inject.jsont":  "{.inject @i extra.json}{@i.k}",
		"broken.jsont":  "{a|nope}{b}",
	})
	path := func(name string) string { return filepath.Join(dir, name) }

	tests := []struct {
		name       string
		stdin      string
		args       []string
		wantOut    string
		wantStderr string
		wantErr    bool
	}{
		{
			name:    "yaml data",
			args:    []string{"render", path("list.jsont"), "--data", path("data.yaml")},
			wantOut: "&lt;b&gt;: 1, 2",
		},
		{
			name:    "stdin template with json data",
			stdin:   "{name}/{items|count}",
			args:    []string{"render", "-", "-d", path("data.json")},
			wantOut: "json/0",
		},
		{
			name:    "include needs the flag",
			args:    []string{"render", path("include.jsont"), "-p", path("partials.yaml"), "-d", path("data.json")},
			wantOut: "!",
		},
		{
			name:    "include",
			args:    []string{"render", path("include.jsont"), "-p", path("partials.yaml"), "-d", path("data.json"), "--include"},
			wantOut: "hi json!",
		},
		{
			name:    "inject",
			args:    []string{"render", path("inject.jsont"), "--inject", "extra.json=" + path("extra.json")},
			wantOut: "injected",
		},
		{
			name:       "safe mode reports warnings",
			args:       []string{"render", path("broken.jsont"), "--safe", "-d", path("data.json")},
			wantOut:    "{a|nope}",
			wantStderr: "warning: SyntaxError FORMATTER_UNKNOWN",
		},
		{
			name:    "strict mode fails",
			args:    []string{"render", path("broken.jsont")},
			wantErr: true,
		},
		{
			name:    "missing data file",
			args:    []string{"render", path("list.jsont"), "-d", path("nope.json")},
			wantErr: true,
		},
		{
			name:    "bad inject spec",
			args:    []string{"render", path("list.jsont"), "-i", "=x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, stderr, err := run(t, tt.stdin, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, out)
			if tt.wantStderr != "" {
				assert.Contains(t, stderr, tt.wantStderr)
			}
		})
	}
}

func TestRenderOutputFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"t.jsont": "{.space}ok"})
	target := filepath.Join(dir, "out.txt")

	out, _, err := run(t, "", "render", filepath.Join(dir, "t.jsont"), "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, " ok", string(written))
}

func TestRenderWatchRejectsStdin(t *testing.T) {
	_, _, err := run(t, "{a}", "render", "-", "--watch")
	assert.ErrorContains(t, err, "--watch needs a template file")
}

func TestRenderStrictSyntaxError(t *testing.T) {
	_, _, err := run(t, "{.section a}", "render", "-")
	require.Error(t, err)
	assert.True(t, jsont.IsSyntaxError(err))
}

func TestValidateCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"good.jsont": "{.section a}{b|html}{.end}",
		"bad.jsont":  "{a|htm}{.evn?}x{.end}",
	})

	out, _, err := run(t, "", "validate", filepath.Join(dir, "good.jsont"))
	require.NoError(t, err)
	assert.Contains(t, out, "ok "+filepath.Join(dir, "good.jsont")+" (4 instructions)")

	out, _, err = run(t, "", "validate", filepath.Join(dir, "good.jsont"), filepath.Join(dir, "bad.jsont"))
	assert.EqualError(t, err, "1 of 2 templates invalid")
	assert.Contains(t, out, "fail "+filepath.Join(dir, "bad.jsont"))
	assert.Contains(t, out, "FORMATTER_UNKNOWN")
	assert.Contains(t, out, "did you mean 'html'?")
	assert.Contains(t, out, "PREDICATE_UNKNOWN")
	assert.Contains(t, out, "did you mean 'even?'?")
	// Results are printed in argument order.
	assert.Less(t, strings.Index(out, "good.jsont"), strings.Index(out, "bad.jsont"))
}

func TestValidateStats(t *testing.T) {
	out, _, err := run(t, "{a|html}{b|html}", "validate", "--stats", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "instructions: 3")
	assert.Contains(t, out, "formatters:")
	assert.Regexp(t, `html\s+2`, out)
}

func TestASTCommand(t *testing.T) {
	out, _, err := run(t, "a{b}", "ast", "-")
	require.NoError(t, err)
	assert.Equal(t, `[17,1,[[0,"a"],[1,[["b"]],0]],18]`+"\n", out)

	out, _, err = run(t, "a{b}", "ast", "-", "--format", "msgpack")
	require.NoError(t, err)
	var decoded []any
	require.NoError(t, msgpack.Unmarshal([]byte(out), &decoded))
	assert.Len(t, decoded, 4)

	_, _, err = run(t, "a", "ast", "-", "-f", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestReprAndTreeCommands(t *testing.T) {
	out, _, err := run(t, "{.section a}x{.or}y{.end}", "repr", "-")
	require.NoError(t, err)
	assert.Equal(t, "{.section a}x{.or}y{.end}\n", out)

	out, _, err = run(t, "{.section a}x{.end}", "tree", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "SECTION {1,1} a")

	_, _, err = run(t, "{.end}", "repr", "-")
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	source := "{a|html}{b|html}{.even?}x{.end}"

	out, _, err := run(t, source, "stats", "-", "-f", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"total": 6,
		"instructions": {"VARIABLE": 2, "PREDICATE": 1, "TEXT": 1, "END": 1, "EOF": 1},
		"formatters": {"html": 2},
		"predicates": {"even?": 1}
	}`, out)

	out, _, err = run(t, source, "stats", "-", "-f", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "total: 6")
	assert.Contains(t, out, "html: 2")

	out, _, err = run(t, source, "stats", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "instructions: 6")
	assert.Contains(t, out, "predicates:")
}

func TestEvalCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{"d.json": `{"total": 10}`})

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"arithmetic", []string{"eval", "1 + 2 * 3"}, "7\n", false},
		{"data", []string{"eval", "-d", filepath.Join(dir, "d.json"), "total * 2"}, "20\n", false},
		{"string", []string{"eval", `"a" + 1`}, "\"a1\"\n", false},
		{"assignment only", []string{"eval", "@x = 1"}, "", false},
		{"parse error", []string{"eval", "(1 + 2"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, "", tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEvalDebug(t *testing.T) {
	out, _, err := run(t, "", "eval", "--debug", "@x = 2; @x + 1")
	require.NoError(t, err)
	assert.Contains(t, out, "rpn: ")
	assert.Contains(t, out, "@x = 2\n")
	assert.True(t, strings.HasSuffix(out, "3\n"), out)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "jsont v"+Version)
	assert.Contains(t, out, "Go Version:")
}

func TestConfigFlag(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"ok.yaml":  "safe_execution: true\nlog_level: warn\n",
		"bad.toml": "log_level = \"loud\"\n",
	})

	out, _, err := run(t, "{a|nope}", "--config", filepath.Join(dir, "ok.yaml"), "render", "-")
	require.NoError(t, err)
	assert.Equal(t, "{a|nope}", out)

	_, _, err = run(t, "", "--config", filepath.Join(dir, "bad.toml"), "version")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestSuggest(t *testing.T) {
	candidates := []string{"html", "htmlattr", "json", "raw"}
	tests := []struct {
		name string
		want string
	}{
		{"htm", "html"},
		{"jsn", "json"},
		{"rwa", "raw"},
		{"completely-different", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, suggest(tt.name, candidates))
		})
	}
}

func TestLoadDataFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"a": [1, 2]}`))
		case "/data":
			w.Header().Set("Content-Type", "application/yaml")
			w.Write([]byte("a: b\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	v, err := loadData(ctx, srv.URL+"/data.json")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{int64(1), int64(2)}}, v)

	v, err = loadData(ctx, srv.URL+"/data")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "b"}, v)

	_, err = loadData(ctx, srv.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")
}

func TestLoadPartials(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"ok.json":     `{"a": "{x}", "b": "y"}`,
		"list.json":   `["a"]`,
		"number.yaml": "a: 1\n",
	})

	partials, err := loadPartials(filepath.Join(dir, "ok.json"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "{x}", "b": "y"}, partials)

	_, err = loadPartials(filepath.Join(dir, "list.json"))
	assert.ErrorContains(t, err, "must contain an object")
	_, err = loadPartials(filepath.Join(dir, "number.yaml"))
	assert.ErrorContains(t, err, `partial "a" must be a string`)

	partials, err = loadPartials("")
	require.NoError(t, err)
	assert.Nil(t, partials)
}
