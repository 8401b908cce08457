package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sivacor/sivacor-cli/internal/girdertest"
	"github.com/sivacor/sivacor-cli/pkg/app"
	"github.com/sivacor/sivacor-cli/pkg/config"
)

func newTestServer(t *testing.T) *girdertest.Server {
	t.Helper()
	srv := girdertest.NewServer(t)
	srv.Collections = []girdertest.Doc{{"_id": "col-subs", "name": "Submissions"}}
	srv.Users = []girdertest.Doc{
		{"_id": "u-ada", "firstName": "Ada", "lastName": "Lovelace", "login": "ada", "email": "ada@example.org",
			"oauth": []girdertest.Doc{{"provider": "github", "id": "1"}}},
		{"_id": "u-adam", "firstName": "Adam", "lastName": "Smith", "login": "adam", "email": "adam@example.org"},
		{"_id": "u-bob", "firstName": "Bob", "lastName": "Adams", "login": "bob", "email": "bob@example.org"},
	}
	srv.Folders = []girdertest.Doc{
		{
			"_id": "f1", "name": "sub-0001", "parentId": "col-subs", "parentCollection": "collection",
			"created": "2024-03-01T10:00:00.000000+00:00", "updated": "2024-03-01T10:02:00.000000+00:00",
			"meta": girdertest.Doc{
				"status": "completed", "creator_id": "u-ada", "job_id": "job1",
				"stages":         []girdertest.Doc{{"image_name": "python", "image_tag": "3.12", "main_file": "run.py"}},
				"stdout_file_id": "file-out",
				"tro_file_id":    "file-gone",
			},
		},
		{
			"_id": "f2", "name": "sub-0002", "parentId": "col-subs", "parentCollection": "collection",
			"created": "2024-04-01T10:00:00.000000+00:00", "updated": "2024-04-01T10:00:00.000000+00:00",
			"meta": girdertest.Doc{"status": "failed", "creator_id": "u-bob", "job_id": "job2"},
		},
	}
	srv.Items = []girdertest.Doc{
		{"_id": "i-out", "name": "stdout.log", "size": 1536, "folderId": "f1", "meta": girdertest.Doc{"type": "stdout"}},
	}
	srv.Files["file-out"] = girdertest.File{
		Record:  girdertest.Doc{"_id": "file-out", "name": "stdout.log", "size": 5},
		Content: []byte("hello"),
	}
	srv.Jobs = []girdertest.Doc{
		{"_id": "job1", "title": "sub-0001", "type": "sivacor_submission", "status": 3,
			"created": "2024-03-01T10:00:00.000000+00:00", "log": []string{"done\n"}},
		{"_id": "job2", "title": "sub-0002", "type": "sivacor_submission", "status": 4,
			"created": "2024-04-01T10:00:00.000000+00:00"},
	}
	return srv
}

func setEnv(t *testing.T, apiURL, apiKey string) {
	t.Helper()
	t.Setenv("GIRDER_API_URL", apiURL)
	t.Setenv("GIRDER_API_KEY", apiKey)
	t.Setenv("SIVACOR_CONFIG_DIR", t.TempDir())
	t.Setenv("SIVACOR_TIMEZONE", "UTC")
	for _, k := range []string{"SIVACOR_PROFILE", "SIVACOR_LOG_LEVEL", "SIVACOR_LOG_FORMAT", "SIVACOR_TRACING", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(k, "")
	}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	c := &cli{ui: newUI(), stdin: strings.NewReader(stdin), stdout: &out, stderr: &errOut}
	c.appOpts = []app.ApplicationOption{
		app.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
		app.WithPageSize(2),
	}
	root := newRootCmd(c)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func TestUserList(t *testing.T) {
	srv := newTestServer(t)
	setEnv(t, srv.APIURL(), girdertest.APIKey)

	r := run(t, "", "user", "list")
	if r.err != nil {
		t.Fatalf("user list: %v\n%s", r.err, r.stderr)
	}
	for _, want := range []string{"Ada Lovelace", "ada@example.org", "github", "Bob Adams"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("missing %q:\n%s", want, r.stdout)
		}
	}
}

func TestUserSearchAmbiguous(t *testing.T) {
	srv := newTestServer(t)
	setEnv(t, srv.APIURL(), girdertest.APIKey)

	r := run(t, "", "user", "search", "adam")
	if r.err != nil {
		t.Fatalf("exact login should resolve: %v", r.err)
	}
	if !strings.Contains(r.stdout, `"Adam Smith" <adam@example.org> (adam)`) {
		t.Errorf("unexpected output:\n%s", r.stdout)
	}

	// "Ada" matches ada, adam and Bob Adams, and no login equals it.
	r = run(t, "", "user", "search", "Ada")
	if r.err == nil {
		t.Fatal("expected an ambiguity error")
	}
	for _, want := range []string{"Multiple users found", "(ada)", "(adam)", "(bob)"} {
		if !strings.Contains(r.stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, r.stderr)
		}
	}
}

func TestMissingAPIKey(t *testing.T) {
	srv := newTestServer(t)
	setEnv(t, srv.APIURL(), "")

	r := run(t, "", "job", "list")
	if r.err == nil || !strings.Contains(r.err.Error(), "GIRDER_API_KEY") {
		t.Fatalf("expected a missing key error, got %v", r.err)
	}
	if len(srv.Requests()) != 0 {
		t.Errorf("no request should be sent without a key")
	}
}

func TestSubmissionListJSON(t *testing.T) {
	srv := newTestServer(t)
	setEnv(t, srv.APIURL(), girdertest.APIKey)

	r := run(t, "", "submission", "list", "--json", "--user", "ada")
	if r.err != nil {
		t.Fatalf("submission list: %v\n%s", r.err, r.stderr)
	}
	var got []map[string]any
	if err := json.Unmarshal([]byte(r.stdout), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, r.stdout)
	}
	if len(got) != 1 || got[0]["name"] != "sub-0001" || got[0]["parentCollection"] != "collection" {
		t.Errorf("unexpected folders: %v", got)
	}
	if !strings.Contains(r.stderr, "Filtering by user ID: u-ada") {
		t.Errorf("stderr = %s", r.stderr)
	}
}

func TestSubmissionListTable(t *testing.T) {
	srv := newTestServer(t)
	setEnv(t, srv.APIURL(), girdertest.APIKey)

	r := run(t, "", "submission", "list", "--since", "2024-03-15")
	if r.err != nil {
		t.Fatalf("submission list: %v", r.err)
	}
	if strings.Contains(r.stdout, "sub-0001") || !strings.Contains(r.stdout, "sub-0002") {
		t.Errorf("since filter not applied:\n%s", r.stdout)
	}
	if !strings.Contains(r.stdout, "Bob Adams (bob)") || !strings.Contains(r.stdout, "❌") {
		t.Errorf("unexpected table:\n%s", r.stdout)
	}

	r = run(t, "", "submission", "list", "--sortDir", "2")
	if r.err == nil {
		t.Fatal("expected an error for an invalid sort direction")
	}
}

func TestSubmissionGetAndDownload(t *testing.T) {
	srv := newTestServer(t)
	setEnv(t, srv.APIURL(), girdertest.APIKey)
	dir := t.TempDir()

	r := run(t, "", "submission", "get", "job1", "--output-dir", dir,
		"--download", "stdout", "--download", "sig", "--download", "tro")
	if r.err == nil || !strings.Contains(r.err.Error(), "1 of 3 downloads failed") {
		t.Fatalf("expected the tro transfer to fail, got %v", r.err)
	}
	for _, want := range []string{"Status: completed", "Stage 1 Image Tag: python:3.12", "Submitted by: Ada Lovelace", "done", "Run output log: file-out", "1.5 KiB"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, r.stdout)
		}
	}
	if !strings.Contains(r.stderr, "file 'TRS Signature' not available for download") {
		t.Errorf("stderr missing skipped slot warning:\n%s", r.stderr)
	}
	data, err := os.ReadFile(filepath.Join(dir, "stdout.log"))
	if err != nil || string(data) != "hello" {
		t.Errorf("stdout.log = %q, %v", data, err)
	}
}

func TestSubmissionGetNotFound(t *testing.T) {
	srv := newTestServer(t)
	setEnv(t, srv.APIURL(), girdertest.APIKey)

	r := run(t, "", "submission", "get", "sub-9999")
	if r.err == nil || !strings.Contains(r.err.Error(), "submission 'sub-9999' not found") {
		t.Fatalf("unexpected error: %v", r.err)
	}
}

func TestJobListAndGet(t *testing.T) {
	srv := newTestServer(t)
	setEnv(t, srv.APIURL(), girdertest.APIKey)

	r := run(t, "", "job", "list", "--status", "4")
	if r.err != nil {
		t.Fatalf("job list: %v", r.err)
	}
	if !strings.Contains(r.stdout, "job2") || strings.Contains(r.stdout, "job1") || !strings.Contains(r.stdout, "Failed") {
		t.Errorf("unexpected jobs table:\n%s", r.stdout)
	}

	r = run(t, "", "job", "get", "job1")
	if r.err != nil {
		t.Fatalf("job get: %v", r.err)
	}
	if !strings.Contains(r.stdout, "\"_id\": \"job1\"") {
		t.Errorf("unexpected job JSON:\n%s", r.stdout)
	}

	r = run(t, "", "job", "get", "nope")
	if r.err == nil || !strings.Contains(r.err.Error(), "job 'nope' not found") {
		t.Fatalf("unexpected error: %v", r.err)
	}
}

func TestJobStream(t *testing.T) {
	srv := newTestServer(t)
	setEnv(t, srv.APIURL(), girdertest.APIKey)
	srv.LogFrames = []string{"pulling image", "done"}

	r := run(t, "", "job", "stream")
	if r.err != nil {
		t.Fatalf("job stream: %v", r.err)
	}
	for _, want := range []string{"/logs/docker?token=...", "| pulling image\n| done\n", "closed gracefully"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, r.stdout)
		}
	}
	if strings.Contains(r.stdout, girdertest.Token) {
		t.Errorf("token leaked to output")
	}

	srv.LogFrames = nil
	srv.LogCloseCode = websocket.CloseInternalServerErr
	r = run(t, "", "job", "stream")
	if r.err != nil {
		t.Fatalf("abnormal close should not fail the command: %v", r.err)
	}
	if !strings.Contains(r.stdout, "closed unexpectedly (Code: 1011") {
		t.Errorf("unexpected output:\n%s", r.stdout)
	}
}

func TestInitAndConfigShow(t *testing.T) {
	srv := newTestServer(t)
	setEnv(t, "", "")
	t.Setenv("GIRDER_API_URL", "")

	r := run(t, srv.APIURL()+"\nsecret-key-123456\nUTC\n", "init")
	if r.err != nil {
		t.Fatalf("init: %v\n%s", r.err, r.stderr)
	}
	f, err := config.LoadFile(config.Path())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	prof := f.Profiles[config.DefaultProfile]
	if prof.APIURL != srv.APIURL() || prof.APIKey != "secret-key-123456" || prof.Timezone != "UTC" {
		t.Errorf("unexpected profile: %+v", prof)
	}

	t.Setenv("SIVACOR_TIMEZONE", "")
	r = run(t, "", "config", "show")
	if r.err != nil {
		t.Fatalf("config show: %v", r.err)
	}
	if !strings.Contains(r.stdout, "secr...3456") || strings.Contains(r.stdout, "secret-key-123456") {
		t.Errorf("key not masked:\n%s", r.stdout)
	}
	if !strings.Contains(r.stdout, "timezone: UTC") {
		t.Errorf("timezone missing:\n%s", r.stdout)
	}

	// Later commands authenticate with the saved key.
	r = run(t, "", "job", "list")
	if r.err == nil {
		t.Fatal("the saved key is not the server's key, expected an auth error")
	}
	if !strings.Contains(r.err.Error(), "Invalid API key") {
		t.Errorf("unexpected error: %v", r.err)
	}
}

func TestInitRequiresKey(t *testing.T) {
	setEnv(t, "", "")
	r := run(t, "", "init", "--no-prompt")
	if r.err == nil || !strings.Contains(r.err.Error(), "API key is required") {
		t.Fatalf("unexpected error: %v", r.err)
	}
}
