package services

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/sivacor/sivacor-cli/internal/girdertest"
	"github.com/sivacor/sivacor-cli/pkg/girder"
)

type testEnv struct {
	srv         *girdertest.Server
	api         *girder.Client
	users       UserService
	jobs        JobService
	submissions SubmissionService
	logs        *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := girdertest.NewServer(t)
	seed(srv)

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	api := girder.New(srv.APIURL(), girder.WithLogger(logger), girder.WithPageSize(2))
	if err := api.Authenticate(context.Background(), girdertest.APIKey); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	users := NewUserService(api, logger)
	jobs := NewJobService(api, logger)
	return &testEnv{
		srv:         srv,
		api:         api,
		users:       users,
		jobs:        jobs,
		submissions: NewSubmissionService(api, users, jobs, logger),
		logs:        logs,
	}
}

func seed(srv *girdertest.Server) {
	srv.Collections = []girdertest.Doc{
		{"_id": "col-other", "name": "Archive"},
		{"_id": "col-subs", "name": "Submissions"},
	}
	srv.Users = []girdertest.Doc{
		{"_id": "u-ada", "firstName": "Ada", "lastName": "Lovelace", "login": "ada", "email": "ada@example.org",
			"oauth": []girdertest.Doc{{"provider": "github", "id": "1"}}},
		{"_id": "u-adam", "firstName": "Adam", "lastName": "Smith", "login": "adam", "email": "adam@example.org"},
		{"_id": "u-grace", "firstName": "Grace", "lastName": "Hopper", "login": "grace", "email": "grace@example.org"},
	}
	srv.Folders = []girdertest.Doc{
		{
			"_id": "f1", "name": "sub-0001", "parentId": "col-subs", "parentCollection": "collection",
			"created": "2024-03-01T10:00:00.000000+00:00", "updated": "2024-03-01T10:00:45.000000+00:00",
			"meta": girdertest.Doc{
				"status": "completed", "creator_id": "u-ada", "job_id": "job1",
				"stages": []girdertest.Doc{
					{"image_name": "python", "image_tag": "3.12", "main_file": "run.py"},
					{"image_name": "rocker/r-ver", "image_tag": "4.4", "main_file": "plot.R"},
				},
				"stdout_file_id": "file-out",
				"stderr_file_id": "file-err",
				"tro_file_id":    "file-gone",
			},
		},
		{
			"_id": "f2", "name": "sub-0002", "parentId": "col-subs", "parentCollection": "collection",
			"created": "2024-04-01T09:00:00.000000+00:00", "updated": "2024-04-02T09:05:00.000000+00:00",
			"meta": girdertest.Doc{"status": "failed", "creator_id": "u-grace", "job_id": "job2"},
		},
		{
			"_id": "f3", "name": "sub-0003", "parentId": "col-subs", "parentCollection": "collection",
			"created": "2024-05-01T09:00:00.000000+00:00", "updated": "2024-05-01T09:00:00.000000+00:00",
			"meta": girdertest.Doc{"status": "submitted", "creator_id": "u-ada", "job_id": "job3"},
		},
		{
			"_id": "f-elsewhere", "name": "sub-9999", "parentId": "col-other", "parentCollection": "collection",
			"created": "2024-05-01T09:00:00.000000+00:00", "updated": "2024-05-01T09:00:00.000000+00:00",
			"meta": girdertest.Doc{"status": "completed", "creator_id": "u-ada", "job_id": "job9"},
		},
	}
	srv.Items = []girdertest.Doc{
		{"_id": "i-out", "name": "stdout.log", "size": 2048, "folderId": "f1", "meta": girdertest.Doc{"type": "stdout"}},
		{"_id": "i-err", "name": "stderr.log", "size": 0, "folderId": "f1", "meta": girdertest.Doc{"type": "stderr"}},
		{"_id": "i-misc", "name": "notes.txt", "size": 10, "folderId": "f1", "meta": girdertest.Doc{"type": "notes"}},
		{"_id": "i-plain", "name": "plain.txt", "size": 10, "folderId": "f1"},
	}
	srv.Files["file-out"] = girdertest.File{
		Record:  girdertest.Doc{"_id": "file-out", "name": "stdout.log", "size": 12},
		Content: []byte("run finished"),
	}
	srv.Files["file-err"] = girdertest.File{
		Record:  girdertest.Doc{"_id": "file-err", "name": "../../etc/stderr.log", "size": 0},
		Content: []byte{},
	}
	srv.Jobs = []girdertest.Doc{
		{"_id": "job1", "title": "sub-0001", "type": "sivacor_submission", "status": 3,
			"created": "2024-03-01T10:00:00.000000+00:00", "updated": "2024-03-01T10:00:45.000000+00:00",
			"log": []string{"pulling image\n", "done\n"}},
		{"_id": "job2", "title": "sub-0002", "type": "sivacor_submission", "status": 4,
			"created": "2024-04-01T09:00:00.000000+00:00", "updated": "2024-04-02T09:05:00.000000+00:00"},
		{"_id": "job3", "title": "sub-0003", "type": "sivacor_submission", "status": 1,
			"created": "2024-05-01T09:00:00.000000+00:00", "updated": "2024-05-01T09:00:00.000000+00:00"},
		{"_id": "job-other", "title": "thumbnail", "type": "thumbnails", "status": 3,
			"created": "2024-05-02T09:00:00.000000+00:00", "updated": "2024-05-02T09:00:00.000000+00:00"},
	}
}
