package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestJobStatusString(t *testing.T) {
	tests := []struct {
		name   string
		status JobStatus
		want   string
	}{
		{"inactive", JobInactive, "Inactive"},
		{"queued", JobQueued, "Queued"},
		{"running", JobRunning, "Running"},
		{"completed", JobStatus(3), "Completed"},
		{"failed", JobFailed, "Failed"},
		{"canceled", JobCanceled, "Canceled"},
		{"negative", JobStatus(-1), "Unknown"},
		{"six", JobStatus(6), "Unknown"},
		{"large", JobStatus(824), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArtifactRegistryIsClosed(t *testing.T) {
	specs := Artifacts()
	if len(specs) != 6 {
		t.Fatalf("expected 6 artifact slots, got %d", len(specs))
	}
	seenNames := map[string]bool{}
	seenTags := map[string]bool{}
	for i, s := range specs {
		if int(s.Kind) != i {
			t.Errorf("slot %d has kind %d", i, s.Kind)
		}
		if seenNames[s.Name] || seenTags[s.TypeTag] {
			t.Errorf("duplicate registry entry %+v", s)
		}
		seenNames[s.Name] = true
		seenTags[s.TypeTag] = true
		if !strings.HasSuffix(s.MetaField, "_file_id") {
			t.Errorf("meta field %q does not end in _file_id", s.MetaField)
		}
	}

	// Mutating the returned slice must not leak into the registry.
	specs[0].Name = "changed"
	if ArtifactReplPack.Spec().Name != "ReplPack" {
		t.Fatal("registry was mutated through Artifacts()")
	}
}

func TestParseArtifactKind(t *testing.T) {
	tests := []struct {
		in     string
		want   ArtifactKind
		wantOK bool
	}{
		{"ReplPack", ArtifactReplPack, true},
		{"replpack", ArtifactReplPack, true},
		{"stdout", ArtifactStdout, true},
		{" tsr ", ArtifactTSR, true},
		{"SIG", ArtifactSig, true},
		{"all", 0, false},
		{"log", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseArtifactKind(tt.in)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("ParseArtifactKind(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestArtifactKindOutOfRange(t *testing.T) {
	k := ArtifactKind(42)
	if k.Valid() {
		t.Fatal("expected kind 42 to be invalid")
	}
	if k.String() != "unknown" {
		t.Errorf("String() = %q", k.String())
	}
	if k.Spec().MetaField != "" {
		t.Errorf("unexpected meta field %q", k.Spec().MetaField)
	}
}

func TestFolderMetaArtifactIDs(t *testing.T) {
	doc := `{
		"_id": "f1",
		"name": "sub-2024-01",
		"created": "2024-01-01T10:00:00.000000+00:00",
		"updated": "2024-01-01T10:05:00.000000+00:00",
		"meta": {
			"status": "completed",
			"creator_id": "u1",
			"job_id": "j1",
			"stages": [{"image_name": "python", "image_tag": "3.12", "main_file": "run.py"}],
			"stdout_file_id": "file-out",
			"tro_file_id": "file-tro",
			"sig_file_id": 17,
			"extra": {"nested": true}
		}
	}`
	var f Folder
	if err := json.Unmarshal([]byte(doc), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Meta.Status != SubmissionCompleted || f.Meta.JobID != "j1" || len(f.Meta.Stages) != 1 {
		t.Fatalf("unexpected meta: %+v", f.Meta)
	}

	ids := f.Meta.ArtifactIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 artifact ids, got %v", ids)
	}
	if ids[ArtifactStdout] != "file-out" || ids[ArtifactTRO] != "file-tro" {
		t.Errorf("unexpected ids: %v", ids)
	}
	if _, ok := ids[ArtifactSig]; ok {
		t.Error("non-string file id should be ignored")
	}
}

func TestFolderMarshalKeepsServerDocument(t *testing.T) {
	doc := []byte(`{"_id":"f1","name":"a-b","meta":{"status":"failed","custom":[1,2]},"lowerName":"a-b"}`)
	var f Folder
	if err := json.Unmarshal(doc, &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal([]Folder{f})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "["+string(doc)+"]" {
		t.Errorf("marshal = %s", out)
	}
}

func TestFolderMarshalWithoutRaw(t *testing.T) {
	f := Folder{ID: "f2", Name: "x", Meta: SubmissionMeta{Status: "submitted"}}
	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"status":"submitted"`) {
		t.Errorf("marshal = %s", out)
	}
}

func TestFolderLooseMetadata(t *testing.T) {
	doc := []byte(`[
		{"_id":"f1","meta":{"stages":[{"image_name":"python","image_tag":"3.12"}]}},
		{"_id":"f2","meta":{"status":null,"job_id":7,"stages":[{"image_name":"r","image_tag":3,"main_file":true}]}}
	]`)
	var folders []Folder
	if err := json.Unmarshal(doc, &folders); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(folders) != 2 {
		t.Fatalf("decoded %d folders", len(folders))
	}
	m := folders[1].Meta
	if m.Status != "" || m.JobID != "7" {
		t.Errorf("meta = %+v", m)
	}
	want := Stage{ImageName: "r", ImageTag: "3", MainFile: "true"}
	if len(m.Stages) != 1 || m.Stages[0] != want {
		t.Errorf("stages = %+v", m.Stages)
	}
}

func TestTextUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Text
	}{
		{`"abc"`, "abc"},
		{`3`, "3"},
		{`2.5`, "2.5"},
		{`false`, "false"},
		{`null`, ""},
		{`{"a":1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		var got Text
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Errorf("%s: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOAuthIdentityNumericID(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"login":"ada","oauth":[{"provider":"github","id":12345}]}`), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(u.OAuth) != 1 || u.OAuth[0].ID != "12345" {
		t.Errorf("oauth = %+v", u.OAuth)
	}
}

func TestUserIdentity(t *testing.T) {
	u := User{FirstName: "Ada", LastName: "Lovelace", Login: "ada", Email: "ada@example.org",
		OAuth: []OAuthIdentity{{"github", "1"}, {"orcid", "2"}, {"github", "3"}}}
	if got := u.Identity(); got != `"Ada Lovelace" <ada@example.org> (ada)` {
		t.Errorf("Identity() = %s", got)
	}
	if got := u.DisplayName(); got != "Ada Lovelace (ada)" {
		t.Errorf("DisplayName() = %s", got)
	}
	if got := strings.Join(u.OAuthProviders(), ","); got != "github,orcid" {
		t.Errorf("OAuthProviders() = %s", got)
	}
}

func TestItemArtifact(t *testing.T) {
	k, ok := Item{Meta: ItemMeta{Type: "tsr"}}.Artifact()
	if !ok || k != ArtifactTSR {
		t.Errorf("Artifact() = %v, %v", k, ok)
	}
	if _, ok := (Item{}).Artifact(); ok {
		t.Error("untagged item should not match a slot")
	}
}

func TestDecodeAuthToken(t *testing.T) {
	tok, err := DecodeAuthToken([]byte(`{"authToken":{"token":"abc","expires":"2030-01-01"},"user":{}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tok.Token != "abc" {
		t.Errorf("token = %q", tok.Token)
	}
}
