package domain

import "encoding/json"

// Submission status values written by the submission worker.
const (
	SubmissionSubmitted  = "submitted"
	SubmissionProcessing = "processing"
	SubmissionCompleted  = "completed"
	SubmissionFailed     = "failed"
)

// Stage is one step of a submission pipeline.
type Stage struct {
	ImageName string `json:"image_name,omitempty"`
	ImageTag  string `json:"image_tag,omitempty"`
	MainFile  string `json:"main_file,omitempty"`
}

func (s *Stage) UnmarshalJSON(b []byte) error {
	var w struct {
		ImageName Text `json:"image_name"`
		ImageTag  Text `json:"image_tag"`
		MainFile  Text `json:"main_file"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = Stage{
		ImageName: string(w.ImageName),
		ImageTag:  string(w.ImageTag),
		MainFile:  string(w.MainFile),
	}
	return nil
}

// SubmissionMeta is the metadata a submission folder carries. Besides the
// typed fields it keeps every key so artifact file ids can be read by name.
type SubmissionMeta struct {
	Status    string  `json:"status,omitempty"`
	CreatorID string  `json:"creator_id,omitempty"`
	JobID     string  `json:"job_id,omitempty"`
	Stages    []Stage `json:"stages,omitempty"`

	fields map[string]json.RawMessage
}

func (m *SubmissionMeta) UnmarshalJSON(b []byte) error {
	var w struct {
		Status    Text            `json:"status"`
		CreatorID Text            `json:"creator_id"`
		JobID     Text            `json:"job_id"`
		Stages    json.RawMessage `json:"stages"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*m = SubmissionMeta{
		Status:    string(w.Status),
		CreatorID: string(w.CreatorID),
		JobID:     string(w.JobID),
		fields:    fields,
	}
	// A stages value that is not a list of objects is left out rather than
	// failing the whole folder.
	if len(w.Stages) > 0 {
		var stages []Stage
		if json.Unmarshal(w.Stages, &stages) == nil {
			m.Stages = stages
		}
	}
	return nil
}

func (m SubmissionMeta) MarshalJSON() ([]byte, error) {
	if m.fields != nil {
		return json.Marshal(m.fields)
	}
	type alias SubmissionMeta
	return json.Marshal(alias(m))
}

// String returns the named field when it holds a JSON string.
func (m SubmissionMeta) String(key string) string {
	v, ok := m.fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

// FileID returns the file id recorded for an artifact slot, or "".
func (m SubmissionMeta) FileID(kind ArtifactKind) string {
	return m.String(kind.Spec().MetaField)
}

// ArtifactIDs maps every slot present on the metadata to its file id.
func (m SubmissionMeta) ArtifactIDs() map[ArtifactKind]string {
	out := make(map[ArtifactKind]string)
	for _, spec := range Artifacts() {
		if id := m.FileID(spec.Kind); id != "" {
			out[spec.Kind] = id
		}
	}
	return out
}

// Folder is a Girder folder. Under the Submissions collection each folder
// is one submission.
type Folder struct {
	ID         string         `json:"_id"`
	Name       string         `json:"name"`
	ParentID   string         `json:"parentId,omitempty"`
	ParentType string         `json:"parentCollection,omitempty"`
	Created    string         `json:"created"`
	Updated    string         `json:"updated"`
	Meta       SubmissionMeta `json:"meta"`

	raw json.RawMessage
}

func (f *Folder) UnmarshalJSON(b []byte) error {
	type alias Folder
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*f = Folder(a)
	f.raw = keepRaw(b)
	return nil
}

func (f Folder) MarshalJSON() ([]byte, error) {
	if len(f.raw) > 0 {
		return f.raw, nil
	}
	type alias Folder
	return json.Marshal(alias(f))
}
