package domain

import "encoding/json"

// JobStatus is the integer status code Girder's job plugin stores on a job.
type JobStatus int

const (
	JobInactive  JobStatus = 0
	JobQueued    JobStatus = 1
	JobRunning   JobStatus = 2
	JobCompleted JobStatus = 3
	JobFailed    JobStatus = 4
	JobCanceled  JobStatus = 5
)

// DefaultJobType is the job type submissions are queued under.
const DefaultJobType = "sivacor_submission"

var jobStatusNames = map[JobStatus]string{
	JobInactive:  "Inactive",
	JobQueued:    "Queued",
	JobRunning:   "Running",
	JobCompleted: "Completed",
	JobFailed:    "Failed",
	JobCanceled:  "Canceled",
}

func (s JobStatus) String() string {
	if name, ok := jobStatusNames[s]; ok {
		return name
	}
	return "Unknown"
}

type Job struct {
	ID      string    `json:"_id"`
	Title   string    `json:"title"`
	Type    string    `json:"type"`
	Status  JobStatus `json:"status"`
	Created string    `json:"created"`
	Updated string    `json:"updated"`
	Log     []string  `json:"log"`

	raw json.RawMessage
}

func (j *Job) UnmarshalJSON(b []byte) error {
	type alias Job
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*j = Job(a)
	j.raw = keepRaw(b)
	return nil
}

func (j Job) MarshalJSON() ([]byte, error) {
	if len(j.raw) > 0 {
		return j.raw, nil
	}
	type alias Job
	return json.Marshal(alias(j))
}
