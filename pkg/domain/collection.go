package domain

// SubmissionsCollection is the name of the collection every submission
// folder lives under.
const SubmissionsCollection = "Submissions"

type Collection struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}
