package domain

import "encoding/json"

// ItemMeta carries the tag the submission worker sets on uploaded items.
type ItemMeta struct {
	Type string `json:"type,omitempty"`
}

type Item struct {
	ID       string   `json:"_id"`
	Name     string   `json:"name"`
	Size     int64    `json:"size"`
	FolderID string   `json:"folderId,omitempty"`
	Meta     ItemMeta `json:"meta"`
}

// Artifact reports which slot the item fills, if any.
func (i Item) Artifact() (ArtifactKind, bool) {
	return ArtifactKindForType(i.Meta.Type)
}

type File struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType,omitempty"`
	ItemID   string `json:"itemId,omitempty"`
}

// AuthToken is the token block returned by POST /api_key/token.
type AuthToken struct {
	Token   string `json:"token"`
	Expires string `json:"expires"`
}

type tokenEnvelope struct {
	AuthToken AuthToken `json:"authToken"`
}

// DecodeAuthToken extracts the token from an /api_key/token response.
func DecodeAuthToken(b []byte) (AuthToken, error) {
	var env tokenEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return AuthToken{}, err
	}
	return env.AuthToken, nil
}
