package services

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
)

// API is the subset of the Girder client the services use.
type API interface {
	Get(ctx context.Context, path string, params url.Values, out any) error
	ListResource(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) (int64, error)
}
