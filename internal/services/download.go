package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sivacor/sivacor-cli/pkg/domain"
)

type DownloadRequest struct {
	// Slots are CLI slot names; "all" selects every slot.
	Slots []string
	// Dir is the destination directory, the working directory if empty.
	Dir string
	// Progress, when set, returns a writer that receives a copy of the
	// file's bytes as they arrive.
	Progress func(file domain.File) io.Writer
}

// DownloadResult is the outcome of one requested slot. Err is an
// *UnknownSlotError or *SlotUnavailableError for requests that were
// skipped, or the transfer error.
type DownloadResult struct {
	Requested string
	Kind      domain.ArtifactKind
	File      *domain.File
	Path      string
	Bytes     int64
	Err       error
}

// Skipped reports whether the slot was never attempted.
func (r DownloadResult) Skipped() bool {
	switch r.Err.(type) {
	case *UnknownSlotError, *SlotUnavailableError:
		return true
	}
	return false
}

// ExpandSlots turns CLI slot names into download requests in the order
// given, with "all" expanded in registry order and duplicates dropped.
// Unknown names are kept so they can be reported.
func ExpandSlots(names []string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(n string) {
		key := strings.ToLower(n)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, n)
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if strings.EqualFold(n, domain.ArtifactWildcard) {
			for _, name := range domain.ArtifactNames() {
				add(name)
			}
			continue
		}
		if kind, ok := domain.ParseArtifactKind(n); ok {
			add(kind.String())
			continue
		}
		add(n)
	}
	return out
}

// Download fetches each requested slot. A slot that cannot be served is
// reported in its result and never stops the remaining ones.
func (s *submissionService) Download(ctx context.Context, folder domain.Folder, req DownloadRequest) []DownloadResult {
	ids := folder.Meta.ArtifactIDs()
	var results []DownloadResult
	for _, name := range ExpandSlots(req.Slots) {
		res := DownloadResult{Requested: name}
		kind, ok := domain.ParseArtifactKind(name)
		if !ok {
			res.Err = &UnknownSlotError{Name: name}
			results = append(results, res)
			continue
		}
		res.Kind = kind
		fileID, ok := ids[kind]
		if !ok {
			res.Err = &SlotUnavailableError{Kind: kind}
			results = append(results, res)
			continue
		}
		if err := ctx.Err(); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		res.File, res.Path, res.Bytes, res.Err = s.fetch(ctx, fileID, req)
		if res.Err != nil {
			s.logger.Warn("download failed", "slot", name, "file_id", fileID, "err", res.Err)
		}
		results = append(results, res)
	}
	return results
}

func (s *submissionService) fetch(ctx context.Context, fileID string, req DownloadRequest) (*domain.File, string, int64, error) {
	var f domain.File
	if err := s.api.Get(ctx, "file/"+url.PathEscape(fileID), nil, &f); err != nil {
		return nil, "", 0, fmt.Errorf("file %s: %w", fileID, err)
	}

	dir := req.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &f, "", 0, err
	}
	dst := filepath.Join(dir, localName(f))
	tmp, err := os.CreateTemp(dir, "."+localName(f)+".part-*")
	if err != nil {
		return &f, "", 0, err
	}
	defer func() {
		// No-op once renamed.
		_ = os.Remove(tmp.Name())
	}()

	var w io.Writer = tmp
	if req.Progress != nil {
		if pw := req.Progress(f); pw != nil {
			w = io.MultiWriter(tmp, pw)
		}
	}
	n, err := s.api.DownloadFile(ctx, fileID, w)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &f, "", n, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return &f, "", n, err
	}
	return &f, dst, n, nil
}

// localName keeps only the base name the server reports so a record can
// never write outside the destination directory.
func localName(f domain.File) string {
	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(f.Name, "\\", "/")))
	if name == "/" || name == "." || name == "" {
		return f.ID
	}
	return name
}
