package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sivacor/sivacor-cli/internal/format"
	"github.com/sivacor/sivacor-cli/pkg/domain"
	"github.com/sivacor/sivacor-cli/pkg/girder"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type SubmissionListOptions struct {
	// CreatorID keeps only submissions whose creator_id matches. Empty
	// keeps every creator.
	CreatorID string
	Sort      string
	// SortDir is 1 for ascending and -1 for descending.
	SortDir int
	Since   time.Time
	// Head caps the number of submissions returned. Zero is unlimited.
	Head int
}

// SubmissionDetail is a submission with the records its summary refers to.
// Creator and Job are nil when the server has no such record.
type SubmissionDetail struct {
	Folder      domain.Folder
	Creator     *domain.User
	Job         *domain.Job
	ArtifactIDs map[domain.ArtifactKind]string
}

// ArtifactFile is an item of a submission folder that fills a slot.
type ArtifactFile struct {
	Kind domain.ArtifactKind
	Item domain.Item
}

type SubmissionService interface {
	List(ctx context.Context, opts SubmissionListOptions) ([]domain.Folder, error)
	// Get finds a submission by job id or by folder name.
	Get(ctx context.Context, ident string) (*domain.Folder, error)
	Detail(ctx context.Context, folder domain.Folder) (*SubmissionDetail, error)
	Files(ctx context.Context, folder domain.Folder) ([]ArtifactFile, error)
	Download(ctx context.Context, folder domain.Folder, req DownloadRequest) []DownloadResult
}

type submissionService struct {
	api    API
	users  UserService
	jobs   JobService
	logger *slog.Logger
}

func NewSubmissionService(api API, users UserService, jobs JobService, logger *slog.Logger) SubmissionService {
	return &submissionService{api: api, users: users, jobs: jobs, logger: logger}
}

func (s *submissionService) collection(ctx context.Context) (*domain.Collection, error) {
	var cols []domain.Collection
	if err := s.api.Get(ctx, "collection", url.Values{"name": {domain.SubmissionsCollection}}, &cols); err != nil {
		return nil, fmt.Errorf("find %s collection: %w", domain.SubmissionsCollection, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no '%s' collection found: %w", domain.SubmissionsCollection, ErrNotFound)
	}
	return &cols[0], nil
}

func (s *submissionService) List(ctx context.Context, opts SubmissionListOptions) ([]domain.Folder, error) {
	ctx, span := otel.Tracer("sivacor/submissions").Start(ctx, "sivacor.submission.list",
		trace.WithAttributes(
			attribute.String("sivacor.sort", opts.Sort),
			attribute.Int("sivacor.head", opts.Head),
		))
	defer span.End()

	col, err := s.collection(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	params := url.Values{
		"parentType": {"collection"},
		"parentId":   {col.ID},
	}
	if opts.Sort != "" {
		params.Set("sort", opts.Sort)
	}
	if opts.SortDir != 0 {
		params.Set("sortdir", strconv.Itoa(opts.SortDir))
	}

	raws, err := s.api.ListResource(ctx, "folder", params)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	folders, err := girder.DecodeList[domain.Folder](raws)
	if err != nil {
		return nil, err
	}

	kept := make([]domain.Folder, 0, len(folders))
	for _, f := range folders {
		if opts.Head > 0 && len(kept) >= opts.Head {
			break
		}
		if !opts.Since.IsZero() {
			created, err := format.ParseTimestamp(f.Created)
			if err != nil {
				s.logger.Warn("submission has unparseable creation time", "folder_id", f.ID, "created", f.Created)
			} else if created.Before(opts.Since) {
				continue
			}
		}
		if opts.CreatorID != "" && f.Meta.CreatorID != opts.CreatorID {
			continue
		}
		kept = append(kept, f)
	}
	s.logger.Debug("submissions listed", "fetched", len(folders), "kept", len(kept))
	return kept, nil
}

// LookupParam is the folder query parameter used for a submission
// identifier: names always contain a hyphen, job ids never do.
func LookupParam(ident string) (key, value string) {
	if strings.Contains(ident, "-") {
		return "name", ident
	}
	return "jobId", ident
}

func (s *submissionService) Get(ctx context.Context, ident string) (*domain.Folder, error) {
	col, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	key, value := LookupParam(ident)
	params := url.Values{
		"parentType": {"collection"},
		"parentId":   {col.ID},
		key:          {value},
	}
	var folders []domain.Folder
	if err := s.api.Get(ctx, "folder", params, &folders); err != nil {
		return nil, fmt.Errorf("find submission %s: %w", ident, err)
	}
	if len(folders) == 0 {
		return nil, fmt.Errorf("submission '%s' not found: %w", ident, ErrNotFound)
	}
	return &folders[0], nil
}

func (s *submissionService) Detail(ctx context.Context, folder domain.Folder) (*SubmissionDetail, error) {
	d := &SubmissionDetail{
		Folder:      folder,
		ArtifactIDs: folder.Meta.ArtifactIDs(),
	}
	if id := folder.Meta.CreatorID; id != "" {
		u, err := s.users.Get(ctx, id)
		switch {
		case err == nil:
			d.Creator = u
		case errors.Is(err, ErrNotFound):
			s.logger.Debug("submission creator not found", "creator_id", id)
		default:
			return nil, err
		}
	}
	if id := folder.Meta.JobID; id != "" {
		j, err := s.jobs.Get(ctx, id)
		switch {
		case err == nil:
			d.Job = j
		case errors.Is(err, ErrNotFound):
			s.logger.Debug("submission job not found", "job_id", id)
		default:
			return nil, err
		}
	}
	return d, nil
}

func (s *submissionService) Files(ctx context.Context, folder domain.Folder) ([]ArtifactFile, error) {
	raws, err := s.api.ListResource(ctx, "item", url.Values{"folderId": {folder.ID}})
	if err != nil {
		return nil, fmt.Errorf("list submission files: %w", err)
	}
	items, err := girder.DecodeList[domain.Item](raws)
	if err != nil {
		return nil, err
	}
	var out []ArtifactFile
	for _, it := range items {
		kind, ok := it.Artifact()
		if !ok {
			continue
		}
		out = append(out, ArtifactFile{Kind: kind, Item: it})
	}
	return out, nil
}
