package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/sivacor/sivacor-cli/internal/format"
	"github.com/sivacor/sivacor-cli/pkg/domain"
	"github.com/sivacor/sivacor-cli/pkg/girder"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type JobListOptions struct {
	Statuses []int
	Types    []string
	// Since drops jobs created before it. Zero keeps everything.
	Since time.Time
}

type JobService interface {
	List(ctx context.Context, opts JobListOptions) ([]domain.Job, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
}

type jobService struct {
	api    API
	logger *slog.Logger
}

func NewJobService(api API, logger *slog.Logger) JobService {
	return &jobService{api: api, logger: logger}
}

func (s *jobService) List(ctx context.Context, opts JobListOptions) ([]domain.Job, error) {
	ctx, span := otel.Tracer("sivacor/jobs").Start(ctx, "sivacor.job.list",
		trace.WithAttributes(
			attribute.IntSlice("sivacor.job.statuses", opts.Statuses),
			attribute.StringSlice("sivacor.job.types", opts.Types),
		))
	defer span.End()

	params := url.Values{}
	if len(opts.Statuses) > 0 {
		b, err := json.Marshal(opts.Statuses)
		if err != nil {
			return nil, err
		}
		params.Set("statuses", string(b))
	}
	if len(opts.Types) > 0 {
		b, err := json.Marshal(opts.Types)
		if err != nil {
			return nil, err
		}
		params.Set("types", string(b))
	}

	raws, err := s.api.ListResource(ctx, "job/all", params)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs, err := girder.DecodeList[domain.Job](raws)
	if err != nil {
		return nil, err
	}
	if opts.Since.IsZero() {
		return jobs, nil
	}

	kept := jobs[:0]
	for _, j := range jobs {
		created, err := format.ParseTimestamp(j.Created)
		if err != nil {
			s.logger.Warn("job has unparseable creation time", "job_id", j.ID, "created", j.Created)
			kept = append(kept, j)
			continue
		}
		if created.Before(opts.Since) {
			continue
		}
		kept = append(kept, j)
	}
	return kept, nil
}

func (s *jobService) Get(ctx context.Context, id string) (*domain.Job, error) {
	var j domain.Job
	if err := s.api.Get(ctx, "job/"+url.PathEscape(id), nil, &j); err != nil {
		// Girder answers 400 for ids it cannot parse.
		if girder.HasStatus(err, 400, 404) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &j, nil
}
