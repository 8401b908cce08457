package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/sivacor/sivacor-cli/pkg/domain"
	"github.com/sivacor/sivacor-cli/pkg/girder"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type UserService interface {
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	// Search resolves free text to exactly one user.
	Search(ctx context.Context, text string) (*domain.User, error)
	// Directory maps every user id to its listing display name.
	Directory(ctx context.Context) (map[string]string, error)
}

type userService struct {
	api    API
	logger *slog.Logger
}

func NewUserService(api API, logger *slog.Logger) UserService {
	return &userService{api: api, logger: logger}
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	raws, err := s.api.ListResource(ctx, "user", nil)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return girder.DecodeList[domain.User](raws)
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := s.api.Get(ctx, "user/"+url.PathEscape(id), nil, &u); err != nil {
		if girder.HasStatus(err, 400, 404) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (s *userService) Search(ctx context.Context, text string) (*domain.User, error) {
	ctx, span := otel.Tracer("sivacor/users").Start(ctx, "sivacor.user.search",
		trace.WithAttributes(attribute.String("sivacor.user.query", text)))
	defer span.End()

	raws, err := s.api.ListResource(ctx, "user", url.Values{"text": {text}})
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	users, err := girder.DecodeList[domain.User](raws)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("user search", "query", text, "matches", len(users))

	switch len(users) {
	case 0:
		return nil, fmt.Errorf("no user found (search: %s): %w", text, ErrNotFound)
	case 1:
		return &users[0], nil
	}
	// Several accounts match the text; an exact login wins, nothing else
	// breaks the tie.
	for i := range users {
		if users[i].Login == text {
			return &users[i], nil
		}
	}
	return nil, &AmbiguousMatchError{Query: text, Candidates: users}
}

func (s *userService) Directory(ctx context.Context) (map[string]string, error) {
	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	dir := make(map[string]string, len(users))
	for _, u := range users {
		dir[u.ID] = u.DisplayName()
	}
	return dir, nil
}
