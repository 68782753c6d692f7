package app

import (
	"context"
	"errors"
	"strings"

	"thucydides/internal/model"
	"thucydides/internal/repository"
)

var ErrQueryEmpty = errors.New("search query is empty")

const featuredLimit = 3

// FigureService serves the figure catalog and runs the streamed figure
// search over it.
type FigureService struct {
	figureRepo *repository.FigureRepository
	resolver   *Resolver
}

type SearchInput struct {
	Query         string
	FileContext   string
	AllowExternal bool
}

func NewFigureService(figureRepo *repository.FigureRepository, resolver *Resolver) *FigureService {
	return &FigureService{figureRepo: figureRepo, resolver: resolver}
}

func (s *FigureService) ListFeatured() ([]model.Figure, error) {
	return s.figureRepo.ListFeatured(featuredLimit)
}

func (s *FigureService) ListArchive() ([]model.Figure, error) {
	return s.figureRepo.ListAll()
}

func (s *FigureService) GetByID(id uint) (*model.Figure, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	figure, err := s.figureRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if figure == nil {
		return nil, ErrFigureNotFound
	}
	return figure, nil
}

// SearchStream matches the query against the whole catalog, emitting the
// model's reasoning as it happens. Input validation fails fast so the
// handler can reject before committing to a stream response.
func (s *FigureService) SearchStream(ctx context.Context, input SearchInput, emit EmitFunc) error {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return ErrQueryEmpty
	}

	candidates, err := s.figureRepo.ListAll()
	if err != nil {
		return err
	}

	return s.resolver.StreamMatch(ctx, MatchInput{
		Query:         query,
		Candidates:    candidates,
		FileContext:   input.FileContext,
		AllowExternal: input.AllowExternal,
	}, emit)
}
