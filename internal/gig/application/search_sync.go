package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	gigDomain "github.com/davicafu/jobberlab/internal/gig/domain"
)

// SearchSync mantiene el índice de búsqueda como proyección del almacén maestro.
// Se invoca de forma síncrona junto a cada mutación del gig, no a través del broker.
type SearchSync struct {
	index gigDomain.SearchIndex
	seq   gigDomain.SequenceGenerator
	log   *zap.Logger
}

func NewSearchSync(index gigDomain.SearchIndex, seq gigDomain.SequenceGenerator, log *zap.Logger) *SearchSync {
	return &SearchSync{index: index, seq: seq, log: log}
}

// EnsureIndex crea el índice si no existe. Es idempotente.
func (s *SearchSync) EnsureIndex(ctx context.Context) error {
	return s.index.EnsureIndex(ctx)
}

// NextSortID pide el siguiente sortId al contador atómico del almacén.
func (s *SearchSync) NextSortID(ctx context.Context) (int64, error) {
	id, err := s.seq.Next(ctx, gigDomain.SortIDSequence)
	if err != nil {
		return 0, fmt.Errorf("next sortId: %w", err)
	}
	return id, nil
}

// OnGigCreated escribe la proyección completa. Si el gig aún no tiene sortId se le asigna uno.
func (s *SearchSync) OnGigCreated(ctx context.Context, g *gigDomain.Gig) error {
	if g.SortID == 0 {
		id, err := s.NextSortID(ctx)
		if err != nil {
			return err
		}
		g.SortID = id
	}
	if err := s.index.Index(ctx, g); err != nil {
		s.log.Warn("⚠️ Search index write failed", zap.String("gig_id", g.ID), zap.Error(err))
		return err
	}
	return nil
}

// OnGigUpdated aplica un merge parcial con solo los campos cambiados.
func (s *SearchSync) OnGigUpdated(ctx context.Context, id string, fields map[string]any) error {
	if err := s.index.Update(ctx, id, fields); err != nil {
		s.log.Warn("⚠️ Search index update failed", zap.String("gig_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *SearchSync) OnGigDeleted(ctx context.Context, id string) error {
	if err := s.index.Delete(ctx, id); err != nil {
		s.log.Warn("⚠️ Search index delete failed", zap.String("gig_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *SearchSync) Search(ctx context.Context, q gigDomain.GigQuery) (gigDomain.SearchResult, error) {
	return s.index.Search(ctx, q)
}

func (s *SearchSync) SearchBySellerID(ctx context.Context, sellerID string, active bool) ([]gigDomain.Gig, error) {
	return s.index.SearchBySellerID(ctx, sellerID, active)
}

func (s *SearchSync) GetByID(ctx context.Context, id string) (*gigDomain.Gig, error) {
	return s.index.Get(ctx, id)
}
