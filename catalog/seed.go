package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"foodhub/database"
	"foodhub/fixtures"
	"foodhub/models"
)

// SeedReport counts what a seed run did.
type SeedReport struct {
	Restaurants int
	Items       int
	Skipped     int
}

// Seed imports the fixture dataset. Restaurants keep their fixture id as
// both legacyId and numericId and are owned by no vendor; items reference
// their restaurant by storage id. A restaurant the legacy plan already finds
// is skipped, so reseeding preserves existing identities. With reset, the
// restaurant and item collections are cleared first.
func (s *Service) Seed(ctx context.Context, table *fixtures.Table, reset bool) (SeedReport, error) {
	var report SeedReport
	if reset {
		if err := s.store.Items.DeleteAll(ctx); err != nil {
			return report, fmt.Errorf("clear items: %w", err)
		}
		if err := s.store.Restaurants.DeleteAll(ctx); err != nil {
			return report, fmt.Errorf("clear restaurants: %w", err)
		}
	}

	for _, fr := range table.Restaurants() {
		_, err := s.store.Restaurants.FindOne(ctx, s.resolver.Classify(fr.LegacyID).Query)
		if err == nil {
			report.Skipped++
			continue
		}
		if !errors.Is(err, database.ErrNotFound) {
			return report, err
		}

		n, err := s.seedRestaurant(ctx, fr)
		if err != nil {
			return report, fmt.Errorf("seed %q: %w", fr.Name, err)
		}
		report.Restaurants++
		report.Items += n
	}

	s.log.Info("fixtures seeded",
		zap.Int("restaurants", report.Restaurants),
		zap.Int("items", report.Items),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func (s *Service) seedRestaurant(ctx context.Context, fr fixtures.Restaurant) (int, error) {
	r := &models.Restaurant{
		Name:                  fr.Name,
		LegacyID:              fr.LegacyID,
		NumericID:             fr.LegacyID,
		Description:           fr.Description,
		SustainabilityMetrics: fr.SustainabilityMetrics,
		Categories:            append([]string{}, fr.Categories...),
		MainImage:             fr.Image,
		Address:               models.Address{Street: fr.Area},
		IsActive:              true,
	}
	r.ApplyCreateDefaults()
	if err := s.store.Restaurants.Insert(ctx, r); err != nil {
		return 0, err
	}

	for _, fi := range fr.Items {
		item := &models.Item{
			Name:        fi.Name,
			Description: fi.Description,
			Price:       fi.Price,
			Image:       fi.Image,
			Category:    fi.Category,
			LegacyID:    fi.ID,
			Restaurant:  models.NativeRef(r.ID),
			IsAvailable: true,
		}
		if err := s.store.Items.Insert(ctx, item); err != nil {
			return 0, err
		}
		r.Items, _ = addItemID(r.Items, item.ID)
		r.Categories, _ = addCategory(r.Categories, item.Category)
	}

	if err := s.store.Restaurants.Replace(ctx, r); err != nil {
		return 0, err
	}
	return len(fr.Items), nil
}
