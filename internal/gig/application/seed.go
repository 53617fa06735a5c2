package application

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	gigDomain "github.com/davicafu/jobberlab/internal/gig/domain"
	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
)

var (
	seedCategories = []string{
		"Graphics & Design",
		"Digital Marketing",
		"Writing & Translation",
		"Video & Animation",
		"Music & Audio",
		"Programming & Tech",
		"Data",
		"Business",
	}
	seedDeliveries  = []string{"1 Day Delivery", "2 Days Delivery", "3 Days Delivery", "4 Days Delivery", "5 Days Delivery"}
	seedDepartments = []string{"Books", "Electronics", "Garden", "Games", "Health", "Music", "Outdoors", "Tools"}
	seedProducts    = []string{"Logo", "Banner", "Website", "Podcast", "Video", "Article", "Dashboard", "Mockup"}
	seedVerbs       = []string{"design", "build", "write", "edit", "record", "optimize", "translate", "animate"}
	seedRatingRuns  = []int{4, 2, 4, 3, 1}
)

// SeedGigs crea un gig de prueba por vendedor. Uno de cada cuatro llega con valoraciones de 5 estrellas,
// aplicadas sobre el agregado para que se cumpla su invariante.
func (s *GigService) SeedGigs(ctx context.Context, sellers []sharedEvents.SeedSeller) (int, error) {
	created := 0
	for i, seller := range sellers {
		g := seedGig(seller)
		if (i+1)%4 == 0 {
			for n := seedRatingRuns[rand.Intn(len(seedRatingRuns))]; n > 0; n-- {
				g.Apply(ratingDomain.MaxRating)
			}
		}

		if _, err := s.CreateGig(ctx, g); err != nil {
			return created, fmt.Errorf("seed gig %d of %d: %w", i+1, len(sellers), err)
		}
		created++
		s.log.Debug("🌱 Seeding gig", zap.Int("n", i+1), zap.Int("total", len(sellers)))
	}
	return created, nil
}

func seedGig(seller sharedEvents.SeedSeller) *gigDomain.Gig {
	product := pick(seedProducts)
	title := fmt.Sprintf("I will %s your %s %s", pick(seedVerbs), strings.ToLower(pick(seedDepartments)), strings.ToLower(product))
	basicTitle := fmt.Sprintf("%s %s", pick(seedDepartments), product)
	basicDescription := fmt.Sprintf("A %s %s delivered on time.", strings.ToLower(pick(seedDepartments)), strings.ToLower(product))

	return &gigDomain.Gig{
		SellerID:         seller.ID,
		Username:         seller.Username,
		Email:            seller.Email,
		ProfilePicture:   seller.ProfilePicture,
		Title:            truncate(title, gigDomain.MaxTitleLength),
		BasicTitle:       truncate(basicTitle, gigDomain.MaxBasicTitleLength),
		BasicDescription: truncate(basicDescription, gigDomain.MaxBasicDescriptionLength),
		Description:      fmt.Sprintf("Professional %s work. %s", strings.ToLower(product), basicDescription),
		Active:           true,
		Categories:       pick(seedCategories),
		SubCategories:    []string{pick(seedDepartments), pick(seedDepartments), pick(seedDepartments)},
		Tags:             []string{pick(seedProducts), pick(seedProducts), pick(seedProducts), pick(seedProducts)},
		Price:            float64(20 + rand.Intn(11)),
		CoverImage:       fmt.Sprintf("https://picsum.photos/seed/%d/640/480", rand.Intn(1000)),
		ExpectedDelivery: pick(seedDeliveries),
	}
}

func pick(items []string) string { return items[rand.Intn(len(items))] }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
