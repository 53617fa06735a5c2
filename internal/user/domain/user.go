package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"

	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
)

var (
	ErrSellerNotFound       = errors.New("seller not found")
	ErrBuyerNotFound        = errors.New("buyer not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrInvalidUser          = errors.New("invalid user")
	ErrUpdateAlreadyApplied = errors.New("update already applied")
	ErrUnknownUpdateType    = errors.New("unknown update type")
)

// Seller guarda las estadísticas que el resto de servicios actualiza por eventos.
type Seller struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	ProfilePicture string     `json:"profilePicture"`
	Country        string     `json:"country"`
	OngoingJobs    int        `json:"ongoingJobs"`
	CompletedJobs  int        `json:"completedJobs"`
	CancelledJobs  int        `json:"cancelledJobs"`
	TotalEarnings  float64    `json:"totalEarnings"`
	TotalGigs      int        `json:"totalGigs"`
	RecentDelivery *time.Time `json:"recentDelivery,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`

	ratingDomain.Aggregate
}

type Buyer struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Country       string    `json:"country"`
	IsSeller      bool      `json:"isSeller"`
	PurchasedGigs []string  `json:"purchasedGigs"`
	CreatedAt     time.Time `json:"createdAt"`
}

func validateUser(id, username string) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(username) == "" {
		return ErrInvalidUser
	}
	return nil
}

func (s *Seller) Validate() error { return validateUser(s.ID, s.Username) }

func (b *Buyer) Validate() error { return validateUser(b.ID, b.Username) }

// SellerStats son incrementos sobre las estadísticas del vendedor. RecentDelivery se sobrescribe.
type SellerStats struct {
	OngoingJobs    int
	CompletedJobs  int
	CancelledJobs  int
	TotalEarnings  float64
	TotalGigs      int
	RecentDelivery *time.Time
}

func (u SellerStats) IsZero() bool {
	return u.OngoingJobs == 0 && u.CompletedJobs == 0 && u.CancelledJobs == 0 &&
		u.TotalEarnings == 0 && u.TotalGigs == 0 && u.RecentDelivery == nil
}

func (u SellerStats) ApplyTo(s *Seller) {
	s.OngoingJobs += u.OngoingJobs
	s.CompletedJobs += u.CompletedJobs
	s.CancelledJobs += u.CancelledJobs
	s.TotalEarnings += u.TotalEarnings
	s.TotalGigs += u.TotalGigs
	if u.RecentDelivery != nil {
		t := *u.RecentDelivery
		s.RecentDelivery = &t
	}
}

// UpdateKey identifica un mensaje de estadísticas para aplicarlo una sola vez: (usuario|tipo|referencia).
// Sin referencia no hay clave y el incremento no está protegido.
func UpdateKey(userID, updateType, ref string) string {
	if ref == "" {
		return ""
	}
	return strings.Join([]string{userID, updateType, ref}, "|")
}

// GigCountRef es la referencia de update-gig-count: el gig y el signo del cambio.
func GigCountRef(gigID string, count int) string {
	if gigID == "" {
		return ""
	}
	return gigID + ":" + strconv.FormatInt(int64(count), 10)
}
