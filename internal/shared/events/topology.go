package events

import sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"

// Exchanges del sistema. El tipo es parte del contrato: direct = punto a punto, fanout = difusión.
var (
	EmailNotificationExchange = sharedBus.Exchange{Name: "jobber-email-notification", Kind: sharedBus.Direct}
	SellerUpdateExchange      = sharedBus.Exchange{Name: "jobber-seller-update", Kind: sharedBus.Direct}
	BuyerUpdateExchange       = sharedBus.Exchange{Name: "jobber-buyer-update", Kind: sharedBus.Direct}
	OrderNotificationExchange = sharedBus.Exchange{Name: "jobber-order-notification", Kind: sharedBus.Direct}
	ReviewExchange            = sharedBus.Exchange{Name: "jobber-review", Kind: sharedBus.Fanout}
	UpdateGigExchange         = sharedBus.Exchange{Name: "jobber-update-gig", Kind: sharedBus.Direct}
	SeedGigExchange           = sharedBus.Exchange{Name: "jobber-seed-gig", Kind: sharedBus.Direct}
)

// Routing keys de los exchanges direct.
const (
	AuthEmailKey      = "auth-email"
	UserSellerKey     = "user-seller"
	UserBuyerKey      = "user-buyer"
	OrderEmailKey     = "order-email"
	UpdateGigKey      = "update-gig"
	ReceiveSellersKey = "receive-sellers"
)

// Colas durables. Cada cola tiene además su "<cola>.dlx" y "<cola>.dead".
const (
	UserSellerQueue   = "user-seller-queue"
	UserBuyerQueue    = "user-buyer-queue"
	OrderReviewQueue  = "order-review-queue"
	GigReviewQueue    = "gig-review-queue"
	SellerReviewQueue = "seller-review-queue"
	GigUpdateQueue    = "gig-update-queue"
	SeedGigQueue      = "seed-gig-queue"
)

// Bindings de cada consumidor.
var (
	UserSellerBinding   = sharedBus.NewBinding(SellerUpdateExchange, UserSellerQueue, UserSellerKey)
	UserBuyerBinding    = sharedBus.NewBinding(BuyerUpdateExchange, UserBuyerQueue, UserBuyerKey)
	OrderReviewBinding  = sharedBus.NewBinding(ReviewExchange, OrderReviewQueue, "")
	GigReviewBinding    = sharedBus.NewBinding(ReviewExchange, GigReviewQueue, "")
	SellerReviewBinding = sharedBus.NewBinding(ReviewExchange, SellerReviewQueue, "")
	GigUpdateBinding    = sharedBus.NewBinding(UpdateGigExchange, GigUpdateQueue, UpdateGigKey)
	SeedGigBinding      = sharedBus.NewBinding(SeedGigExchange, SeedGigQueue, ReceiveSellersKey)
)

// DeadLetterExchange y DeadLetterQueue nombran la topología de mensajes muertos de una cola.
func DeadLetterExchange(queue string) string { return queue + ".dlx" }

func DeadLetterQueue(queue string) string { return queue + ".dead" }
