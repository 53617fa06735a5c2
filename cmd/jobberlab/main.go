package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/davicafu/jobberlab/internal/config"
	gigApp "github.com/davicafu/jobberlab/internal/gig/application"
	gigDomain "github.com/davicafu/jobberlab/internal/gig/domain"
	gigEvents "github.com/davicafu/jobberlab/internal/gig/infra/inbound/events"
	gigHttp "github.com/davicafu/jobberlab/internal/gig/infra/inbound/http"
	gigRepo "github.com/davicafu/jobberlab/internal/gig/infra/outbound/db/mongodb"
	gigElastic "github.com/davicafu/jobberlab/internal/gig/infra/outbound/search/elastic"
	gigMemory "github.com/davicafu/jobberlab/internal/gig/infra/outbound/search/memory"
	"github.com/davicafu/jobberlab/internal/gig/infra/outbound/sequence"
	infraEvents "github.com/davicafu/jobberlab/internal/infra/events"
	"github.com/davicafu/jobberlab/internal/infra/events/rabbitmq"
	orderApp "github.com/davicafu/jobberlab/internal/order/application"
	orderDomain "github.com/davicafu/jobberlab/internal/order/domain"
	orderEvents "github.com/davicafu/jobberlab/internal/order/infra/inbound/events"
	orderHttp "github.com/davicafu/jobberlab/internal/order/infra/inbound/http"
	orderAnalytics "github.com/davicafu/jobberlab/internal/order/infra/outbound/analytics/clickhouse"
	orderRepo "github.com/davicafu/jobberlab/internal/order/infra/outbound/db/mongodb"
	reviewApp "github.com/davicafu/jobberlab/internal/review/application"
	reviewDomain "github.com/davicafu/jobberlab/internal/review/domain"
	reviewHttp "github.com/davicafu/jobberlab/internal/review/infra/inbound/http"
	reviewPostgres "github.com/davicafu/jobberlab/internal/review/infra/outbound/db/postgres"
	reviewSQLite "github.com/davicafu/jobberlab/internal/review/infra/outbound/db/sqlite"
	sharedDomain "github.com/davicafu/jobberlab/internal/shared/domain"
	"github.com/davicafu/jobberlab/internal/shared/infra/metrics"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/jobberlab/internal/shared/infra/platform/cache"
	sharedMongo "github.com/davicafu/jobberlab/internal/shared/infra/platform/db/mongodb"
	sharedPostgres "github.com/davicafu/jobberlab/internal/shared/infra/platform/db/postgres"
	sharedSQLite "github.com/davicafu/jobberlab/internal/shared/infra/platform/db/sqlite"
	"github.com/davicafu/jobberlab/internal/shared/infra/relayer"
	"github.com/davicafu/jobberlab/internal/shared/infra/utils"
	userApp "github.com/davicafu/jobberlab/internal/user/application"
	userEvents "github.com/davicafu/jobberlab/internal/user/infra/inbound/events"
	userHttp "github.com/davicafu/jobberlab/internal/user/infra/inbound/http"
	userRepo "github.com/davicafu/jobberlab/internal/user/infra/outbound/db/mongodb"
	"github.com/davicafu/jobberlab/pkg/logger"
)

const gigsIndex = "gigs"

// ---------------- Main ----------------
func main() {
	cfg := config.LoadConfig()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "jobberlab"})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	// ---------------- Mongo ----------------
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("failed to connect MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())
	// Mongo puede tardar en arrancar junto al resto de contenedores.
	if err := utils.Retry(ctx, 5, 2*time.Second, func() error { return mongoClient.Ping(ctx, nil) }); err != nil {
		log.Fatal("failed to ping MongoDB", zap.Error(err))
	}
	mdb := mongoClient.Database(cfg.MongoDB)
	log.Info("✅ MongoDB conectado", zap.String("db", cfg.MongoDB))

	orders := orderRepo.NewOrderRepoMongoDB(mdb)
	notifications := orderRepo.NewNotificationRepoMongoDB(mdb)
	gigs := gigRepo.NewGigRepoMongoDB(mdb)
	sellers := userRepo.NewSellerRepoMongoDB(mdb)
	buyers := userRepo.NewBuyerRepoMongoDB(mdb)
	for name, ensure := range map[string]func(context.Context) error{
		"orders":        orders.EnsureIndexes,
		"notifications": notifications.EnsureIndexes,
		"gigs":          gigs.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Warn("⚠️ No se pudieron crear los índices", zap.String("collection", name), zap.Error(err))
		}
	}

	// ---------------- SQL (reviews + outbox) ----------------
	db, reviews, sqlOutbox := openReviewStore(ctx, cfg, log)
	defer db.Close()

	var outbox sharedDomain.OutboxRepository = sqlOutbox
	if cfg.OutboxStore == config.OutboxMongo {
		mongoOutbox := sharedMongo.NewOutboxRepoMongoDB(mdb)
		if err := mongoOutbox.EnsureIndexes(ctx); err != nil {
			log.Warn("⚠️ No se pudieron crear los índices del outbox", zap.Error(err))
		}
		outbox = mongoOutbox
	}

	// ---------------- Redis: cache + secuencia ----------------
	var (
		cache sharedCache.Cache
		seq   gigDomain.SequenceGenerator
	)
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria y secuencia en Mongo", zap.Error(err))
		memCache := sharedCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		defer memCache.Stop()
		cache = memCache
		seq = sequence.NewMongoSequence(mdb)
	} else {
		defer rdb.Close()
		cache = sharedCache.NewRedisCache(rdb, cfg.CacheTTL)
		seq = sequence.NewRedisSequence(rdb)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// ---------------- Search ----------------
	var index gigDomain.SearchIndex = gigMemory.NewGigIndex()
	if cfg.ElasticSearchURL != "" {
		es, err := gigElastic.NewClient(cfg.ElasticSearchURL)
		if err != nil {
			log.Fatal("failed to create Elasticsearch client", zap.Error(err))
		}
		index = gigElastic.NewGigIndex(es, gigsIndex, log.Named("gigIndex"))
	} else {
		log.Warn("⚠️ ELASTIC_SEARCH_URL vacío, índice de gigs en memoria")
	}
	searchSync := gigApp.NewSearchSync(index, seq, log.Named("searchSync"))
	if err := searchSync.EnsureIndex(ctx); err != nil {
		log.Warn("⚠️ No se pudo crear el índice de gigs", zap.Error(err))
	}

	// ---------------- Analytics ----------------
	var analytics orderDomain.OrderAnalyticsRepository
	if cfg.ClickHouseAddr != "" {
		ch, err := orderAnalytics.NewOrderAnalyticsRepo(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, sin analítica de pedidos", zap.Error(err))
		} else if err := ch.Migrate(ctx); err != nil {
			log.Warn("⚠️ No se pudo crear order_events_log", zap.Error(err))
			ch.Close()
		} else {
			defer ch.Close()
			analytics = ch
		}
	}

	// ---------------- Events ----------------
	publisher, subscriber, closeBroker := openBroker(cfg, log)
	defer closeBroker()
	producer := sharedBus.NewProducer(publisher, outbox, log.Named("producer"))

	// --------------- Servicios --------------
	notificationService := orderApp.NewNotificationService(notifications, log.Named("notifications"))
	orderService := orderApp.NewOrderService(orders, notificationService, producer, analytics, cfg.ClientURL, log.Named("orderService"))
	gigService := gigApp.NewGigService(gigs, searchSync, cache, cfg.CacheTTL, producer, log.Named("gigService"))
	reviewService := reviewApp.NewReviewService(reviews, producer, log.Named("reviewService"))
	statsService := userApp.NewStatsService(sellers, buyers, log.Named("statsService"))

	// --------------- Consumidores --------------
	consumers := []interface {
		Start(ctx context.Context, sub sharedBus.Subscriber) error
	}{
		orderEvents.NewReviewConsumer(orderService, log.Named("orderReviewConsumer")),
		gigEvents.NewReviewConsumer(gigService, log.Named("gigReviewConsumer")),
		gigEvents.NewSeedConsumer(gigService, log.Named("seedConsumer")),
		userEvents.NewUserConsumer(statsService, log.Named("userConsumer")),
	}
	for _, c := range consumers {
		if err := c.Start(ctx, subscriber); err != nil {
			log.Fatal("failed to start consumer", zap.Error(err))
		}
	}
	log.Info("🎧 Consumidores iniciados", zap.String("broker", cfg.Broker))

	// ------------ Outbox Worker ------------
	worker := relayer.NewOutboxWorker(outbox, publisher, cfg.OutboxPeriod, cfg.OutboxLimit, log.Named("outboxWorker"))
	go worker.Start(ctx)

	// ---------------- HTTP ----------------
	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	orderHttp.RegisterOrderRoutes(router, orderHttp.NewOrderHandler(orderService, notificationService))
	gigHttp.RegisterGigRoutes(router, gigHttp.NewGigHandler(gigService))
	reviewHttp.RegisterReviewRoutes(router, reviewHttp.NewReviewHandler(reviewService))
	userHttp.RegisterUserRoutes(router, userHttp.NewUserHandler(statsService))

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router}
	go func() {
		log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Apagando servidor")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}

// openReviewStore abre SQLite en despliegue local y Postgres en el resto. La misma base
// guarda las reviews y el outbox SQL.
func openReviewStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*sql.DB, reviewDomain.ReviewRepository, sharedDomain.OutboxRepository) {
	if cfg.LocalDeployment || cfg.DatabaseURL == "" {
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			log.Fatal("failed to open SQLite", zap.Error(err))
		}
		if err := reviewSQLite.InitReviewsSQLite(db); err != nil {
			log.Fatal("failed to initialize reviews", zap.Error(err))
		}
		if err := sharedSQLite.MigrateOutbox(ctx, db); err != nil {
			log.Fatal("failed to initialize outbox", zap.Error(err))
		}
		log.Info("✅ SQLite listo", zap.String("path", cfg.SQLitePath))
		return db, reviewSQLite.NewReviewRepoSQLite(db), sharedSQLite.NewOutboxRepoSQLite(db)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open Postgres", zap.Error(err))
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("failed to ping Postgres", zap.Error(err))
	}
	if err := reviewPostgres.InitReviewsPostgres(ctx, db); err != nil {
		log.Fatal("failed to initialize reviews", zap.Error(err))
	}
	if err := sharedPostgres.MigrateOutbox(ctx, db); err != nil {
		log.Fatal("failed to initialize outbox", zap.Error(err))
	}
	log.Info("✅ Postgres conectado")
	return db, reviewPostgres.NewReviewRepoPostgres(db), sharedPostgres.NewOutboxRepoPostgres(db)
}

// openBroker devuelve el publisher y el subscriber del broker configurado.
func openBroker(cfg *config.Config, log *zap.Logger) (sharedBus.Publisher, sharedBus.Subscriber, func()) {
	switch cfg.Broker {
	case config.BrokerKafka:
		log.Info("🚀 Usando Kafka como bus de eventos", zap.Strings("brokers", cfg.KafkaBrokers))
		writer := infraEvents.NewKafkaWriter(cfg.KafkaBrokers)
		pub := infraEvents.NewKafkaPublisher(writer, log.Named("kafkaPublisher"))
		sub := infraEvents.NewKafkaSubscriber(infraEvents.NewKafkaReaderFactory(cfg.KafkaBrokers), writer, cfg.HandlerTimeout, log.Named("kafkaSubscriber"))
		return pub, sub, func() { _ = writer.Close() }

	case config.BrokerMemory:
		log.Info("⚡️ Usando bus de eventos en memoria (canales de Go)")
		bus := infraEvents.NewInMemoryEventBus(0, cfg.HandlerTimeout, log.Named("memoryBus"))
		return bus, bus, func() {}

	default:
		log.Info("🚀 Usando RabbitMQ como bus de eventos")
		conns := rabbitmq.NewConnectionManager(cfg.RabbitMQURL, cfg.ReconnectMinDelay, cfg.ReconnectMaxDelay, log.Named("rabbitmq"))
		pub := rabbitmq.NewPublisher(conns, log.Named("rabbitPublisher"))
		sub := rabbitmq.NewConsumer(conns, cfg.PrefetchCount, cfg.HandlerTimeout, cfg.ReconnectMinDelay, cfg.ReconnectMaxDelay, log.Named("rabbitConsumer"))
		return pub, sub, func() { _ = conns.Close() }
	}
}
