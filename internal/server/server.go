package server

import (
	"os"
	"strings"
	"time"

	"anoa.com/campuspulse/internal/config"
	"anoa.com/campuspulse/internal/middleware"
	"anoa.com/campuspulse/internal/scheduler"
	"anoa.com/campuspulse/internal/scheduler/jobs"
	"anoa.com/campuspulse/pkg/counterstore"
	"anoa.com/campuspulse/pkg/eventlog"

	analyticsHttp "anoa.com/campuspulse/internal/modules/analytics/delivery/http"
	analyticsService "anoa.com/campuspulse/internal/modules/analytics/service"

	ingestHttp "anoa.com/campuspulse/internal/modules/ingest/delivery/http"
	ingestService "anoa.com/campuspulse/internal/modules/ingest/service"

	notiHttp "anoa.com/campuspulse/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/campuspulse/internal/modules/notification/repository"
	notifService "anoa.com/campuspulse/internal/modules/notification/service"

	rankingHttp "anoa.com/campuspulse/internal/modules/ranking/delivery/http"
	rankingRepo "anoa.com/campuspulse/internal/modules/ranking/repository"
	rankingService "anoa.com/campuspulse/internal/modules/ranking/service"

	rollupHttp "anoa.com/campuspulse/internal/modules/rollup/delivery/http"
	rollupRepo "anoa.com/campuspulse/internal/modules/rollup/repository"
	rollupService "anoa.com/campuspulse/internal/modules/rollup/service"

	scopeRepo "anoa.com/campuspulse/internal/modules/scope/repository"

	scoringHttp "anoa.com/campuspulse/internal/modules/scoring/delivery/http"
	scoringRepo "anoa.com/campuspulse/internal/modules/scoring/repository"
	scoringService "anoa.com/campuspulse/internal/modules/scoring/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   *scheduler.Scheduler
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	counters := counterstore.NewRedisStore(redisClient)
	eventLog := eventlog.NewRedisLog(redisClient)

	scopeRepository := scopeRepo.NewScopeRepository(db)
	userPeriodRepository := scoringRepo.NewUserPeriodRepository(db)
	rollupRepository := rollupRepo.NewRollupRepository(db)

	// Notification Module
	recommendationRepository := notifRepo.NewRecommendationRepository(db)
	notificationSvc := notifService.NewNotificationService(recommendationRepository, redisClient)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient)

	// Ingest Module
	gateway := ingestService.NewGateway(
		eventLog, counters, userPeriodRepository,
		cfg.EventStream, cfg.AppendRetries, cfg.AppendBackoff,
	)
	ingestHandler := ingestHttp.NewIngestHandler(gateway)

	// Rollup Module
	rollupSvc := rollupService.NewService(
		rollupRepository, userPeriodRepository, eventLog, counters,
		notificationSvc, cfg.EventStream,
	)
	rollupHandler := rollupHttp.NewRollupHandler(rollupSvc, cfg.RollupBatchSize)

	// Scoring Module
	scoringSvc := scoringService.NewService(userPeriodRepository, notificationSvc)
	scoringHandler := scoringHttp.NewScoringHandler(scoringSvc)

	// Ranking Module
	contentRepository := rankingRepo.NewContentRepository(db)
	rankingSvc := rankingService.NewService(contentRepository, gateway)
	rankingHandler := rankingHttp.NewRankingHandler(rankingSvc)

	// Analytics Module
	analyticsSvc := analyticsService.NewService(
		rollupRepository, userPeriodRepository, counters, cfg.ActiveWindow,
	)
	analyticsHandler := analyticsHttp.NewAnalyticsHandler(analyticsSvc)

	// Background jobs
	sched := scheduler.NewScheduler()
	sched.RegisterJob(jobs.NewRollupJob(rollupSvc, cfg.RollupBatchSize, "@every "+cfg.RollupInterval.String()))
	sched.RegisterJob(jobs.NewFinalizeJob(scoringSvc))
	sched.RegisterJob(jobs.NewRetentionJob(rollupRepository, userPeriodRepository))
	sched.RegisterJob(jobs.NewPruneJob(counters, scopeRepository, cfg.ActiveWindow))

	router := gin.New()

	setupCORS(router)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	identity := middleware.NewIdentityMiddleware()

	api := router.Group("/api")

	// Public routes (no identity required)
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Scoped routes (identity headers required)
	scoped := api.Group("")
	scoped.Use(identity.RequireIdentity())
	{
		// Admin routes
		adminGroup := scoped.Group("/admin")
		{
			adminGroup.POST("/rollup/run", rollupHandler.RunBatch)
			adminGroup.POST("/rollup/rebuild", rollupHandler.Rebuild)
		}

		// Event ingestion
		scoped.POST("/events", ingestHandler.IngestEvent)

		// Analytics routes
		scoped.GET("/analytics/timeseries", analyticsHandler.GetTimeSeries)
		scoped.GET("/analytics/leaderboard", analyticsHandler.GetLeaderboard)
		scoped.GET("/analytics/growth", analyticsHandler.GetGrowthProjection)
		scoped.GET("/analytics/compare", analyticsHandler.CompareScopes)
		scoped.GET("/analytics/live", analyticsHandler.GetLiveDashboard)

		// Content routes
		scoped.GET("/contents/top", rankingHandler.GetTopContent)
		scoped.GET("/contents/:content_id", rankingHandler.GetContent)

		// Recommendation routes
		scoped.GET("/recommendations", notificationHandler.GetRecommendations)
		scoped.GET("/dashboard/ws", notificationHandler.HandleDashboardFeed)

		// Routes requiring an acting user
		authed := scoped.Group("")
		authed.Use(identity.RequireUser())
		{
			authed.POST("/contents", rankingHandler.CreateContent)
			authed.POST("/contents/:content_id/like", rankingHandler.ToggleLike)
			authed.POST("/contents/:content_id/comments", rankingHandler.CreateComment)
			authed.POST("/comments/:comment_id/like", rankingHandler.ToggleCommentLike)

			authed.GET("/me/stats", scoringHandler.GetMyStats)
			authed.GET("/me/recommendations", notificationHandler.GetMyRecommendations)
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   sched,
	}
}

func (s *Server) Run(addr string) error {
	s.scheduler.Start()
	defer s.scheduler.Stop()
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine) {
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-User-ID", "X-Scope-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
