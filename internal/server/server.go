package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"skaila.com/gamification/internal/calendar"
	"skaila.com/gamification/internal/config"
	"skaila.com/gamification/internal/middleware"
	"skaila.com/gamification/internal/repository"
	"skaila.com/gamification/internal/rulebook"
	"skaila.com/gamification/internal/scheduler"

	challengeHttp "skaila.com/gamification/internal/modules/challenge/delivery/http"
	challengeService "skaila.com/gamification/internal/modules/challenge/service"

	leaderboardHttp "skaila.com/gamification/internal/modules/leaderboard/delivery/http"
	leaderboardService "skaila.com/gamification/internal/modules/leaderboard/service"

	multiplierHttp "skaila.com/gamification/internal/modules/multiplier/delivery/http"
	multiplierService "skaila.com/gamification/internal/modules/multiplier/service"

	notifHttp "skaila.com/gamification/internal/modules/notification/delivery/http"
	notifService "skaila.com/gamification/internal/modules/notification/service"

	xpHttp "skaila.com/gamification/internal/modules/xp/delivery/http"
	xpService "skaila.com/gamification/internal/modules/xp/service"
)

// AdminScope guards operations that rewrite shared state.
const AdminScope = "gamification:admin"

type Server struct {
	engine    *gin.Engine
	scheduler *scheduler.Scheduler
	http      *http.Server
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, rules *rulebook.Rulebook) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	cal := calendar.New(cfg.Location())
	store := repository.WithRetry(
		repository.NewGormStore(db, cfg.TxTimeout, cfg.LockTimeout),
		repository.RetryPolicy{
			MaxAttempts:     cfg.RetryAttempts,
			InitialInterval: cfg.RetryInitial,
			MaxInterval:     cfg.RetryMax,
		},
	)

	var publisher notifService.Publisher
	if redisClient != nil {
		publisher = redisClient
	}
	notifSvc := notifService.NewNotificationService(repository.NewNotificationRepository(db), publisher)

	resolver := multiplierService.NewResolver(rules, cal)
	tracker := challengeService.NewTracker(rules, cal)

	xpSvc := xpService.NewXPService(store, rules, cal, resolver, tracker, xpService.WithHooks(notifSvc))
	challengeSvc := challengeService.NewChallengeService(store, tracker, rules, time.Now)
	powerUpSvc := multiplierService.NewPowerUpService(store, time.Now)
	leaderboardSvc := leaderboardService.NewLeaderboardService(store, rules, redisClient, cfg.LeaderboardCacheTTL)

	sched := scheduler.NewScheduler(cfg.Location())
	jobs := scheduler.StandardJobs(scheduler.Schedules{
		Daily:    cfg.CronDaily,
		Weekly:   cfg.CronWeekly,
		Monthly:  cfg.CronMonthly,
		Seasonal: cfg.CronSeasonal,
	}, xpSvc, challengeSvc, cfg.ActiveWindow)
	for _, job := range jobs {
		if err := sched.RegisterJob(job); err != nil {
			return nil, fmt.Errorf("register job %s: %w", job.GetName(), err)
		}
	}

	router := gin.Default()
	setupCORS(router, cfg.AllowedOrigins)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	var counter middleware.Counter
	if redisClient != nil {
		counter = redisClient
	}

	auth := middleware.NewAuthMiddleware(cfg.JWTSecret)
	registerRoutes(router.Group("/api/v1", auth.RequireAuth()), auth, handlers{
		awardLimit:   middleware.RateLimit(counter, "award", cfg.AwardRateLimit, cfg.AwardRateWindow),
		xp:           xpHttp.NewXPHandler(xpSvc),
		challenge:    challengeHttp.NewChallengeHandler(challengeSvc),
		powerUp:      multiplierHttp.NewPowerUpHandler(powerUpSvc),
		leaderboard:  leaderboardHttp.NewLeaderboardHandler(leaderboardSvc),
		notification: notifHttp.NewNotificationHandler(notifSvc),
	})

	return &Server{
		engine:    router,
		scheduler: sched,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

type handlers struct {
	awardLimit   gin.HandlerFunc
	xp           *xpHttp.XPHandler
	challenge    *challengeHttp.ChallengeHandler
	powerUp      *multiplierHttp.PowerUpHandler
	leaderboard  *leaderboardHttp.LeaderboardHandler
	notification *notifHttp.NotificationHandler
}

func registerRoutes(api *gin.RouterGroup, auth *middleware.AuthMiddleware, h handlers) {
	if h.awardLimit != nil {
		api.POST("/awards", h.awardLimit, h.xp.Award)
	} else {
		api.POST("/awards", h.xp.Award)
	}
	api.GET("/leaderboard", h.leaderboard.GetLeaderboard)

	users := api.Group("/users/:user_id")
	{
		users.GET("/profile", h.xp.GetProfile)
		users.PUT("/cosmetics", h.xp.UpdateCosmetics)
		users.GET("/leaderboard-position", h.leaderboard.GetPosition)

		users.GET("/challenges", h.challenge.GetActive)
		users.POST("/challenges/daily", h.challenge.AssignDaily)
		users.POST("/challenges/weekly", h.challenge.AssignWeekly)
		users.POST("/challenges/class/:code", h.challenge.AssignClass)

		users.POST("/power-ups/:code/activate", h.powerUp.Activate)

		users.GET("/notifications", h.notification.GetNotifications)
		users.GET("/notifications/unread-count", h.notification.UnreadCount)
		users.PUT("/notifications/read-all", h.notification.MarkAllAsRead)
		users.PUT("/notifications/:id/read", h.notification.MarkAsRead)
	}

	admin := api.Group("/windows", auth.RequireScope(AdminScope))
	admin.POST("/:window/reset", h.xp.ResetWindow)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the cron jobs and serves HTTP until the listener stops.
func (s *Server) Run() error {
	s.scheduler.Start()
	log.Printf("🚀 Gamification server listening on %s (jobs: %s)", s.http.Addr, strings.Join(s.scheduler.GetRegisteredJobs(), ", "))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains HTTP requests first, then waits for running jobs.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.scheduler.Stop(ctx)
	return err
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
