// Package app wires the HTTP router and every route of the API
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bitwise74/recipe-api/app/blog"
	"bitwise74/recipe-api/app/nutritionist"
	"bitwise74/recipe-api/app/recipe"
	"bitwise74/recipe-api/app/root"
	"bitwise74/recipe-api/app/user"
	"bitwise74/recipe-api/aws"
	"bitwise74/recipe-api/config"
	"bitwise74/recipe-api/db"
	"bitwise74/recipe-api/internal"
	"bitwise74/recipe-api/internal/access"
	"bitwise74/recipe-api/internal/cache"
	"bitwise74/recipe-api/internal/service"
	"bitwise74/recipe-api/internal/storage"
	"bitwise74/recipe-api/pkg/middleware"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

// NewRouter connects every collaborator named in cfg, starts the background
// workers and returns the ready router. The returned function releases
// everything NewRouter started.
func NewRouter(ctx context.Context, cfg *config.Config) (*gin.Engine, func(), error) {
	makeLogger(cfg.App.LogLevel)

	ctx, cancel := context.WithCancel(ctx)
	closers := []func(){cancel}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	g, err := db.New(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var rdb *redis.Client
	if cfg.Cache.Store == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect to redis, %w", err)
		}
		closers = append(closers, func() { rdb.Close() })
	}

	var queue service.MailQueue
	switch cfg.Queue.Type {
	case "asynq":
		q := service.NewAsynqQueue(redisConnOpt(cfg))
		closers = append(closers, func() { q.Close() })
		queue = q
	default:
		q := service.NewLocalQueue(cfg.Queue.Workers, cfg.Queue.Size, service.NewSMTPSender(cfg.Mail))
		q.StartWorkerPool()
		closers = append(closers, q.Close)
		queue = q
	}

	var images storage.ImageStore
	switch cfg.Storage.Type {
	case "s3":
		images, err = aws.NewS3(ctx, cfg.AWS)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}
	default:
		images, err = storage.NewLocalStore(cfg.Storage.LocalPath)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	d := internal.NewDeps(cfg, g, queue, images, service.NewChatGenerator(cfg.AI))

	if err := d.Accounts.EnsureStaff(ctx, cfg.Admin); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create staff account, %w", err)
	}

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.Security.RateLimit,
		Burst:             cfg.Security.RateLimit * 2,
	})

	router := NewEngine(d, cache.NewStore(rdb), rateLimiter)

	if cfg.Storage.Type == "local" {
		router.Static("/media", cfg.Storage.LocalPath)
	}

	limiterStop := make(chan struct{})
	closers = append(closers, func() { close(limiterStop) })
	rateLimiter.StartCleanup(limiterStop)

	// Blacklisted refresh tokens only need to outlive their expiry
	go service.TokenCleanup(ctx, time.Hour*24, g)

	if cfg.Accounts.UnverifiedTTL > 0 {
		go service.AccountCleanup(ctx, time.Hour, g, images)
	}

	return router, cleanup, nil
}

// NewEngine registers the middleware chain and every route on a new gin
// engine. Responses of cacheable listings are kept in store.
func NewEngine(d *internal.Deps, store persist.CacheStore, rateLimiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     d.Cfg.Host.CORS,
			AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS", "HEAD"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == http.MethodHead
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("user_id", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = d.Cfg.Upload.MaxSize

	jwt := middleware.NewJWTMiddleware(d.DB, d.Sessions)
	turnstile := middleware.NewTurnstileMiddleware(d.Cfg.Turnstile)
	jsonBody := middleware.BodySizeLimiter(1 << 20)
	uploadBody := middleware.BodySizeLimiter(d.Cfg.Upload.MaxSize + 1<<20)

	onlyStaff := middleware.RequireStaff()
	onlyUsers := middleware.RequireRole(access.RoleUser)
	onlyNutritionists := middleware.RequireRole(access.RoleNutritionist)

	// Listings shared by every caller are cached and bumped by every route
	// that can change what they show
	cacheTTL := time.Second * time.Duration(d.Cfg.Cache.TTL)
	recipeFeed := cache.NewFeed(store, "recipes", cacheTTL)
	blogFeed := cache.NewFeed(store, "blogs", cacheTTL)

	m := router.Group("/api", rateLimiter.Middleware())
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/validate		-> Validates a JWT access token
		m.GET("/validate", jwt, root.Validate)
	}

	u := m.Group("/users", jsonBody)
	{
		// POST /api/users 		-> Registers a new user
		u.POST("", turnstile, func(c *gin.Context) { user.UserRegister(c, d) })

		// GET /api/users		-> Lists verified user profiles
		u.GET("", jwt, onlyStaff, func(c *gin.Context) { user.UserList(c, d) })

		// POST /api/users/login 	-> Logs in a user and returns a token pair
		u.POST("/login", func(c *gin.Context) { user.UserLogin(c, d) })

		// POST /api/users/logout	-> Blacklists a refresh token
		u.POST("/logout", jwt, func(c *gin.Context) { user.UserLogout(c, d) })

		// POST /api/users/refresh	-> Rotates a refresh token
		u.POST("/refresh", func(c *gin.Context) { user.UserRefresh(c, d) })

		// GET /api/users/verify/:id_token/:verify_token -> Verifies a new account
		u.GET("/verify/:id_token/:verify_token", func(c *gin.Context) { user.UserVerify(c, d) })

		// POST /api/users/verify/resend	-> Sends the verification mail again
		u.POST("/verify/resend", turnstile, func(c *gin.Context) { user.UserVerifyResend(c, d) })

		// GET /api/users/me		-> Returns the caller's profile and saved recipes
		u.GET("/me", jwt, func(c *gin.Context) { user.UserMe(c, d) })

		// PATCH /api/users/me		-> Updates the caller's account
		u.PATCH("/me", jwt, recipeFeed.Invalidate(), blogFeed.Invalidate(), func(c *gin.Context) { user.UserUpdate(c, d) })

		// DELETE /api/users/:username 	-> Deletes an account
		u.DELETE("/:username", jwt, recipeFeed.Invalidate(), blogFeed.Invalidate(), func(c *gin.Context) { user.UserDelete(c, d) })
	}

	n := m.Group("/nutritionists", jsonBody)
	{
		// POST /api/nutritionists	-> Registers a new nutritionist
		n.POST("", turnstile, func(c *gin.Context) { nutritionist.NutritionistRegister(c, d) })

		// GET /api/nutritionists	-> Lists verified nutritionists
		n.GET("", jwt, onlyStaff, func(c *gin.Context) { nutritionist.NutritionistList(c, d) })

		// GET /api/nutritionists/me	-> Returns the caller's nutritionist profile
		n.GET("/me", jwt, onlyNutritionists, func(c *gin.Context) { nutritionist.NutritionistMe(c, d) })

		// PATCH /api/nutritionists/me	-> Updates the caller's nutritionist profile
		n.PATCH("/me", jwt, onlyNutritionists, blogFeed.Invalidate(), func(c *gin.Context) { nutritionist.NutritionistUpdate(c, d) })
	}

	r := m.Group("/recipes", jwt)
	{
		// POST /api/recipes		-> Creates a recipe, optionally with an image
		r.POST("", onlyUsers, uploadBody, recipeFeed.Invalidate(), func(c *gin.Context) { recipe.RecipeCreate(c, d) })

		// GET /api/recipes/public	-> Lists public recipes
		r.GET("/public", recipeFeed.Cache(), recipe.RecipeList(service.PartitionPublic, d))

		// GET /api/recipes/private	-> Lists private recipes
		r.GET("/private", recipe.RecipeList(service.PartitionPrivate, d))

		// GET /api/recipes/posted	-> Lists the caller's recipes
		r.GET("/posted", recipe.RecipeList(service.PartitionPosted, d))

		// GET /api/recipes/others	-> Lists public recipes of other users
		r.GET("/others", recipe.RecipeList(service.PartitionOthers, d))

		// GET /api/recipes/saved	-> Lists the caller's saved recipes
		r.GET("/saved", recipe.RecipeList(service.PartitionSaved, d))

		// POST /api/recipes/generate	-> Generates a recipe from ingredients
		r.POST("/generate", jsonBody, func(c *gin.Context) { recipe.RecipeGenerate(c, d) })

		// GET /api/recipes/:id		-> Returns a recipe
		r.GET("/:id", func(c *gin.Context) { recipe.RecipeFetch(c, d) })

		// PATCH /api/recipes/:id	-> Updates a recipe
		r.PATCH("/:id", uploadBody, recipeFeed.Invalidate(), func(c *gin.Context) { recipe.RecipeUpdate(c, d) })

		// DELETE /api/recipes/:id	-> Deletes a recipe
		r.DELETE("/:id", recipeFeed.Invalidate(), func(c *gin.Context) { recipe.RecipeDelete(c, d) })

		// POST /api/recipes/:id/save	-> Saves a recipe
		r.POST("/:id/save", onlyUsers, func(c *gin.Context) { recipe.RecipeSave(c, d) })

		// DELETE /api/recipes/:id/save	-> Unsaves a recipe
		r.DELETE("/:id/save", onlyUsers, func(c *gin.Context) { recipe.RecipeUnsave(c, d) })
	}

	b := m.Group("/blogs", jwt, jsonBody)
	{
		// POST /api/blogs		-> Creates a blog and sends it for review
		b.POST("", onlyNutritionists, func(c *gin.Context) { blog.BlogCreate(c, d) })

		// GET /api/blogs/approved	-> Lists approved blogs
		b.GET("/approved", blogFeed.Cache(), func(c *gin.Context) { blog.BlogApproved(c, d) })

		// GET /api/blogs/status/:status -> Lists blogs in a review state
		b.GET("/status/:status", func(c *gin.Context) { blog.BlogByStatus(c, d) })

		// PATCH /api/blogs/:id		-> Updates a blog and sends it back for review
		b.PATCH("/:id", onlyNutritionists, blogFeed.Invalidate(), func(c *gin.Context) { blog.BlogUpdate(c, d) })

		// PATCH /api/blogs/:id/status	-> Sets the review status of a blog
		b.PATCH("/:id/status", onlyStaff, blogFeed.Invalidate(), func(c *gin.Context) { blog.BlogStatusUpdate(c, d) })

		// DELETE /api/blogs/:id	-> Deletes a blog
		b.DELETE("/:id", blogFeed.Invalidate(), func(c *gin.Context) { blog.BlogDelete(c, d) })
	}

	return router
}

func redisConnOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// RunMailWorker delivers verification mail tasks stored in redis until ctx
// is done
func RunMailWorker(ctx context.Context, cfg *config.Config) error {
	makeLogger(cfg.App.LogLevel)

	srv := service.NewMailServer(redisConnOpt(cfg), cfg.Queue.Workers)
	if err := srv.Start(service.NewMailMux(service.NewSMTPSender(cfg.Mail))); err != nil {
		return fmt.Errorf("failed to start mail worker, %w", err)
	}

	zap.L().Info("Mail worker started", zap.String("redis", cfg.Redis.Addr))

	<-ctx.Done()
	srv.Shutdown()

	return nil
}

func makeLogger(level string) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
