package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/plaza/internal/cache"
	"github.com/zfogg/plaza/internal/middleware"
	"github.com/zfogg/plaza/internal/util"
)

// RouterConfig carries the pieces of configuration the router needs
type RouterConfig struct {
	ServiceName    string
	CORSOrigins    []string
	TracingEnabled bool
	// Redis backs the rate limiters. Nil keeps counts in memory.
	Redis *cache.RedisClient
}

// NewRouter wires every route. The returned stop func releases the rate
// limiters' background sweepers.
func NewRouter(h *Handlers, authn middleware.Authenticator, cfg RouterConfig) (*gin.Engine, func()) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.TracingEnabled {
		r.Use(middleware.Tracing(cfg.ServiceName))
	}
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsCfg.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsCfg.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsCfg))

	defaultLimit := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig(), cfg.Redis)
	authLimit := middleware.NewRateLimiter(middleware.AuthRateLimitConfig(), cfg.Redis)
	uploadLimit := middleware.NewRateLimiter(middleware.UploadRateLimitConfig(), cfg.Redis)
	searchLimit := middleware.NewRateLimiter(middleware.SearchRateLimitConfig(), cfg.Redis)
	stop := func() {
		defaultLimit.Stop()
		authLimit.Stop()
		uploadLimit.Stop()
		searchLimit.Stop()
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(func(c *gin.Context) {
		util.RespondMessage(c, 404, "route not found")
	})

	requireAuth := middleware.RequireAuth(authn)

	api := r.Group("/api/v1")
	api.Use(defaultLimit.Middleware())
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/otp", authLimit.Middleware(), h.RequestOTP)
			authGroup.POST("/register", authLimit.Middleware(), h.Register)
			authGroup.POST("/login", authLimit.Middleware(), h.Login)
			authGroup.POST("/google", authLimit.Middleware(), h.GoogleLogin)
			authGroup.GET("/google/url", h.GoogleAuthURL)
			authGroup.GET("/google/callback", authLimit.Middleware(), h.GoogleCallback)
			authGroup.POST("/logout", h.Logout)
			authGroup.GET("/me", requireAuth, h.Me)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("/suggestions", h.Suggestions)
			users.POST("/me/picture", uploadLimit.Middleware(), h.UploadProfilePicture)
			users.GET("/:id/profile", h.Profile)
			users.POST("/:id/follow", h.Follow)
			users.DELETE("/:id/follow", h.Unfollow)
			users.GET("/:id/followers", h.Followers)
			users.GET("/:id/following", h.Following)
			users.GET("/:id/stories/archive", h.StoryArchive)
		}

		postsGroup := api.Group("/posts")
		postsGroup.Use(requireAuth)
		{
			postsGroup.POST("", uploadLimit.Middleware(), h.CreatePost)
			postsGroup.GET("/:id", h.GetPost)
			postsGroup.PUT("/:id", h.UpdatePost)
			postsGroup.DELETE("/:id", h.DeletePost)
			postsGroup.POST("/:id/like", h.LikePost)
			postsGroup.DELETE("/:id/like", h.UnlikePost)
			postsGroup.POST("/:id/comments", h.AddComment)
			postsGroup.DELETE("/:id/comments/:commentId", h.DeleteComment)
		}

		storiesGroup := api.Group("/stories")
		storiesGroup.Use(requireAuth)
		{
			storiesGroup.POST("", uploadLimit.Middleware(), h.CreateStory)
			storiesGroup.GET("", h.FreshStories)
			storiesGroup.POST("/:id/view", h.ViewStory)
		}

		api.GET("/feed/:heading", requireAuth, h.Feed)
		api.GET("/search", requireAuth, searchLimit.Middleware(), h.Search)
	}

	return r, stop
}
