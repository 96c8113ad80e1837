package router

import (
	"net/http"
	"time"

	"alumnilink/internal/handlers"
	"alumnilink/internal/logger"
	"alumnilink/internal/middleware"
	"alumnilink/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Deps 是注册路由需要的服务。
type Deps struct {
	DB         *gorm.DB
	Comments   *services.CommentService
	Votes      *services.VoteService
	Reconcile  *services.ReconcileService
	AdminToken string
	Gatherer   prometheus.Gatherer
}

// Options 是全局中间件的配置。
type Options struct {
	Log           *logger.Logger
	SessionName   string
	SessionSecret string
	// TrustGatewayHeaders 允许用 X-Voter-Id 头识别身份
	TrustGatewayHeaders bool
	CORSOrigins         []string
	RequestTimeout      time.Duration
	HTTPMetrics         *middleware.HTTPMetrics
}

// New 组装 gin 引擎：全局中间件 + 路由。
func New(d Deps, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(opts.Log))
	r.Use(middleware.Metrics(opts.HTTPMetrics))
	if len(opts.CORSOrigins) > 0 {
		r.Use(middleware.CORS(opts.CORSOrigins))
	}

	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(opts.SessionName, store))
	r.Use(middleware.LoadVoter(opts.TrustGatewayHeaders))
	r.Use(middleware.Timeout(opts.RequestTimeout))

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	commentHandler := handlers.NewCommentHandler(d.Comments)
	voteHandler := handlers.NewVoteHandler(d.Votes)
	adminHandler := handlers.NewAdminHandler(d.Reconcile)

	// 运维
	r.GET("/healthz", healthz(d.DB))
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	// 公共路由
	api.GET("/news/:id/comments", commentHandler.ListRoots)   // 根评论分页（带回复树）
	api.GET("/news/:id/comments/count", commentHandler.Count) // 评论总数
	api.GET("/comments/:id", commentHandler.Get)              // 单条评论
	api.GET("/comments/:id/tree", commentHandler.Tree)        // 评论及全部回复
	api.GET("/comments/:id/replies", commentHandler.Replies)  // 直接回复
	api.GET("/comments/:id/vote", voteHandler.Current)        // 当前投票人的投票状态

	// 需要身份的路由
	authorized := api.Group("/")
	authorized.Use(middleware.VoterRequired())
	{
		authorized.POST("/news/:id/comments", commentHandler.CreateRoot)     // 发表根评论
		authorized.POST("/comments/:id/replies", commentHandler.CreateReply) // 回复
		authorized.PUT("/comments/:id", commentHandler.Edit)                 // 编辑（仅作者）
		authorized.DELETE("/comments/:id", commentHandler.Delete)            // 删除（仅作者，级联）
		authorized.POST("/comments/:id/like", voteHandler.Like)              // 点赞 / 撤回
		authorized.POST("/comments/:id/dislike", voteHandler.Dislike)        // 点踩 / 撤回
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired(d.AdminToken))
	{
		admin.POST("/comments/reconcile", adminHandler.Reconcile) // 按账本校准计数
	}
}

func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
