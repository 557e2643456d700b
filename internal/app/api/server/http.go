package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/docs"
	"github.com/fatflowers/payportal/internal/app/api/handlers"
	mw "github.com/fatflowers/payportal/internal/app/api/middleware"
	"github.com/fatflowers/payportal/internal/app/service/transaction"
	"github.com/fatflowers/payportal/internal/repository"
	cfgpkg "github.com/fatflowers/payportal/pkg/config"
	"github.com/fatflowers/payportal/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

func newEngine(cfg *cfgpkg.Config, hm *metrics.HTTPMetrics) *gin.Engine {
	if cfg.Env != cfgpkg.EnvDev {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	if hm != nil {
		r.Use(hm.HandlerFunc())
	}
	// Request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware(), mw.UserMiddleware())
	return r
}

type routeParams struct {
	fx.In
	Engine  *gin.Engine
	Log     *zap.SugaredLogger
	Manager transaction.TransactionManager
	Store   repository.Store
	Admin   *handlers.AdminHandler
}

func registerRoutes(p routeParams) {
	r, log := p.Engine, p.Log
	logged := []gin.HandlerFunc{mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log)}

	pub := r.Group("/")
	pub.Use(logged...)
	handlers.RegisterHealthRoutes(pub, p.Store)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(logged...)

	// Gateway callbacks carry no user
	handlers.RegisterPaymentRoutes(apiV1.Group("/payment"), p.Manager, log)

	// Admin APIs are expected behind the internal network boundary
	handlers.RegisterAdminRoutes(apiV1.Group("/admin"), p.Admin)

	user := apiV1.Group("/")
	user.Use(mw.RequireUser())
	handlers.RegisterTransactionRoutes(user, p.Manager, log)
}

func runServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("server error", "err", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine, handlers.NewAdminHandler),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
