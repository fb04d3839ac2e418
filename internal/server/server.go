package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	assetdomain "github.com/smallbiznis/pqio/internal/asset/domain"
	"github.com/smallbiznis/pqio/internal/config"
	customfielddomain "github.com/smallbiznis/pqio/internal/customfield/domain"
	eventdomain "github.com/smallbiznis/pqio/internal/event/domain"
	"github.com/smallbiznis/pqio/internal/exporter"
	"github.com/smallbiznis/pqio/internal/importer"
	importrundomain "github.com/smallbiznis/pqio/internal/importrun/domain"
	meterdomain "github.com/smallbiznis/pqio/internal/meter/domain"
	obslogger "github.com/smallbiznis/pqio/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pqio/internal/observability/metrics"
	obstracing "github.com/smallbiznis/pqio/internal/observability/tracing"
	sensitivitydomain "github.com/smallbiznis/pqio/internal/sensitivity/domain"
	settingdomain "github.com/smallbiznis/pqio/internal/setting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultAddr = ":8080"

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, classifyErrorForLog))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = defaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			s.jobs.cancelAll()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	log          *zap.Logger
	importer     *importer.Importer
	exporter     *exporter.Exporter
	assets       assetdomain.Repository
	meters       meterdomain.Repository
	events       eventdomain.Repository
	runs         importrundomain.Repository
	sensitivity  sensitivitydomain.Service
	customFields customfielddomain.Service
	settings     settingdomain.Service
	jobs         *jobRegistry
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	Importer     *importer.Importer
	Exporter     *exporter.Exporter
	Assets       assetdomain.Repository
	Meters       meterdomain.Repository
	Events       eventdomain.Repository
	Runs         importrundomain.Repository
	Sensitivity  sensitivitydomain.Service
	CustomFields customfielddomain.Service
	Settings     settingdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("http"),
		importer:     p.Importer,
		exporter:     p.Exporter,
		assets:       p.Assets,
		meters:       p.Meters,
		events:       p.Events,
		runs:         p.Runs,
		sensitivity:  p.Sensitivity,
		customFields: p.CustomFields,
		settings:     p.Settings,
		jobs:         newJobRegistry(),
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Imports --------
	api.POST("/imports/:format", s.ImportFiles)
	api.POST("/imports/:format/jobs", s.StartImportJob)
	api.GET("/imports/jobs/:batch_id", s.GetImportJob)
	api.GET("/import_runs", s.ListImportRuns)
	api.GET("/import_runs/:batch_id", s.GetImportRun)

	// -------- Exports --------
	api.POST("/exports", s.ExportEvents)
	api.GET("/assets/:id/events/:event_id/pqds", s.DownloadPQDS)

	// -------- Catalog --------
	api.GET("/assets", s.ListAssets)
	api.GET("/assets/:id", s.GetAssetByID)
	api.GET("/meters", s.ListMeters)
	api.GET("/meters/:id", s.GetMeterByID)
	api.GET("/events", s.ListEvents)
	api.GET("/events/:id", s.GetEventByID)

	// -------- Store-wide settings --------
	api.GET("/sensitivity", s.GetGlobalSensitivity)
	api.PUT("/sensitivity", s.SetGlobalSensitivity)
	api.GET("/custom_field_domains", s.ListCustomFieldDomains)
	api.POST("/custom_field_domains", s.CreateCustomFieldDomain)
	api.GET("/settings/contact", s.GetContact)
	api.PUT("/settings/contact", s.UpdateContact)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
