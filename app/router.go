package app

import (
	"bitwise74/drive-api/app/file"
	"bitwise74/drive-api/app/root"
	"bitwise74/drive-api/app/upload"
	"bitwise74/drive-api/aws"
	"bitwise74/drive-api/db"
	"bitwise74/drive-api/internal"
	"bitwise74/drive-api/internal/service"
	"bitwise74/drive-api/internal/store"
	"bitwise74/drive-api/pkg/middleware"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"

	// Request bodies are small JSON documents, part bytes go straight to storage
	maxBodySize = 1 << 20
)

func NewRouter() (*gin.Engine, error) {
	if err := makeLogger(viper.GetString("app.log_level")); err != nil {
		return nil, err
	}

	d := &internal.Deps{}

	db, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	d.DB = db

	s3, err := aws.NewS3()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
	}

	gateway := aws.NewGateway(s3)
	d.Uploader = service.NewUploader(db, gateway, store.NewFolderStore(db))
	d.Files = service.NewFileService(db, gateway, store.NewFolderStore(db))

	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     viper.GetStringSlice("host.cors"),
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	rateLimit := viper.GetInt("security.rate_limit")
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
	})

	jwt := middleware.NewJWTMiddleware([]byte(viper.GetString("jwt.secret")))

	registerRoutes(router, d, limiter.Middleware(), jwt)

	_, err = service.UploadCleanup(
		viper.GetDuration("upload.cleanup_interval"),
		viper.GetDuration("upload.stale_after"),
		db, d.Uploader,
	)
	if err != nil {
		return nil, err
	}

	return router, nil
}

func registerRoutes(router *gin.Engine, d *internal.Deps, rateLimiter, jwt gin.HandlerFunc) {
	main := router.Group("/api", rateLimiter)
	{
		// HEAD /api/heartbeat 				-> Used to check if the server is alive
		main.HEAD("/heartbeat", func(c *gin.Context) { root.Heartbeat(c, d) })
	}

	u := main.Group("/uploads", jwt, middleware.BodySizeLimiter(maxBodySize))
	{
		// POST /api/uploads 				-> Starts or resumes a multipart upload
		u.POST("", func(c *gin.Context) { upload.UploadInitiate(c, d) })

		// GET /api/uploads/:id 			-> Returns the progress of an upload
		u.GET("/:id", func(c *gin.Context) { upload.UploadStatus(c, d) })

		// GET /api/uploads/:id/parts/:number 	-> Presigns the upload of one part
		u.GET("/:id/parts/:number", func(c *gin.Context) { upload.UploadPresignPart(c, d) })

		// PUT /api/uploads/:id/parts/:number 	-> Acknowledges an uploaded part
		u.PUT("/:id/parts/:number", func(c *gin.Context) { upload.UploadAcknowledgePart(c, d) })

		// POST /api/uploads/:id/complete 		-> Assembles the parts into the final object
		u.POST("/:id/complete", func(c *gin.Context) { upload.UploadComplete(c, d) })

		// DELETE /api/uploads/:id 			-> Aborts an upload
		u.DELETE("/:id", func(c *gin.Context) { upload.UploadAbort(c, d) })
	}

	f := main.Group("/files", jwt, middleware.BodySizeLimiter(maxBodySize))
	{
		// GET /api/files 				-> Lists a page of a user's files in a folder
		f.GET("", func(c *gin.Context) { file.FileList(c, d) })

		// GET /api/files/:id				-> Returns a file by it's ID if the user owns it
		f.GET("/:id", func(c *gin.Context) { file.FileFetch(c, d) })

		// GET /api/files/:id/download 		-> Returns a temporary download link
		f.GET("/:id/download", func(c *gin.Context) { file.FileDownload(c, d) })

		// PATCH /api/files/:id			-> Renames a file or moves it to another folder
		f.PATCH("/:id", func(c *gin.Context) { file.FileUpdate(c, d) })

		// DELETE /api/files/:id			-> Deletes a file owned by a user
		f.DELETE("/:id", func(c *gin.Context) { file.FileDelete(c, d) })
	}
}

func makeLogger(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level, %w", err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger, %w", err)
	}

	zap.ReplaceGlobals(log)
	return nil
}
