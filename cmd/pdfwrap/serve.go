package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	pdfwrap "github.com/porticus-lab/go-pdfwrap"
	"github.com/porticus-lab/go-pdfwrap/storage"
)

// runServe implements the "serve" command.
func runServe(args []string) error {
	var configFile string
	addr := ":8080"
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-c", "-a":
			v, err := optionValue(args, i)
			if err != nil {
				return err
			}
			if args[i] == "-c" {
				configFile = v
			} else {
				addr = v
			}
			i++
		default:
			return fmt.Errorf("unknown option: %s", args[i])
		}
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := pdfwrap.LoadConfig(configFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	disks, err := storage.Open(ctx, cfg.Disks, log)
	if err != nil {
		return err
	}
	b, err := pdfwrap.NewBrowser(pdfwrap.WithNoSandbox(), pdfwrap.WithBrowserLogger(log))
	if err != nil {
		return err
	}
	defer b.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := &server{
		log:         log,
		defaultDisk: cfg.Disk,
		newSession: func() *pdfwrap.Session {
			return pdfwrap.New(b.NewEngine(cfg.Options), cfg,
				pdfwrap.WithLogger(log),
				pdfwrap.WithDisks(disks),
			)
		},
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", addr))
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	log.Info("server exited")
	return nil
}

// server renders one document per request.
type server struct {
	log         *zap.Logger
	defaultDisk string
	newSession  func() *pdfwrap.Session
}

// renderRequest is the JSON body of /render and /download.
type renderRequest struct {
	HTML        string            `json:"html" binding:"required"`
	Encoding    string            `json:"encoding"`
	Filename    string            `json:"filename"`
	Header      string            `json:"header"`
	Footer      string            `json:"footer"`
	Position    string            `json:"position" binding:"omitempty,oneof=left center right"`
	Size        float64           `json:"size" binding:"gte=0"`
	Paper       string            `json:"paper"`
	Orientation string            `json:"orientation" binding:"omitempty,oneof=portrait landscape"`
	Info        map[string]string `json:"info"`
	Disk        string            `json:"disk"`
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), gin.Recovery(), requestLogger(s.log))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/render", s.handle(func(ctx context.Context, sess *pdfwrap.Session, c *gin.Context, req renderRequest) error {
		return sess.Stream(ctx, c.Writer, req.Filename)
	}))
	r.POST("/download", s.handle(func(ctx context.Context, sess *pdfwrap.Session, c *gin.Context, req renderRequest) error {
		return sess.Download(ctx, c.Writer, req.Filename)
	}))
	r.POST("/save", s.handle(func(ctx context.Context, sess *pdfwrap.Session, c *gin.Context, req renderRequest) error {
		if err := checkSavePath(req.Filename); err != nil {
			return err
		}
		disk := req.Disk
		if disk == "" {
			disk = s.defaultDisk
		}
		if disk == "" {
			return errBadRequest("disk is required")
		}
		if err := sess.Save(ctx, req.Filename, disk); err != nil {
			return err
		}
		c.JSON(http.StatusCreated, gin.H{"path": req.Filename, "disk": disk})
		return nil
	}))
	return r
}

type deliverFunc func(ctx context.Context, sess *pdfwrap.Session, c *gin.Context, req renderRequest) error

func (s *server) handle(deliver deliverFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req renderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		sess := s.newSession()
		if err := prepare(ctx, sess, req); err != nil {
			s.fail(c, err)
			return
		}
		if err := deliver(ctx, sess, c, req); err != nil {
			s.fail(c, err)
		}
	}
}

func prepare(ctx context.Context, sess *pdfwrap.Session, req renderRequest) error {
	if req.Paper != "" {
		size, ok := pdfwrap.PaperByName(req.Paper)
		if !ok {
			return errBadRequest("unknown paper " + req.Paper)
		}
		orientation, err := pdfwrap.ParseOrientation(req.Orientation)
		if err != nil {
			return errBadRequest(err.Error())
		}
		sess.SetPaper(size, orientation)
	} else if req.Orientation != "" {
		orientation, err := pdfwrap.ParseOrientation(req.Orientation)
		if err != nil {
			return errBadRequest(err.Error())
		}
		sess.SetOption(func(o *pdfwrap.Options) { o.Orientation = orientation })
	}

	if err := sess.LoadHTML(req.HTML, req.Encoding); err != nil {
		return err
	}
	if len(req.Info) > 0 {
		if err := sess.SetInfo(req.Info); err != nil {
			return err
		}
	}
	if req.Header != "" {
		if err := sess.SetHeader(ctx, req.Header, req.Position, req.Size); err != nil {
			return err
		}
	}
	if req.Footer != "" {
		if err := sess.SetFooter(ctx, req.Footer, req.Position, req.Size); err != nil {
			return err
		}
	}
	return nil
}

// checkSavePath accepts only relative names that stay inside the disk.
func checkSavePath(name string) error {
	if name == "" {
		return errBadRequest("filename is required")
	}
	slashed := filepath.ToSlash(name)
	if filepath.IsAbs(name) || strings.HasPrefix(slashed, "/") {
		return errBadRequest("filename must be relative")
	}
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return errBadRequest("filename must not contain ..")
		}
	}
	if c := path.Clean(slashed); c == "." {
		return errBadRequest("invalid filename " + name)
	}
	return nil
}

type errBadRequest string

func (e errBadRequest) Error() string { return string(e) }

// fail reports err unless a response was already started.
func (s *server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	if c.Writer.Written() {
		return
	}

	var bad errBadRequest
	var warnings *pdfwrap.RenderWarningError
	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error()}
	switch {
	case errors.As(err, &bad), errors.Is(err, pdfwrap.ErrParse), errors.Is(err, storage.ErrUnknownDisk):
		status = http.StatusBadRequest
	case errors.As(err, &warnings):
		status = http.StatusUnprocessableEntity
		body = gin.H{"error": "render produced warnings", "warnings": warnings.Warnings}
	case errors.Is(err, pdfwrap.ErrUnsupportedOperation), errors.Is(err, pdfwrap.ErrEncryptionUnsupported):
		status = http.StatusNotImplemented
	}
	c.JSON(status, body)
}

const requestIDHeader = "X-Request-ID"

// requestID propagates the caller's request ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("body_size", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", strings.Join(c.Errors.Errors(), "; ")))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
