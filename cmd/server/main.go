package main

import (
	"context"
	"flag"
	"log/syslog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/sirupsen/logrus"
	logrusys "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/spacegame/users"
	"github.com/spacegame/users/avatar"
	"github.com/spacegame/users/config"
	"github.com/spacegame/users/identity"
	"github.com/spacegame/users/persistent"
	"github.com/spacegame/users/profile"
	"github.com/spacegame/users/transport/rest"
	"github.com/tidwall/buntdb"
)

type closer func()

func openStore(ctx context.Context, cfg config.Config, bdb *buntdb.DB) (users.ProfileStore, closer) {
	if cfg.Store == config.StoreBuntdb {
		store := &persistent.KvProfileStore{Buntdb: bdb}
		if err := store.CreateIndexes(); err != nil {
			logrus.WithError(err).Fatalln("Could not create profile indexes.")
		}
		return store, func() {}
	}

	logrus.Infoln("Opening postgres database.")
	db, err := persistent.PgOpen(ctx, cfg.PostgresDsn, cfg.DbVerbose)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open postgres database.")
	}
	if err := persistent.CreateSchema(ctx, db); err != nil {
		logrus.WithError(err).Fatalln("Could not create database schema.")
	}
	return &persistent.PgProfileStore{DB: db}, func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warningln("Could not close postgres database.")
		}
	}
}

func listenAndServe(
	cfg config.Config,
	service *profile.Service,
	releaser rest.IdentityReleaser,
) func() error {
	userController := rest.UserController{Service: service, Identity: releaser}

	server := fiber.New()
	server.Use(rest.LogHandler())

	api := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: rest.ErrorHandler,
	})

	allowOrigins := cfg.AllowOrigins
	if cfg.Debug {
		allowOrigins = append(allowOrigins, "http://localhost:3000")
	}
	api.Use(cors.New(cors.Config{AllowOrigins: strings.Join(allowOrigins, ", ")}))

	requestAuthorizer := rest.RequestAuthorizer(identity.TokenVerifier{SecretKey: []byte(cfg.JwtSecret)})
	api.Get("/status", monitor.New())
	userController.InstallTo(requestAuthorizer, api)

	server.Mount("/api/", api)
	server.Use(rest.NotFoundHandler)

	go func() {
		if err := server.Listen(cfg.ListenAddr); err != nil {
			logrus.WithError(err).Fatalln("Could not listen.")
		}
	}()

	return func() error {
		return server.Shutdown()
	}
}

func setupLogger(verbose bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.Stamp,
		FullTimestamp:   true,
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	syslogHook, err := logrusys.NewSyslogHook("", "", syslog.LOG_USER, "spacegame_users")
	if err != nil {
		logrus.WithError(err).Warningln("Could not create syslog hook.")
		return
	}
	logrus.AddHook(syslogHook)
}

func awaitInterruption() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

func main() {
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		setupLogger(false)
		logrus.WithError(err).Fatalln("Invalid configuration.")
	}
	setupLogger(cfg.Debug)
	logrus.Infoln("Starting users service.")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.BuntdbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.BuntdbPath), 0o750); err != nil {
			logrus.WithError(err).Fatalln("Could not create buntdb directory.")
		}
	}
	bdb, err := buntdb.Open(cfg.BuntdbPath)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open buntdb.")
	}
	defer bdb.Close()

	store, closeStore := openStore(ctx, cfg, bdb)
	defer closeStore()

	relay, err := avatar.NewS3Relay(ctx, avatar.S3Config{
		Region:        cfg.S3.Region,
		Endpoint:      cfg.S3.Endpoint,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		Bucket:        cfg.S3.Bucket,
		PublicBaseUrl: cfg.S3.PublicBaseUrl,
		PresignTTL:    cfg.S3.PresignTTL,
		UsePathStyle:  cfg.S3.UsePathStyle,
	})
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create avatar relay.")
	}

	service := &profile.Service{
		Store:        store,
		Relay:        relay,
		AccessWindow: cfg.AccessWindow,
	}

	var releaser rest.IdentityReleaser
	if cfg.IdpBaseUrl != "" {
		queue := &persistent.CleanupQueue{Buntdb: bdb}
		if err := queue.CreateIndexes(); err != nil {
			logrus.WithError(err).Fatalln("Could not create cleanup indexes.")
		}
		cleaner := &identity.Cleaner{
			Provider: &identity.RestProvider{BaseUrl: cfg.IdpBaseUrl, AdminToken: cfg.IdpAdminToken},
			Queue:    queue,
		}
		releaser = cleaner
		go cleaner.Run(ctx, cfg.IdpCleanupInterval)
	} else {
		logrus.Warningln("IDP_BASE_URL not set, identity accounts of deleted users are kept.")
	}

	logrus.WithField("addr", cfg.ListenAddr).Infoln("Starting listening... To shut down use ^C")
	shutdown := listenAndServe(cfg, service, releaser)

	awaitInterruption()

	logrus.Infoln("Shutting down...")
	cancel()
	if err := shutdown(); err != nil {
		logrus.WithError(err).Warningln("Fiber shutdown failed.")
	}
}
