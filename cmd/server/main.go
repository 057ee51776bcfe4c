package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"presence/internal/attendance"
	"presence/internal/audit"
	"presence/internal/barometer"
	"presence/internal/code"
	"presence/internal/face"
	"presence/internal/lecture"
	"presence/internal/platform/config"
	"presence/internal/platform/httpserver"
	"presence/internal/platform/logger"
	redisplatform "presence/internal/platform/redis"
	"presence/internal/recording"
	"presence/internal/room"
	httptransport "presence/internal/transport/http"
	"presence/internal/verification"
	"presence/internal/verification/metrics"
)

// main wires dependencies and owns the process lifecycle. Redis, Postgres
// and Kafka are all optional: without them the gateway runs single-instance
// on in-memory stores, which is enough for development and small pilots.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("presence gateway exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
	}

	var (
		sessions     verification.Store
		recordings   recording.Store
		calibrations barometer.CalibrationStore
		registry     code.Registry
	)
	if rdb != nil {
		sessions = verification.NewRedisStore(rdb.Client)
		recordings = recording.NewRedisStore(rdb.Client)
		calibrations = barometer.NewRedisCalibrationStore(rdb.Client)
		registry = code.NewRedisRegistry(rdb.Client)
	} else {
		sessions = verification.NewInMemoryStore()
		recordings = recording.NewInMemoryStore()
		calibrations = barometer.NewInMemoryCalibrationStore()
		registry = code.NewInMemoryRegistry()
	}

	var (
		rooms       room.Store
		attendances attendance.Store
	)
	if db != nil {
		rooms = room.NewPostgresStore(db)
		attendances = attendance.NewPostgresStore(db)
	} else {
		rooms = room.NewInMemoryStore()
		attendances = attendance.NewInMemoryStore()
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaClient.Close()
		if err := attendance.EnsureTopic(ctx, kafkaClient, cfg.Kafka.Topic); err != nil {
			return err
		}
		publisher := attendance.NewPublisher(kafkaClient, cfg.Kafka.Topic, log)
		attendances = attendance.NewFanout(attendances, publisher, log)
	}

	inbox := make(chan audit.Event, 256)
	auditor := audit.NewPublisher(inbox, log)
	auditWorker := audit.NewWorker(audit.NewInMemoryStore(), inbox, log)

	processor := barometer.NewProcessor(barometer.WithCalibrationValidity(cfg.CalibrationValidity))
	codes := code.NewService([]byte(cfg.CodeSigningKey), cfg.CodeIssuer)
	issuer := code.NewIssuer(codes, registry, auditor, log)
	faces := face.NewGate(face.NewInMemoryRegistrationStore(), log)
	lectures := lecture.NewInMemoryDirectory()

	checkin := verification.NewService(verification.Deps{
		Sessions:    sessions,
		Lectures:    lectures,
		Rooms:       rooms,
		Processor:   processor,
		Codes:       codes,
		IssuedCodes: registry,
		Faces:       faces,
		Attendance:  attendances,
		Audit:       auditor,
		Metrics:     metrics.New(),
		Log:         log,
	})
	recorder := recording.NewService(recordings, rooms, processor, log, recording.WithAudit(auditor))
	calibrator := barometer.NewCalibrationService(processor, calibrations, log)

	router := httptransport.NewRouter(
		httptransport.NewCheckinHandler(checkin, log),
		httptransport.NewRecordingHandler(recorder, log),
		httptransport.NewCalibrationHandler(calibrator, log),
		httptransport.NewCodeHandler(issuer, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditWorker.Run(ctx)
	})

	// The Redis store reclaims expired sessions through key TTLs; the
	// in-memory store needs a janitor.
	if sweeper, ok := sessions.(verification.Sweeper); ok {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case now := <-ticker.C:
					if swept := sweeper.SweepExpired(ctx, now); swept > 0 {
						log.Debug("swept expired verification sessions", slog.Int("count", swept))
					}
				}
			}
		})
	}

	g.Go(func() error {
		log.Info("presence gateway listening", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("presence gateway stopped")
	return nil
}
