// Package app wires configuration into a runnable dispatcher process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"medreminder/internal/claim"
	"medreminder/internal/clock"
	"medreminder/internal/config"
	"medreminder/internal/database"
	fb "medreminder/internal/firebase"
	"medreminder/internal/handler"
	"medreminder/internal/push"
	"medreminder/internal/redis"
	"medreminder/internal/repository"
	"medreminder/internal/service"
	transporthttp "medreminder/internal/transport/http"
	"medreminder/internal/worker"
)

const shutdownTimeout = 30 * time.Second

// App owns every long-lived resource of the process.
type App struct {
	cfg   *config.Config
	log   *zap.Logger
	clock *clock.Resolver

	Orchestrator *service.Orchestrator

	fbApp     *firebase.App
	db        *sqlx.DB
	firestore *firestore.Client
	redis     *redis.Client
}

// New connects to the configured backends and builds the orchestrator.
// Resources opened before a failure are released.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.clock, err = clock.NewResolver(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	if cfg.NeedsFirebase() {
		if _, err = a.firebaseApp(ctx); err != nil {
			return nil, err
		}
	}

	stores, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	transport, err := a.openTransport(ctx)
	if err != nil {
		return nil, err
	}

	claimer, err := a.openClaimer(ctx)
	if err != nil {
		return nil, err
	}

	dispatcherCfg := service.DispatcherConfig{
		Templates: service.Templates{
			Title: cfg.NotificationTitle,
			Body:  cfg.NotificationBody,
			Icon:  cfg.NotificationIcon,
		},
		EndpointConcurrency: cfg.EndpointConcurrency,
	}
	if cfg.PruneUnregistered {
		dispatcherCfg.Pruner = stores.pruner
	}

	a.Orchestrator = service.NewOrchestrator(service.OrchestratorDeps{
		Clock:               a.clock,
		Locator:             service.NewDueScheduleLocator(stores.schedules),
		Adherence:           service.NewAdherenceFilter(stores.intakes),
		Claimer:             claimer,
		Recipients:          service.NewRecipientResolver(log, stores.sources...),
		Dispatcher:          service.NewDispatcher(transport, dispatcherCfg, log),
		ScheduleConcurrency: cfg.ScheduleConcurrency,
		Logger:              log,
	})
	return a, nil
}

type stores struct {
	schedules repository.ScheduleRepository
	intakes   repository.IntakeRepository
	sources   []repository.EndpointSource
	pruner    repository.EndpointPruner
}

func (a *App) openStores(ctx context.Context) (*stores, error) {
	switch a.cfg.StoreDriver {
	case config.StoreDriverFirestore:
		fbApp, err := a.firebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		a.firestore, err = fbApp.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}

		store := repository.NewFirestoreStore(a.firestore, repository.FirestoreCollections{
			Schedules: a.cfg.SchedulesCollection,
			History:   a.cfg.HistoryCollection,
			Users:     a.cfg.UsersCollection,
		}, a.log)
		return &stores{
			schedules: store,
			intakes:   store,
			sources:   []repository.EndpointSource{store},
			pruner:    store,
		}, nil

	default:
		db, err := database.Connect(a.cfg, a.log)
		if err != nil {
			return nil, err
		}
		a.db = db

		tokens := repository.NewDeviceTokenRepository(db)
		legacy := repository.NewLegacyTokenRepository(db)
		return &stores{
			schedules: repository.NewScheduleRepository(db),
			intakes:   repository.NewIntakeRepository(db),
			sources:   []repository.EndpointSource{legacy, tokens},
			pruner:    repository.NewPostgresPruner(tokens, legacy),
		}, nil
	}
}

func (a *App) openTransport(ctx context.Context) (push.Transport, error) {
	if a.cfg.PushProvider == config.PushProviderExpo {
		return push.NewExpo(), nil
	}

	fbApp, err := a.firebaseApp(ctx)
	if err != nil {
		return nil, err
	}
	fcm, err := push.NewFCM(ctx, fbApp)
	if err != nil {
		return nil, err
	}

	if a.cfg.PushProvider == config.PushProviderAuto {
		return &push.Router{FCM: fcm, Expo: push.NewExpo()}, nil
	}
	return &push.Router{FCM: fcm}, nil
}

func (a *App) openClaimer(ctx context.Context) (claim.Claimer, error) {
	if a.cfg.RedisURL == "" {
		return claim.Nop{}, nil
	}

	rdb, err := redis.NewClient(a.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.redis = rdb

	if err := rdb.Ping(ctx); err != nil {
		// claims fail open, so an unreachable redis only weakens dedupe
		a.log.Warn("redis unreachable at startup, claims will fail open", zap.Error(err))
	}
	return claim.NewRedis(rdb.Client, a.cfg.ClaimTTL, a.log), nil
}

// firebaseApp initialises the firebase app once and shares it between the
// firestore store and the FCM transport.
func (a *App) firebaseApp(ctx context.Context) (*firebase.App, error) {
	if a.fbApp != nil {
		return a.fbApp, nil
	}
	fbApp, err := fb.NewApp(ctx, fb.Credentials{
		ProjectID:   a.cfg.FirebaseProjectID,
		ClientEmail: a.cfg.FirebaseClientEmail,
		PrivateKey:  a.cfg.FirebasePrivateKey,
		File:        a.cfg.CredentialsFile,
	})
	if err != nil {
		return nil, err
	}
	a.fbApp = fbApp
	return fbApp, nil
}

// Run executes the configured mode until ctx is cancelled (cron) or the
// single cycle finishes (once).
func (a *App) Run(ctx context.Context) error {
	if a.cfg.RunMode == config.RunModeOnce {
		// a signal arriving mid-cycle lets the in-flight deliveries finish
		_, err := a.Orchestrator.RunCycle(context.WithoutCancel(ctx), time.Now())
		return err
	}

	manager := worker.NewManager(a.Orchestrator, worker.ManagerConfig{
		Spec:     a.cfg.CronSpec,
		Location: a.clock.Location(),
	}, a.log)
	if err := manager.Start(ctx); err != nil {
		return err
	}

	var dispatchHandler *handler.DispatchHandler
	if a.cfg.TriggerJWTSecret != "" {
		dispatchHandler = handler.NewDispatchHandler(a.Orchestrator, a.log)
	}
	srv := &http.Server{
		Addr: a.cfg.HTTPAddr,
		Handler: transporthttp.NewRouter(transporthttp.RouterConfig{
			DispatchHandler: dispatchHandler,
			JWTSecret:       a.cfg.TriggerJWTSecret,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err, ok := <-srvErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http shutdown", zap.Error(err))
	}
	manager.Stop(shutdownCtx)
	return runErr
}

// Close releases backend connections.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("close database", zap.Error(err))
		}
	}
	if a.firestore != nil {
		if err := a.firestore.Close(); err != nil {
			a.log.Warn("close firestore", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("close redis", zap.Error(err))
		}
	}
}
