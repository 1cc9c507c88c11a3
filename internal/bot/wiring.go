package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/reviewbot/core/logger"
	coretelegram "github.com/m3rciful/reviewbot/core/telegram"
	"github.com/m3rciful/reviewbot/core/telegram/state"
	"github.com/m3rciful/reviewbot/internal/config"
	"github.com/m3rciful/reviewbot/internal/feedback"
	"github.com/m3rciful/reviewbot/internal/google"
	"github.com/m3rciful/reviewbot/internal/journal"
	"github.com/m3rciful/reviewbot/internal/objectstore/drive"
	"github.com/m3rciful/reviewbot/internal/objectstore/s3"
	"github.com/m3rciful/reviewbot/internal/photos"
	"github.com/m3rciful/reviewbot/internal/sheets"
)

func (a *App) buildSessionStore(ctx context.Context) (state.Store, error) {
	if a.cfg.Session.Backend != config.SessionRedis {
		return state.NewMemoryStore(), nil
	}
	rc := a.cfg.Session.Redis
	client := redis.NewClient(&redis.Options{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("bot: redis ping %s: %w", rc.Addr, err)
	}
	a.redis = client
	a.checks["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	logger.Info(ctx, "app", "session.store",
		slog.String("backend", config.SessionRedis),
		slog.String("addr", rc.Addr),
		slog.Duration("ttl", rc.TTL),
	)
	return state.NewRedisStore(client, state.RedisOptions{
		KeyPrefix: rc.KeyPrefix,
		TTL:       rc.TTL,
	}), nil
}

func (a *App) credentials() google.Credentials {
	return google.Credentials{
		File: a.cfg.Google.CredentialsFile,
		JSON: a.cfg.Google.CredentialsJSON,
	}
}

func (a *App) buildWriter(ctx context.Context) (feedback.Writer, error) {
	if a.cfg.Store.Backend == config.StorePostgres {
		if a.db == nil {
			return nil, fmt.Errorf("bot: %s store selected without a database handle", config.StorePostgres)
		}
		j := journal.New(a.db)
		a.checks["journal"] = j.Ping
		return j, nil
	}

	opts, err := a.credentials().ClientOptions(google.SheetsScopes...)
	if err != nil {
		return nil, fmt.Errorf("bot: sheets credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	sheet, err := sheets.Open(ctx, svc, a.cfg.Sheets.SpreadsheetID, a.cfg.Sheets.SheetName)
	if err != nil {
		return nil, err
	}
	sheet.SetWriteMode(a.cfg.Sheets.WriteMode)
	return feedback.Rows(sheet), nil
}

// buildPhotoResolver returns the resolver for the configured photo policy.
func (a *App) buildPhotoResolver(ctx context.Context) (feedback.PhotoResolver, error) {
	fileBot, err := coretelegram.NewFileBot(a.cfg.Telegram.Token, a.bot.URL)
	if err != nil {
		return nil, err
	}
	files := photos.NewTelegramFiles(fileBot)
	if a.cfg.Feedback.PhotoPolicy != config.PhotoPolicyDurable {
		return photos.NewDirectLinker(files, a.cfg.Telegram.Token, a.bot.URL), nil
	}

	store, err := a.buildObjectStore(ctx)
	if err != nil {
		return nil, err
	}
	return photos.NewDurableCopier(files, store, photos.CopierOptions{
		TempDir: a.cfg.Storage.TempDir,
	}), nil
}

func (a *App) buildObjectStore(ctx context.Context) (photos.ObjectStore, error) {
	switch a.cfg.Storage.Backend {
	case config.StorageS3:
		sc := a.cfg.Storage.S3
		return s3.New(ctx, s3.Options{
			Endpoint:      sc.Endpoint,
			Region:        sc.Region,
			Bucket:        sc.Bucket,
			AccessKey:     sc.AccessKey,
			SecretKey:     sc.SecretKey,
			PublicBaseURL: sc.PublicBaseURL,
			PublicACL:     sc.PublicACL,
			KeyPrefix:     sc.KeyPrefix,
		})
	default:
		opts, err := a.credentials().ClientOptions(google.DriveScopes...)
		if err != nil {
			return nil, fmt.Errorf("bot: drive credentials: %w", err)
		}
		return drive.New(ctx, a.cfg.Storage.Drive.FolderID, opts...)
	}
}
