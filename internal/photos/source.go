// Package photos resolves inbound Telegram photos into persistent references.
package photos

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"
)

// FileSource looks up and downloads Telegram files.
type FileSource interface {
	// FilePath returns the file_path the Bot API assigned to fileID.
	FilePath(ctx context.Context, fileID string) (string, error)
	// Download writes the file content to dst.
	Download(ctx context.Context, fileID, dst string) error
}

// BotAPI is the subset of *tele.Bot used for file access.
type BotAPI interface {
	FileByID(fileID string) (tele.File, error)
	Download(file *tele.File, localFilename string) error
}

// TelegramFiles adapts a telebot bot to FileSource. telebot calls are not
// context aware; the bot's HTTP client timeout bounds them instead.
type TelegramFiles struct {
	bot BotAPI
}

// NewTelegramFiles wraps bot.
func NewTelegramFiles(bot BotAPI) *TelegramFiles {
	return &TelegramFiles{bot: bot}
}

// FilePath implements FileSource.
func (t *TelegramFiles) FilePath(ctx context.Context, fileID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := t.bot.FileByID(fileID)
	if err != nil {
		return "", fmt.Errorf("get file %s: %w", fileID, err)
	}
	if f.FilePath == "" {
		return "", fmt.Errorf("get file %s: empty file_path", fileID)
	}
	return f.FilePath, nil
}

// Download implements FileSource.
func (t *TelegramFiles) Download(ctx context.Context, fileID, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f := tele.File{FileID: fileID}
	if err := t.bot.Download(&f, dst); err != nil {
		return fmt.Errorf("download file %s: %w", fileID, err)
	}
	return nil
}
