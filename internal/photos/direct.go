package photos

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/reviewbot/core/logger"
	"github.com/m3rciful/reviewbot/internal/feedback"
)

// DefaultAPIURL is the Telegram Bot API base.
const DefaultAPIURL = "https://api.telegram.org"

// DirectLinker points at the Telegram file endpoint. The link embeds the
// bot token and stays valid only while Telegram keeps the file.
type DirectLinker struct {
	files  FileSource
	token  string
	apiURL string
}

// NewDirectLinker builds a linker; apiURL defaults to DefaultAPIURL.
func NewDirectLinker(files FileSource, token, apiURL string) *DirectLinker {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &DirectLinker{files: files, token: token, apiURL: strings.TrimRight(apiURL, "/")}
}

// Resolve implements feedback.PhotoResolver.
func (d *DirectLinker) Resolve(ctx context.Context, userID int64, photo feedback.Photo) feedback.PhotoResult {
	path, err := d.files.FilePath(ctx, photo.FileID)
	if err != nil {
		return feedback.PhotoFailed(fmt.Errorf("%w: %w", feedback.ErrPhotoFetchFailed, err))
	}
	url := fmt.Sprintf("%s/file/bot%s/%s", d.apiURL, d.token, strings.TrimLeft(path, "/"))
	logger.Debug(ctx, "store.objects", "photo.linked",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("photo_policy", "direct"),
	)
	return feedback.PhotoOK(feedback.PhotoRef{URL: url})
}
