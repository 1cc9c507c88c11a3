package telegram

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/reviewbot/core/config"
	"github.com/m3rciful/reviewbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// NewBot builds a telebot instance with the poller selected by cfg.
// Callers that download files need the bot before RunTelegram starts it.
func NewBot(cfg *coreconfig.Config) (*tele.Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram: nil config provided")
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: BuildPoller(cfg.Telegram, cfg.Webhook),
		Client: BuildHTTPClient(),
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, nil
}

// BuildPoller returns a webhook listener in webhook mode and a long poller
// otherwise. tc.RunMode is expected to be normalized by config loading.
func BuildPoller(tc coreconfig.TelegramConfig, wh coreconfig.WebhookConfig) tele.Poller {
	if tc.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   net.JoinHostPort(wh.Listen, strconv.Itoa(wh.Port)),
			Endpoint: &tele.WebhookEndpoint{PublicURL: wh.URL},
		}
	}
	timeout := defaultLongPollTimeout
	if tc.LongPollTimeoutSeconds > 0 {
		timeout = time.Duration(tc.LongPollTimeoutSeconds) * time.Second
	}
	return &tele.LongPoller{Timeout: timeout}
}

// NewFileBot builds an offline bot for getFile and file downloads. Its
// client makes a single attempt per call so fetch failures surface at once.
func NewFileBot(token, apiURL string) (*tele.Bot, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:   token,
		URL:     apiURL,
		Client:  BuildFileClient(),
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: file bot initialization failed: %w", err)
	}
	return bot, nil
}

// BuildHTTPClient returns the client used for Bot API calls. Requests that
// failed while dialing are retried.
func BuildHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   60 * time.Second,
		Transport: &retryTransport{next: baseTransport(), retries: 3, backoff: 2 * time.Second},
	}
}

// BuildFileClient returns a client without retries.
func BuildFileClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second, Transport: baseTransport()}
}

func baseTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

type retryTransport struct {
	next    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	// A body that cannot be rewound cannot be sent twice.
	replayable := req.Body == nil || req.GetBody != nil
	for attempt := 1; err != nil && replayable && attempt <= t.retries && netutil.Retryable(err); attempt++ {
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(t.backoff * time.Duration(attempt)):
		}
		retry := req.Clone(req.Context())
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			retry.Body = body
		}
		resp, err = t.next.RoundTrip(retry)
	}
	return resp, err
}
