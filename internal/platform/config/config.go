package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/lueurxax/telegram-forwarder/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/core/links/tglink"
)

// TelegramConfig holds Telegram MTProto API settings.
type TelegramConfig struct {
	APIID       int    `env:"TG_API_ID,required"`
	APIHash     string `env:"TG_API_HASH,required"`
	Phone       string `env:"TG_PHONE"`
	Password2FA string `env:"TG_2FA_PASSWORD"`
	SessionPath string `env:"TG_SESSION_PATH" envDefault:"./tg.session"`
	// HistoryBatchSize is the page size of history requests.
	HistoryBatchSize int `env:"HISTORY_BATCH_SIZE" envDefault:"100"`
}

// SelectionConfig holds what to forward and where.
type SelectionConfig struct {
	SourceLink       string `env:"SOURCE_LINK,required"`
	TargetLink       string `env:"TARGET_LINK,required"`
	ForwardMode      string `env:"FORWARD_MODE" envDefault:"all"`
	LastNMessages    int    `env:"LAST_N_MESSAGES" envDefault:"100"`
	LastNAlbumPolicy string `env:"LAST_N_ALBUM_POLICY" envDefault:"whole"`
	DateFrom         string `env:"DATE_FROM"`
	DateTo           string `env:"DATE_TO"`
	// AlbumScanRadius bounds the sibling search around a post_id album member.
	AlbumScanRadius int `env:"ALBUM_SCAN_RADIUS" envDefault:"20"`
}

// FilesConfig holds local file handling settings.
type FilesConfig struct {
	DownloadDir          string `env:"DOWNLOAD_DIR" envDefault:"./downloads"`
	DeleteFilesAfterSend bool   `env:"DELETE_FILES_AFTER_SEND" envDefault:"true"`
	StatePath            string `env:"STATE_PATH" envDefault:"runtime/state.json"`
}

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	Telegram  TelegramConfig
	Selection SelectionConfig
	Files     FilesConfig

	// SendDelay is the minimum pause before every post.
	SendDelay   time.Duration `env:"SEND_DELAY" envDefault:"200ms"`
	MetricsPort int           `env:"METRICS_PORT" envDefault:"0"`
}

// Plan is a validated configuration ready for a run.
type Plan struct {
	Selection domain.Selection
	Source    tglink.Link
	Target    tglink.Link
}

// Load reads the optional dotenv files (".env" when none given) and the environment.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...) //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}

// Validate checks links, mode and mode parameters. Every failure wraps
// ErrConfiguration and carries a message meant for the operator.
func (c *Config) Validate() (*Plan, error) {
	source, err := parseLink("SOURCE_LINK", c.Selection.SourceLink)
	if err != nil {
		return nil, err
	}

	target, err := parseLink("TARGET_LINK", c.Selection.TargetLink)
	if err != nil {
		return nil, err
	}

	mode, ok := domain.ParseMode(c.Selection.ForwardMode)
	if !ok {
		names := make([]string, len(domain.Modes))
		for i, m := range domain.Modes {
			names[i] = string(m)
		}

		return nil, fmt.Errorf("%w: invalid FORWARD_MODE %q, allowed values: %s",
			apperrors.ErrConfiguration, c.Selection.ForwardMode, strings.Join(names, ", "))
	}

	sel := domain.Selection{Mode: mode, TopicID: source.TopicID}

	switch mode {
	case domain.ModePostID:
		if source.MessageID <= 0 {
			return nil, fmt.Errorf("%w: FORWARD_MODE=post_id requires SOURCE_LINK to point at a specific message:\n  %s\n  %s\n  %s",
				apperrors.ErrConfiguration, tglink.Forms[1], tglink.Forms[3], tglink.Forms[4])
		}

		sel.PostID = source.MessageID
		sel.TopicID = 0
	case domain.ModeLastN:
		if c.Selection.LastNMessages <= 0 {
			return nil, fmt.Errorf("%w: LAST_N_MESSAGES must be > 0 when FORWARD_MODE=last_n", apperrors.ErrConfiguration)
		}

		policy := domain.AlbumPolicy(strings.ToLower(strings.TrimSpace(c.Selection.LastNAlbumPolicy)))
		if policy != domain.AlbumWhole && policy != domain.AlbumStrict {
			return nil, fmt.Errorf("%w: LAST_N_ALBUM_POLICY must be %q or %q, got %q",
				apperrors.ErrConfiguration, domain.AlbumWhole, domain.AlbumStrict, c.Selection.LastNAlbumPolicy)
		}

		sel.LastN = c.Selection.LastNMessages
		sel.AlbumPolicy = policy
	case domain.ModeDateRange:
		if err := c.applyDateRange(&sel); err != nil {
			return nil, err
		}
	case domain.ModeAll:
	}

	return &Plan{Selection: sel, Source: source, Target: target}, nil
}

func (c *Config) applyDateRange(sel *domain.Selection) error {
	if c.Selection.DateFrom == "" && c.Selection.DateTo == "" {
		return fmt.Errorf("%w: FORWARD_MODE=date_range requires DATE_FROM and/or DATE_TO", apperrors.ErrConfiguration)
	}

	var err error

	if sel.From, err = parseDate("DATE_FROM", c.Selection.DateFrom); err != nil {
		return err
	}

	if sel.To, err = parseDate("DATE_TO", c.Selection.DateTo); err != nil {
		return err
	}

	if sel.From != nil && sel.To != nil && sel.From.After(*sel.To) {
		return fmt.Errorf("%w: invalid date range, DATE_FROM is after DATE_TO", apperrors.ErrConfiguration)
	}

	return nil
}

func parseLink(name, raw string) (tglink.Link, error) {
	link, ok := tglink.Parse(raw)
	if !ok {
		return tglink.Link{}, fmt.Errorf("%w: invalid %s %q, allowed Telegram links:\n  %s",
			apperrors.ErrConfiguration, name, raw, strings.Join(tglink.Forms, "\n  "))
	}

	return link, nil
}

func parseDate(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	t, err := time.ParseInLocation(domain.DateLayout, raw, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q, expected format YYYY-MM-DD HH:MM (UTC)", apperrors.ErrConfiguration, name, raw)
	}

	return &t, nil
}
