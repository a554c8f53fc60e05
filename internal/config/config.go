package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config carries all runtime settings for the agent. Every field is
// env-driven; only QUEUE_USER_ID is mandatory.
type Config struct {
	QueueBaseURL    string
	QueueUserID     string
	PollInterval    time.Duration
	InterPostDelay  time.Duration
	JitterMin       time.Duration
	JitterMax       time.Duration
	TabWarmup       time.Duration
	SelectorTimeout time.Duration
	PassTimeout     time.Duration
	ScheduleMode    ScheduleMode
	DailyPostLimit  int
	DBPath          string
	Port            string
	Headless        bool
	BrowserURL      string
	NotifyEnabled   bool
}

// ScheduleMode controls what happens to posts carrying a future
// scheduled time.
type ScheduleMode string

const (
	// ScheduleLocal leaves future posts pending until a poll observes
	// them as due, then submits immediately.
	ScheduleLocal ScheduleMode = "local"
	// ScheduleNative hands future posts to the platform's own
	// scheduling UI as soon as they are picked up.
	ScheduleNative ScheduleMode = "native"
)

func Load() (*Config, error) {
	userID := os.Getenv("QUEUE_USER_ID")
	if userID == "" {
		return nil, fmt.Errorf("QUEUE_USER_ID environment variable is required but not set")
	}

	baseURL := os.Getenv("QUEUE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000/api/v1"
		slog.Info("Defaulting queue base URL", "url", baseURL)
	}

	pollInterval, err := durationEnv("POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	interPostDelay, err := durationEnv("INTER_POST_DELAY", 10*time.Second)
	if err != nil {
		return nil, err
	}
	jitterMin, err := durationEnv("JITTER_MIN", 2*time.Second)
	if err != nil {
		return nil, err
	}
	jitterMax, err := durationEnv("JITTER_MAX", 6*time.Second)
	if err != nil {
		return nil, err
	}
	if jitterMax < jitterMin {
		return nil, fmt.Errorf("JITTER_MAX (%s) must not be below JITTER_MIN (%s)", jitterMax, jitterMin)
	}
	tabWarmup, err := durationEnv("TAB_WARMUP", 4*time.Second)
	if err != nil {
		return nil, err
	}
	selectorTimeout, err := durationEnv("SELECTOR_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	passTimeout, err := durationEnv("PASS_TIMEOUT", 4*time.Minute)
	if err != nil {
		return nil, err
	}

	mode := ScheduleMode(os.Getenv("SCHEDULE_MODE"))
	switch mode {
	case "":
		mode = ScheduleLocal
	case ScheduleLocal, ScheduleNative:
	default:
		return nil, fmt.Errorf("invalid SCHEDULE_MODE %q: must be %q or %q", mode, ScheduleLocal, ScheduleNative)
	}

	dailyLimit := 20
	if v := os.Getenv("DAILY_POST_LIMIT"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid DAILY_POST_LIMIT %q", v)
		}
		dailyLimit = parsed
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "postpilot.db"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8913"
		slog.Info("Defaulting to port", "port", port)
	}

	return &Config{
		QueueBaseURL:    baseURL,
		QueueUserID:     userID,
		PollInterval:    pollInterval,
		InterPostDelay:  interPostDelay,
		JitterMin:       jitterMin,
		JitterMax:       jitterMax,
		TabWarmup:       tabWarmup,
		SelectorTimeout: selectorTimeout,
		PassTimeout:     passTimeout,
		ScheduleMode:    mode,
		DailyPostLimit:  dailyLimit,
		DBPath:          dbPath,
		Port:            port,
		Headless:        boolEnv("HEADLESS", true),
		BrowserURL:      os.Getenv("BROWSER_URL"),
		NotifyEnabled:   boolEnv("NOTIFY_ENABLED", true),
	}, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, v)
	}
	return d, nil
}

func boolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Invalid boolean env value, using default", "key", key, "value", v, "default", def)
		return def
	}
	return parsed
}
