package poster

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ewhitmore/postpilot/internal/models"
)

// SelectorConfig maps a platform to its selector lists. Platforms change
// their markup without notice, so every hook into a page is an ordered
// fallback list: the first selector that matches wins.
type SelectorConfig map[models.Platform]PlatformSelectors

// PlatformSelectors holds everything the web adapter needs to drive one
// platform's composer.
type PlatformSelectors struct {
	HomeURL      string            `json:"home_url"`
	Hosts        []string          `json:"hosts"`
	LoggedOut    []string          `json:"logged_out"`
	OpenComposer []string          `json:"open_composer"`
	Composer     []string          `json:"composer"`
	Submit       []string          `json:"submit"`
	Schedule     ScheduleSelectors `json:"schedule"`
}

// ScheduleSelectors drives the platform's native scheduling dialog.
// This path is best-effort: when the dialog has changed there is no
// fallback beyond these lists.
type ScheduleSelectors struct {
	Open    []string `json:"open"`
	Date    []string `json:"date"`
	Time    []string `json:"time"`
	Confirm []string `json:"confirm"`
}

// LoadSelectors loads the selector configuration from a JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selector config file: %w", err)
	}
	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON.
// This supports loading from embedded data via go:embed.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	var config SelectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	for platform, sel := range config {
		if sel.HomeURL == "" || len(sel.Hosts) == 0 || len(sel.Composer) == 0 || len(sel.Submit) == 0 {
			return nil, fmt.Errorf("selector config for %s is missing home_url, hosts, composer or submit", platform)
		}
	}
	return config, nil
}

// DefaultSelectors returns the hardcoded fallback configuration. The
// embedded selectors.json is the single source of truth; this exists so
// a corrupted config file cannot take the agent down.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		models.PlatformX: {
			HomeURL:   "https://x.com/home",
			Hosts:     []string{"x.com", "twitter.com"},
			LoggedOut: []string{`a[href="/login"][data-testid="loginButton"]`},
			Composer: []string{
				`div[data-testid="tweetTextarea_0"]`,
				`div[role="textbox"][contenteditable="true"]`,
			},
			Submit: []string{
				`button[data-testid="tweetButton"]`,
				`button[data-testid="tweetButtonInline"]`,
			},
			Schedule: ScheduleSelectors{
				Open:    []string{`button[data-testid="scheduleOption"]`},
				Date:    []string{`input[data-testid="scheduledDate"]`},
				Time:    []string{`input[data-testid="scheduledTime"]`},
				Confirm: []string{`button[data-testid="scheduledConfirmationPrimaryAction"]`},
			},
		},
		models.PlatformLinkedIn: {
			HomeURL:   "https://www.linkedin.com/feed/",
			Hosts:     []string{"linkedin.com"},
			LoggedOut: []string{`form.login__form`},
			OpenComposer: []string{
				`button.share-box-feed-entry__trigger`,
				`button[aria-label="Start a post"]`,
			},
			Composer: []string{
				`div.ql-editor[contenteditable="true"]`,
				`div[role="textbox"][contenteditable="true"]`,
			},
			Submit: []string{
				`button.share-actions__primary-action`,
				`button[aria-label="Post"]`,
			},
			Schedule: ScheduleSelectors{
				Open:    []string{`button[aria-label="Schedule post"]`},
				Date:    []string{`input[aria-label="Date"]`},
				Time:    []string{`input[aria-label="Time"]`},
				Confirm: []string{`button[aria-label="Next"]`},
			},
		},
	}
}
