package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/snakada/ecbridge/internal/config"
)

// Notifier sends notifications to Slack
type Notifier struct {
	config     *config.SlackConfig
	httpClient *http.Client
}

// SlackMessage represents a Slack webhook message
type SlackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents a Slack message attachment
type SlackAttachment struct {
	Color      string       `json:"color,omitempty"`
	Title      string       `json:"title,omitempty"`
	Text       string       `json:"text,omitempty"`
	Fields     []SlackField `json:"fields,omitempty"`
	Footer     string       `json:"footer,omitempty"`
	FooterIcon string       `json:"footer_icon,omitempty"`
	Timestamp  int64        `json:"ts,omitempty"`
}

// SlackField represents a field in a Slack attachment
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// New creates a new Slack notifier
func New(cfg *config.SlackConfig) *Notifier {
	if cfg == nil {
		cfg = &config.SlackConfig{Enabled: false}
	}
	return &Notifier{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IsEnabled returns true if notifications are enabled
func (n *Notifier) IsEnabled() bool {
	return n.config != nil && n.config.Enabled && n.config.WebhookURL != ""
}

// MigrationStarted sends notification when a migration run starts
func (n *Notifier) MigrationStarted(runID, sourceShop, targetShop string, dryRun bool) error {
	if !n.IsEnabled() {
		return nil
	}

	mode := "live"
	if dryRun {
		mode = "dry run"
	}
	msg := SlackMessage{
		Channel:   n.config.Channel,
		Username:  n.getUsername(),
		IconEmoji: ":rocket:",
		Attachments: []SlackAttachment{
			{
				Color: "#36a64f", // green
				Title: "Migration Started",
				Fields: []SlackField{
					{Title: "Run ID", Value: runID, Short: true},
					{Title: "Mode", Value: mode, Short: true},
					{Title: "Source", Value: sourceShop, Short: true},
					{Title: "Destination", Value: targetShop, Short: true},
				},
				Footer:    "ecbridge",
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return n.send(msg)
}

// MigrationCompleted sends notification when a run finishes cleanly
func (n *Notifier) MigrationCompleted(runID string, startTime time.Time, duration time.Duration, counts []EntityCount) error {
	if !n.IsEnabled() {
		return nil
	}

	msg := SlackMessage{
		Channel:   n.config.Channel,
		Username:  n.getUsername(),
		IconEmoji: ":white_check_mark:",
		Text:      fmt.Sprintf("Migration run completed. %s.", summarizeCounts(counts)),
		Attachments: []SlackAttachment{
			{
				Color:     "#36a64f", // green
				Fields:    runFields(runID, startTime, duration, counts),
				Footer:    "ecbridge",
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return n.send(msg)
}

// MigrationCompletedWithErrors sends notification when a run finishes but
// some records failed
func (n *Notifier) MigrationCompletedWithErrors(runID string, startTime time.Time, duration time.Duration, counts []EntityCount) error {
	if !n.IsEnabled() {
		return nil
	}

	failed := 0
	for _, c := range counts {
		failed += c.Failed
	}
	msg := SlackMessage{
		Channel:   n.config.Channel,
		Username:  n.getUsername(),
		IconEmoji: ":warning:",
		Text:      fmt.Sprintf("Migration run completed with %d failed records. %s.", failed, summarizeCounts(counts)),
		Attachments: []SlackAttachment{
			{
				Color:     "#ffc107", // yellow
				Fields:    runFields(runID, startTime, duration, counts),
				Footer:    "ecbridge",
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return n.send(msg)
}

// MigrationFailed sends notification when a run aborts
func (n *Notifier) MigrationFailed(runID string, err error, duration time.Duration) error {
	if !n.IsEnabled() {
		return nil
	}

	errMsg := "Unknown error"
	if err != nil {
		errMsg = err.Error()
		if len(errMsg) > 500 {
			errMsg = errMsg[:500] + "..."
		}
	}

	msg := SlackMessage{
		Channel:   n.config.Channel,
		Username:  n.getUsername(),
		IconEmoji: ":x:",
		Attachments: []SlackAttachment{
			{
				Color: "#dc3545", // red
				Title: "Migration Failed",
				Fields: []SlackField{
					{Title: "Run ID", Value: runID, Short: true},
					{Title: "Duration", Value: duration.Round(time.Second).String(), Short: true},
					{Title: "Error", Value: errMsg, Short: false},
				},
				Footer:    "ecbridge",
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return n.send(msg)
}

func runFields(runID string, startTime time.Time, duration time.Duration, counts []EntityCount) []SlackField {
	fields := []SlackField{
		{Title: "Run ID", Value: runID, Short: true},
		{Title: "Started", Value: startTime.UTC().Format("2006-01-02 15:04:05 UTC"), Short: true},
		{Title: "Duration", Value: formatDuration(duration), Short: true},
	}
	for _, c := range counts {
		fields = append(fields, SlackField{
			Title: titleCase(c.Entity),
			Value: countLine(c),
			Short: true,
		})
	}
	return fields
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func countLine(c EntityCount) string {
	parts := []string{fmt.Sprintf("%d created", c.Created)}
	if c.Linked > 0 {
		parts = append(parts, fmt.Sprintf("%d linked", c.Linked))
	}
	if c.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", c.Skipped))
	}
	if c.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", c.Failed))
	}
	return strings.Join(parts, ", ")
}

func summarizeCounts(counts []EntityCount) string {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s: %s", c.Entity, countLine(c)))
	}
	return strings.Join(parts, "; ")
}

func (n *Notifier) send(msg SlackMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	resp, err := n.httpClient.Post(n.config.WebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sending to Slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Slack returned status %d", resp.StatusCode)
	}

	return nil
}

func (n *Notifier) getUsername() string {
	if n.config.Username != "" {
		return n.config.Username
	}
	return "ecbridge"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
