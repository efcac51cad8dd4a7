package notify

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds notification delivery configuration.
type Config struct {
	Channels       map[string]ChannelConfig `yaml:"channels"`
	TimeoutSeconds int                      `yaml:"timeout_seconds"`
}

// ChannelConfig holds one channel's gateway settings.
type ChannelConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// LoadConfig loads notification config from yaml or env. ALERT_NOTIFY_CONFIG
// points at the yaml file; without it, per-channel URLs come from
// ALERT_EMAIL_WEBHOOK_URL / ALERT_SMS_WEBHOOK_URL / ALERT_PUSH_WEBHOOK_URL.
func LoadConfig() (Config, error) {
	cfg := Config{
		Channels: map[string]ChannelConfig{
			"email": {WebhookURL: os.Getenv("ALERT_EMAIL_WEBHOOK_URL")},
			"sms":   {WebhookURL: os.Getenv("ALERT_SMS_WEBHOOK_URL")},
			"push":  {WebhookURL: os.Getenv("ALERT_PUSH_WEBHOOK_URL")},
		},
		TimeoutSeconds: 10,
	}

	if path := os.Getenv("ALERT_NOTIFY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Timeout returns the configured HTTP timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ChannelURLs flattens the config to channel -> URL.
func (c Config) ChannelURLs() map[string]string {
	urls := make(map[string]string, len(c.Channels))
	for channel, channelCfg := range c.Channels {
		if channelCfg.WebhookURL != "" {
			urls[channel] = channelCfg.WebhookURL
		}
	}
	return urls
}
