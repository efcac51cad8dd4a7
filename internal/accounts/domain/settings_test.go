package accounts

import "testing"

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings("user-1")
	if !settings.UsageAlertEnabled || !settings.LowBalanceAlertEnabled {
		t.Fatal("expected both alerts enabled by default")
	}
	if settings.UsageThresholdKWh.StringFixed(1) != "5.0" {
		t.Fatalf("usage threshold = %s", settings.UsageThresholdKWh)
	}
	if settings.LowBalanceThreshold.StringFixed(2) != "10.00" {
		t.Fatalf("low balance threshold = %s", settings.LowBalanceThreshold)
	}
}

func TestChannelPreferenceDefaults(t *testing.T) {
	settings := DefaultSettings("user-1")
	for _, category := range []string{CategoryUsage, CategoryBalance, CategoryPayment, CategorySystem} {
		if !settings.Channels.Allows(ChannelEmail, category) {
			t.Fatalf("expected email enabled for %s", category)
		}
		if settings.Channels.Allows(ChannelSMS, category) {
			t.Fatalf("expected sms disabled for %s", category)
		}
		if !settings.Channels.Allows(ChannelPush, category) {
			t.Fatalf("expected push enabled for %s", category)
		}
	}
}

func TestAllowsFallsBackForUnknownCategory(t *testing.T) {
	prefs := ChannelPreferences{}
	if !prefs.Allows(ChannelEmail, "made-up") {
		t.Fatal("expected unknown category to fall back to defaults")
	}
	if prefs.Allows("pigeon", CategoryUsage) {
		t.Fatal("expected unknown channel to be denied")
	}
}
