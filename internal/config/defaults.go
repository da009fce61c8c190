package config

const (
	defaultSharedDir               = "~/manifestboard"
	defaultScheduleFileName        = "manifest_config.json"
	defaultAcknowledgmentsFileName = "acknowledgments.json"
	defaultMuteFileName            = "mute_state.json"
	defaultStateDir                = "~/.local/share/manifestboard"
	defaultAPIBind                 = "127.0.0.1:7590"
	defaultLeadMinutes             = 2
	defaultGraceMinutes            = 30
	defaultQuietAckPollMS          = 2000
	defaultQuietRefreshMS          = 10000
	defaultAlertingAckPollMS       = 500
	defaultAlertingRefreshMS       = 2000
	defaultMutePollMS              = 1000
	defaultAnnouncementCooldown    = 20
	defaultSpeechTimeoutSeconds    = 30
	defaultNotifyRequestTimeout    = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLogRetentionDays        = 30
	defaultStationUser             = "operator"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			APIBind:  defaultAPIBind,
		},
		Windows: Windows{
			LeadMinutes:  defaultLeadMinutes,
			GraceMinutes: defaultGraceMinutes,
		},
		Sync: Sync{
			QuietAckPollMS:    defaultQuietAckPollMS,
			QuietRefreshMS:    defaultQuietRefreshMS,
			AlertingAckPollMS: defaultAlertingAckPollMS,
			AlertingRefreshMS: defaultAlertingRefreshMS,
			MutePollMS:        defaultMutePollMS,
			LogCollisions:     true,
		},
		Announcements: Announcements{
			Enabled:              true,
			CooldownSeconds:      defaultAnnouncementCooldown,
			SpeechTimeoutSeconds: defaultSpeechTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Announcements:  true,
			MuteChanges:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
