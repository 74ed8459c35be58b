package storage

import (
	"fmt"
	"strconv"
	"time"

	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/models"
)

// EncodeSettings flattens settings into the key/value rows of the settings table.
func EncodeSettings(s models.Settings) map[string]string {
	return map[string]string{
		constants.SettingSnoozeDelay:          s.SnoozeDelay.String(),
		constants.SettingMaxSnoozes:           strconv.Itoa(s.MaxSnoozes),
		constants.SettingAlarmCeiling:         s.AlarmCeiling.String(),
		constants.SettingTestAlarmCeiling:     s.TestAlarmCeiling.String(),
		constants.SettingWatchdogInterval:     s.WatchdogInterval.String(),
		constants.SettingWatchdogTimeout:      s.WatchdogTimeout.String(),
		constants.SettingSoundURI:             s.SoundURI,
		constants.SettingResyncInterval:       s.ResyncInterval.String(),
		constants.SettingNotificationsEnabled: strconv.FormatBool(s.NotificationsEnabled),
		constants.SettingTimezone:             s.Timezone,
	}
}

// DecodeSettings rebuilds settings from key/value rows. Missing keys keep
// their defaults so older databases pick up new settings.
func DecodeSettings(rows map[string]string) (models.Settings, error) {
	s := models.DefaultSettings()
	for key, value := range rows {
		var err error
		switch key {
		case constants.SettingSnoozeDelay:
			s.SnoozeDelay, err = time.ParseDuration(value)
		case constants.SettingMaxSnoozes:
			s.MaxSnoozes, err = strconv.Atoi(value)
		case constants.SettingAlarmCeiling:
			s.AlarmCeiling, err = time.ParseDuration(value)
		case constants.SettingTestAlarmCeiling:
			s.TestAlarmCeiling, err = time.ParseDuration(value)
		case constants.SettingWatchdogInterval:
			s.WatchdogInterval, err = time.ParseDuration(value)
		case constants.SettingWatchdogTimeout:
			s.WatchdogTimeout, err = time.ParseDuration(value)
		case constants.SettingSoundURI:
			s.SoundURI = value
		case constants.SettingResyncInterval:
			s.ResyncInterval, err = time.ParseDuration(value)
		case constants.SettingNotificationsEnabled:
			s.NotificationsEnabled, err = strconv.ParseBool(value)
		case constants.SettingTimezone:
			s.Timezone = value
		}
		if err != nil {
			return models.Settings{}, fmt.Errorf("parsing %s: %w", key, err)
		}
	}
	return s, nil
}
