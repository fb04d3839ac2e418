package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ExportProfile holds the default inclusion flags and output locations for exports.
type ExportProfile struct {
	Device              bool   `mapstructure:"device"`
	Asset               bool   `mapstructure:"asset"`
	Event               bool   `mapstructure:"event"`
	Timing              bool   `mapstructure:"timing"`
	WaveformSensitivity bool   `mapstructure:"waveformSensitivity"`
	Custom              bool   `mapstructure:"custom"`
	Author              bool   `mapstructure:"author"`
	GUID                bool   `mapstructure:"guid"`
	OutputDir           string `mapstructure:"outputDir"`
	LogPath             string `mapstructure:"logPath"`
}

func DefaultExportProfile() ExportProfile {
	return ExportProfile{
		Device:              true,
		Asset:               true,
		Event:               true,
		Timing:              true,
		WaveformSensitivity: true,
		Custom:              true,
		Author:              true,
		GUID:                true,
		OutputDir:           ".",
		LogPath:             "pqds-export.log",
	}
}

type ExportProfileHolder struct {
	current atomic.Value // holds ExportProfile
}

// NewExportProfileHolder reads export.yml and reloads it on change. A missing
// file yields the defaults.
func NewExportProfileHolder(cfg Config, log *zap.Logger) (*ExportProfileHolder, error) {
	log = log.Named("config.export")
	v := viper.New()

	v.SetConfigName("export")
	v.SetConfigType("yml")
	if cfg.ExportProfileDir != "" {
		v.AddConfigPath(cfg.ExportProfileDir)
	}
	v.AddConfigPath("/etc/pqio")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PQIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultExportProfile()
	v.SetDefault("export.device", defaults.Device)
	v.SetDefault("export.asset", defaults.Asset)
	v.SetDefault("export.event", defaults.Event)
	v.SetDefault("export.timing", defaults.Timing)
	v.SetDefault("export.waveformSensitivity", defaults.WaveformSensitivity)
	v.SetDefault("export.custom", defaults.Custom)
	v.SetDefault("export.author", defaults.Author)
	v.SetDefault("export.guid", defaults.GUID)
	v.SetDefault("export.outputDir", defaults.OutputDir)
	v.SetDefault("export.logPath", defaults.LogPath)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	profile, err := decodeExportProfile(v)
	if err != nil {
		return nil, err
	}
	if err := validateExportProfile(profile); err != nil {
		return nil, err
	}

	holder := &ExportProfileHolder{}
	holder.current.Store(profile)

	if found {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeExportProfile(v)
			if err != nil {
				log.Warn("export profile reload failed", zap.Error(err))
				return
			}
			if err := validateExportProfile(updated); err != nil {
				log.Warn("invalid export profile ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("export profile reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

// NewStaticExportProfileHolder wraps a fixed profile.
func NewStaticExportProfileHolder(p ExportProfile) *ExportProfileHolder {
	holder := &ExportProfileHolder{}
	holder.current.Store(p)
	return holder
}

func (h *ExportProfileHolder) Get() ExportProfile {
	return h.current.Load().(ExportProfile)
}

// decodeExportProfile goes through AllSettings so nested defaults survive a
// file that sets only some keys.
func decodeExportProfile(v *viper.Viper) (ExportProfile, error) {
	var wrapper struct {
		Export ExportProfile `mapstructure:"export"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return ExportProfile{}, err
	}
	return wrapper.Export, nil
}

func validateExportProfile(p ExportProfile) error {
	if strings.TrimSpace(p.LogPath) == "" {
		return errors.New("export.logPath cannot be empty")
	}
	return nil
}
