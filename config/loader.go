package config

import (
	"errors"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from
// config.yml. A missing file is not an error: the defaults are complete.
func LoadAppConfig() error {
	paths := []string{"config.yml", "./config/config.yml"}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	var cfg AppConfig
	if data != nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return err
		}
	}
	applyDefaults(&cfg)

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}
	Config = cfg
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Sources.ScheduleURL == "" {
		cfg.Sources.ScheduleURL = "https://old.rozklad-pkp.pl/bin/trainsearch.exe/pn?ld=mobil&protocol=https:&="
	}
	if cfg.Sources.OverpassURL == "" {
		cfg.Sources.OverpassURL = "https://overpass-api.de/api/interpreter"
	}
	if cfg.Sources.Area == "" {
		cfg.Sources.Area = "Polska"
	}
	if cfg.Sources.UserAgent == "" {
		cfg.Sources.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:145.0) Gecko/20100101 Firefox/145.0"
	}

	if cfg.Pathfinding.RadiusKM == 0 {
		cfg.Pathfinding.RadiusKM = 15
	}
	if cfg.Pathfinding.IntervalM == 0 {
		cfg.Pathfinding.IntervalM = 200
	}
	if cfg.Pathfinding.HitboxRadiusM == 0 {
		cfg.Pathfinding.HitboxRadiusM = 300
	}
	if cfg.Pathfinding.DefaultSpeed == 0 {
		cfg.Pathfinding.DefaultSpeed = 120
	}
	if cfg.Pathfinding.AugmentMultiplier == 0 {
		cfg.Pathfinding.AugmentMultiplier = 2
	}
	if cfg.Pathfinding.MaxTurnDegrees == 0 {
		cfg.Pathfinding.MaxTurnDegrees = 30
	}
	if cfg.Pathfinding.ForeignCutoffMultiple == 0 {
		cfg.Pathfinding.ForeignCutoffMultiple = 2
	}
	if cfg.Pathfinding.SamplingIntervalM == 0 {
		cfg.Pathfinding.SamplingIntervalM = 50
	}
	if cfg.Pathfinding.MaxDetourMultiplier == 0 {
		cfg.Pathfinding.MaxDetourMultiplier = 3.5
	}

	if cfg.Storage.StateFile == "" {
		cfg.Storage.StateFile = "output/scraper_state.json"
	}
	if cfg.Storage.BackupFile == "" {
		cfg.Storage.BackupFile = "output/scraper_state_backup.json"
	}
	if cfg.Storage.LedgerFile == "" {
		cfg.Storage.LedgerFile = "output/saved_fixups.db"
	}
	if cfg.Storage.ExportFile == "" {
		cfg.Storage.ExportFile = "output/delatrain.json"
	}
}
