package config

// AppConfig is the full application configuration.
type AppConfig struct {
	Sources     Sources     `yaml:"sources"`
	Pathfinding Pathfinding `yaml:"pathfinding"`
	Storage     Storage     `yaml:"storage"`
}

// Sources configures the remote schedule and map services.
type Sources struct {
	ScheduleURL string `yaml:"schedule_url" validate:"required,url"`
	OverpassURL string `yaml:"overpass_url" validate:"required,url"`
	Area        string `yaml:"area" validate:"required"`
	UserAgent   string `yaml:"user_agent"`
}

// Pathfinding carries the tunables of the rail finder, the simplifier and
// the route analyzer. The cutoff multiples are empirical; they are exposed
// here rather than hardcoded.
type Pathfinding struct {
	RadiusKM              int     `yaml:"radius_km" validate:"gte=1"`
	IntervalM             int     `yaml:"interval_m" validate:"gte=1"`
	HitboxRadiusM         float64 `yaml:"hitbox_radius_m" validate:"gt=0"`
	DefaultSpeed          float64 `yaml:"default_speed" validate:"gt=0"`
	AugmentMultiplier     float64 `yaml:"augment_multiplier" validate:"gte=1"`
	MaxTurnDegrees        float64 `yaml:"max_turn_degrees" validate:"gt=0,lte=180"`
	ForeignCutoffMultiple float64 `yaml:"foreign_cutoff_multiple" validate:"gte=0"`
	SamplingIntervalM     float64 `yaml:"sampling_interval_m" validate:"gt=0"`
	MaxDetourMultiplier   float64 `yaml:"max_detour_multiplier" validate:"gte=1"`
}

// Storage configures the checkpoint, ledger and export file locations.
type Storage struct {
	StateFile  string `yaml:"state_file"`
	BackupFile string `yaml:"backup_file"`
	LedgerFile string `yaml:"ledger_file"`
	ExportFile string `yaml:"export_file"`
}
