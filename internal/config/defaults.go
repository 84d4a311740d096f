package config

const (
	defaultConfigPath        = "~/.config/finmatch/config.toml"
	projectConfigName        = "finmatch.toml"
	catalogEnvVar            = "FINMATCH_CATALOG"
	defaultCatalogPath       = "~/.local/share/finmatch/catalog.db"
	defaultLogDir            = "~/.local/share/finmatch/logs"
	defaultReportDir         = "~/.local/share/finmatch/reports"
	defaultSamples           = 100
	defaultCostFunction      = "euclidean"
	defaultCurvatureWeight   = 50.0
	defaultWorstCasePenalty  = 1e6
	defaultAnchor            = "tip"
	defaultRegistration      = "fixed"
	defaultTrimFraction      = 0.2
	defaultSizeMeasure       = "span"
	defaultCanonicalSize     = 600.0
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	maxSamples               = 2000
	defaultSimplifyTolerance = 0.0
)

// Default returns a Config populated with repository defaults. The catalog
// path is resolved during normalization so FINMATCH_CATALOG can supply it.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			ReportDir: defaultReportDir,
		},
		Matching: Matching{
			Samples:           defaultSamples,
			CostFunction:      defaultCostFunction,
			CurvatureWeight:   defaultCurvatureWeight,
			WorstCasePenalty:  defaultWorstCasePenalty,
			Registration:      defaultRegistration,
			TrimFraction:      defaultTrimFraction,
			Anchor:            defaultAnchor,
			SizeMeasure:       defaultSizeMeasure,
			CanonicalSize:     defaultCanonicalSize,
			SimplifyTolerance: defaultSimplifyTolerance,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
