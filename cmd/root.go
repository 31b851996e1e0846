package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resume-screener"
)

type Config struct {
	Strategy     string         `mapstructure:"strategy"`
	JobFile      string         `mapstructure:"job-file"`
	Output       string         `mapstructure:"output"`
	Workers      int            `mapstructure:"workers"`
	TaxonomyFile string         `mapstructure:"taxonomy-file"`
	Persist      *PersistConfig `mapstructure:"persist"`
	NER          *NERConfig     `mapstructure:"ner"`
	Scoring      *ScoringConfig `mapstructure:"scoring"`
	Filters      *FiltersConfig `mapstructure:"filters"`
}

type PersistConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type NERConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ScoringConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Local        *LocalConfig  `mapstructure:"local"`
	OpenAI       *RemoteConfig `mapstructure:"openai"`
	Gemini       *RemoteConfig `mapstructure:"gemini"`
}

type LocalConfig struct {
	// Backend is either "openai" for an OpenAI-compatible embeddings endpoint or "hashing".
	Backend    string `mapstructure:"backend"`
	BaseURL    string `mapstructure:"base-url"`
	Model      string `mapstructure:"model"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Dimensions int    `mapstructure:"dimensions"`
}

type RemoteConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	APIKey          string `mapstructure:"api-key"`
	APIKeyFile      string `mapstructure:"api-key-file"`
	Model           string `mapstructure:"model"`
	BaseURL         string `mapstructure:"base-url"`
	MaxOutputTokens int    `mapstructure:"max-output-tokens"`
}

type FiltersConfig struct {
	MinimumScore   float64  `mapstructure:"minimum-score"`
	MinimumYears   int      `mapstructure:"minimum-years"`
	RequiredSkills []string `mapstructure:"required-skills"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-screener extracts candidate information from resumes and scores them against a job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("scoring.openai.api-key-file", "OPENAI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding OPENAI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("scoring.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("strategy", "local_embed")
	viper.SetDefault("output", "results.csv")
	viper.SetDefault("persist.path", "resumes.db")
	viper.SetDefault("ner.enabled", true)
	viper.SetDefault("scoring.timeout", "60s")
	viper.SetDefault("scoring.max-log-length", 200)
	viper.SetDefault("scoring.local.backend", "openai")
	viper.SetDefault("scoring.openai.enabled", true)
	viper.SetDefault("scoring.gemini.enabled", true)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional, every setting has a flag or a default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           config,
	})
	if err != nil {
		return nil, fmt.Errorf("creating config decoder: %w", err)
	}

	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if config.Persist == nil {
		config.Persist = &PersistConfig{}
	}
	if config.NER == nil {
		config.NER = &NERConfig{}
	}
	if config.Scoring == nil {
		config.Scoring = &ScoringConfig{}
	}
	if config.Scoring.Local == nil {
		config.Scoring.Local = &LocalConfig{}
	}
	if config.Scoring.OpenAI == nil {
		config.Scoring.OpenAI = &RemoteConfig{}
	}
	if config.Scoring.Gemini == nil {
		config.Scoring.Gemini = &RemoteConfig{}
	}
	if config.Filters == nil {
		config.Filters = &FiltersConfig{}
	}

	return config, nil
}
