package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/document"
	"github.com/spigell/resume-screener/internal/export"
	"github.com/spigell/resume-screener/internal/filtering"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/pipeline"
	"github.com/spigell/resume-screener/internal/resume"
	"github.com/spigell/resume-screener/internal/scoring"
	"github.com/spigell/resume-screener/internal/skills"
	"github.com/spigell/resume-screener/internal/storage"
)

const (
	PromptBrowse  = "Browse candidates"
	PromptFilters = "Show filters"
	PromptExit    = "Exit"
	PromptBack    = "back"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptBrowse, PromptFilters, PromptExit},
}

var screenCmd = &cobra.Command{
	Use:   "screen [files or directories...]",
	Short: "Score resumes against a job description and export the results",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		screen(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().String("job", "", "file with the job description")
	screenCmd.Flags().StringP("strategy", "s", "", "scoring strategy: local_embed, openai or gemini")
	screenCmd.Flags().StringP("output", "o", "", "csv file to export the results to")
	screenCmd.Flags().IntP("workers", "w", 0, "number of resumes processed concurrently (default is the number of CPUs)")
	screenCmd.Flags().Bool("persist", false, "save parsed resumes to the sqlite database")
	screenCmd.Flags().String("api-key", "", "api key for the remote strategy, overrides the configured one")
	screenCmd.Flags().BoolP("non-interactive", "y", false, "do not open the candidate browser after export")

	viper.BindPFlag("job-file", screenCmd.Flags().Lookup("job"))
	viper.BindPFlag("strategy", screenCmd.Flags().Lookup("strategy"))
	viper.BindPFlag("output", screenCmd.Flags().Lookup("output"))
	viper.BindPFlag("workers", screenCmd.Flags().Lookup("workers"))
	viper.BindPFlag("persist.enabled", screenCmd.Flags().Lookup("persist"))
}

// screen is the main command for the cli.
func screen(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-screener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	id, err := scoring.ParseStrategyID(config.Strategy)
	if err != nil {
		logger.Fatal("selecting a scoring strategy", zap.Error(err))
	}

	job, err := readJob(config.JobFile)
	if err != nil {
		logger.Fatal("reading the job description", zap.Error(err),
			zap.String("hint", "pass --job or set job-file in the configuration file"),
		)
	}

	tax, err := loadTaxonomy(config)
	if err != nil {
		logger.Fatal("loading the skill taxonomy", zap.Error(err))
	}

	engine, err := newEngine(config, logger)
	if err != nil {
		logger.Fatal("building the scoring engine", zap.Error(err))
	}

	cred := scoring.Credential{APIKey: cmd.Flag("api-key").Value.String()}
	if err := prepare(ctx, engine, id, cred); err != nil {
		logger.Fatal("scoring strategy is not usable", zap.Error(err))
	}

	docs := decodeInputs(ctx, args, logger)
	if len(docs) == 0 {
		logger.Info("exiting", zap.String("reason", "no readable resumes found"))
		return
	}

	normalizer := skills.NewNormalizer(tax)
	deps := pipeline.Deps{
		Extractor:  newExtractor(tax, config, logger),
		Normalizer: normalizer,
		Engine:     engine,
		Logger:     logger,
	}

	if config.Persist.Enabled {
		store, err := storage.Open(config.Persist.Path)
		if err != nil {
			logger.Fatal("opening the resume database", zap.Error(err))
		}
		defer store.Close()
		deps.Saver = store
	}

	result := pipeline.NewBatch(pipeline.New(deps), config.Workers, logger).Run(ctx, docs, job, id, cred)
	for _, f := range result.Failures {
		logger.Warn("resume skipped",
			zap.String("source", f.SourceName),
			zap.String("error_kind", f.Kind),
			zap.Error(f.Err),
		)
	}

	steps := filtering.Default()
	records, err := filtering.Run(ctx, &filtering.Config{
		MinimumScore:   config.Filters.MinimumScore,
		MinimumYears:   config.Filters.MinimumYears,
		RequiredSkills: config.Filters.RequiredSkills,
	}, filtering.Deps{Logger: logger, Normalizer: normalizer}, steps, result.Records)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	pipeline.SortByScore(records)

	if err := export.WriteCSVFile(config.Output, records); err != nil {
		logger.Fatal("exporting results", zap.Error(err))
	}

	logger.Info("results exported",
		zap.String("filename", config.Output),
		zap.Int("candidates", len(records)),
		zap.String("run_id", result.RunID),
	)

	if len(records) == 0 || cmd.Flag("non-interactive").Value.String() == "true" {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, steps, records); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, steps []filtering.Filter, records []*pipeline.MatchRecord) error {
	switch action {
	case PromptBrowse:
		return browse(logger, records)
	case PromptFilters:
		pretty, _ := json.MarshalIndent(filtering.Describe(steps), "", "  ")
		logger.Info(string(pretty))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func browse(logger *zap.Logger, records []*pipeline.MatchRecord) error {
	for {
		items := make([]string, 0, len(records)+1)
		for i, r := range records {
			items = append(items, fmt.Sprintf("%d %s / %s / %.2f", i+1, r.SourceName, r.Resume.Name, r.Score.Value))
		}

		candidatePrompt := promptui.Select{
			Label: "Choose a candidate and press ENTER",
			Items: append(items, PromptBack),
			Size:  10,
		}

		index, selected, err := candidatePrompt.Run()
		if err != nil {
			return err
		}

		if selected == PromptBack {
			return nil
		}

		pretty, err := json.MarshalIndent(candidateView(records[index]), "", "  ")
		if err != nil {
			return fmt.Errorf("rendering candidate: %w", err)
		}
		logger.Info(string(pretty), zap.String("source", records[index].SourceName))
	}
}

// candidateView is a record without the full resume text.
func candidateView(r *pipeline.MatchRecord) map[string]any {
	parsed := *r.Resume
	parsed.FullText = ""
	return map[string]any{
		"source_name":       r.SourceName,
		"record_id":         r.RecordID,
		"parsed":            parsed,
		"skills_normalized": r.Skills,
		"score":             r.Score,
	}
}

func readJob(path string) (pipeline.JobDescription, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return pipeline.JobDescription{}, errors.New("job description file is not configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.JobDescription{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return pipeline.JobDescription{Text: strings.ToValidUTF8(string(data), "")}, nil
}

// decodeInputs decodes every file named by args, walking directories for
// .pdf and .txt files. Unreadable files are logged and skipped.
func decodeInputs(ctx context.Context, args []string, logger *zap.Logger) []resume.RawDocument {
	decoder, err := document.NewDecoder(ctx, logger)
	if err != nil {
		logger.Fatal("creating a document decoder", zap.Error(err))
	}

	paths := make([]string, 0, len(args))
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			logger.Warn("skipping input", zap.String("path", arg), zap.Error(err))
			continue
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".pdf", ".txt":
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			logger.Warn("walking input directory", zap.String("path", arg), zap.Error(err))
		}
	}

	docs := make([]resume.RawDocument, 0, len(paths))
	for _, path := range paths {
		doc, err := decoder.DecodeFile(ctx, path)
		if err != nil {
			logger.Warn("resume skipped", zap.String("source", path), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}

	logger.Info("resumes decoded", zap.Int("count", len(docs)), zap.Int("inputs", len(paths)))
	return docs
}

// redacted returns a copy of the config without inline api keys.
func redacted(config *Config) *Config {
	c := *config
	scoringCfg := *config.Scoring
	c.Scoring = &scoringCfg

	if config.Scoring.OpenAI != nil {
		openaiCfg := *config.Scoring.OpenAI
		if openaiCfg.APIKey != "" {
			openaiCfg.APIKey = "***"
		}
		scoringCfg.OpenAI = &openaiCfg
	}
	if config.Scoring.Gemini != nil {
		geminiCfg := *config.Scoring.Gemini
		if geminiCfg.APIKey != "" {
			geminiCfg.APIKey = "***"
		}
		scoringCfg.Gemini = &geminiCfg
	}
	return &c
}
