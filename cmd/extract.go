package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/document"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/resume"
	"github.com/spigell/resume-screener/internal/skills"
)

type extraction struct {
	SourceName string               `json:"source_name"`
	Parsed     *resume.ParsedResume `json:"parsed"`
	Skills     []skills.Skill       `json:"skills_normalized"`
}

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Print the information extracted from resumes as JSON",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		extract(cmd.OutOrStdout(), args)
	},
}

var skillsCmd = &cobra.Command{
	Use:   "skills [skill list]",
	Short: "Normalize a comma, semicolon, pipe or newline separated skill list",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		normalizeSkills(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(skillsCmd)

	extractCmd.Flags().Bool("ner", true, "recognize the candidate name with the NER model")
	viper.BindPFlag("ner.enabled", extractCmd.Flags().Lookup("ner"))
}

func extract(out io.Writer, args []string) {
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

	tax, err := loadTaxonomy(config)
	if err != nil {
		logger.Fatal("loading the skill taxonomy", zap.Error(err))
	}

	decoder, err := document.NewDecoder(ctx, logger)
	if err != nil {
		logger.Fatal("creating a document decoder", zap.Error(err))
	}

	extractor := newExtractor(tax, config, logger)
	normalizer := skills.NewNormalizer(tax)

	results := make([]extraction, 0, len(args))
	for _, path := range args {
		doc, err := decoder.DecodeFile(ctx, path)
		if err != nil {
			logger.Warn("resume skipped", zap.String("source", path), zap.Error(err))
			continue
		}

		parsed, err := extractor.Extract(ctx, doc.Text)
		if err != nil {
			logger.Warn("resume skipped", zap.String("source", path), zap.Error(err))
			continue
		}

		results = append(results, extraction{
			SourceName: doc.SourceName,
			Parsed:     parsed,
			Skills:     normalizer.Normalize(skills.Tokens(parsed.Skills)),
		})
	}

	if err := writeJSON(out, results); err != nil {
		logger.Fatal("writing results", zap.Error(err))
	}
}

func normalizeSkills(out io.Writer, list string) {
	config, err := getConfig()
	if err != nil {
		log.Fatalf("getting a config: %s", err)
	}

	tax, err := loadTaxonomy(config)
	if err != nil {
		log.Fatalf("loading the skill taxonomy: %s", err)
	}

	normalized := skills.NewNormalizer(tax).Normalize(skills.Delimited(list))
	if err := writeJSON(out, normalized); err != nil {
		log.Fatalf("writing results: %s", err)
	}
}

func writeJSON(out io.Writer, v any) error {
	if out == nil {
		out = os.Stdout
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
