// Package main implements the activity CLI: hourly mean activity of the
// female and male cohorts of a dataset.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-activity-pipeline/internal/app"
	"go-activity-pipeline/internal/config"
	"go-activity-pipeline/internal/logging"
	"go-activity-pipeline/internal/model"
	"go-activity-pipeline/internal/pipeline"
	"go-activity-pipeline/internal/report"
	"go-activity-pipeline/pkg/utils"
)

var (
	dataset        = flag.String("dataset", "", "Dataset name prefix of the sheet exports (or set ACTIVITY_DATASET)")
	dataDir        = flag.String("data-dir", "", "Directory holding the sheet exports (or set ACTIVITY_DATA_DIR)")
	femaleAct      = flag.String("female", "", "Female activity table path or URL, overrides the dataset")
	maleAct        = flag.String("male", "", "Male activity table path or URL, overrides the dataset")
	femaleTemp     = flag.String("female-temp", "", "Female temperature table path or URL")
	maleTemp       = flag.String("male-temp", "", "Male temperature table path or URL")
	femaleSubjects = flag.String("subjects-female", "", "Comma-separated female subject ids to include")
	maleSubjects   = flag.String("subjects-male", "", "Comma-separated male subject ids to include")
	perSubject     = flag.Bool("per-subject", false, "Also print one hourly series per subject")
	regression     = flag.Bool("regression", false, "Fit temperature against activity per subject")
	exportFile     = flag.String("export", "", "Write the series to a .csv or .json file")
	exportDB       = flag.String("db", "", "Also export to a database: a postgres:// DSN, or \"postgres\" for ACTIVITY_POSTGRES_DSN")
	timeout        = flag.String("timeout", "", "Overall run timeout, e.g. 2m (or set ACTIVITY_JOB_TIMEOUT)")
	chart          = flag.Bool("chart", false, "Render the hourly means as a bar chart")
	verbose        = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if _, set := os.LookupEnv("LOG_FORMAT"); !set {
		cfg.Log.Format = "console"
	}
	logger, err := logging.NewLogger(cfg.Log, "activity")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // best-effort flush

	spec := buildSpec(cfg)
	if err := spec.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid arguments: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	runTimeout := *timeout
	if runTimeout == "" {
		runTimeout = cfg.Jobs.Timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), utils.ParseDuration(runTimeout))
	defer cancel()

	p := pipeline.New(app.NewLoader(cfg, logger), logger)
	analysis, err := p.Analyze(ctx, spec, nil)
	if err != nil {
		logger.Error("analysis failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	render := report.FormatSeries
	if *chart {
		render = report.GenerateHistogram
	}
	for _, s := range analysis.Series {
		fmt.Println(render(s))
	}
	for _, s := range analysis.Subjects {
		fmt.Println(render(s))
	}
	if out := report.FormatRegressions(analysis.Regressions); out != "" {
		fmt.Println(out)
	}

	if spec.Export != nil {
		if strings.EqualFold(spec.Export.DB, "postgres") {
			spec.Export.DB = cfg.Store.PostgresDSN
		}
		failed := false
		for _, res := range pipeline.NewExportManager(uuid.New().String(), spec.Export, nil, logger).Export(ctx, analysis) {
			if !res.Success {
				fmt.Fprintf(os.Stderr, "export to %s failed: %s\n", res.Path, res.Error)
				failed = true
				continue
			}
			fmt.Fprintf(os.Stderr, "exported %d records to %s\n", res.RecordCount, res.Path)
		}
		if failed {
			os.Exit(1)
		}
	}
}

func buildSpec(cfg *config.Config) model.AnalysisSpec {
	spec := model.AnalysisSpec{
		Dataset:    firstNonEmpty(*dataset, cfg.Dataset.Name),
		DataDir:    firstNonEmpty(*dataDir, cfg.Dataset.DataDir),
		PerSubject: *perSubject,
		Subjects: model.SubjectSelection{
			Female: utils.SplitList(*femaleSubjects),
			Male:   utils.SplitList(*maleSubjects),
		},
	}

	overrides := []model.Source{
		{Sex: model.Female, Kind: model.Activity, URL: *femaleAct},
		{Sex: model.Male, Kind: model.Activity, URL: *maleAct},
		{Sex: model.Female, Kind: model.Temperature, URL: *femaleTemp},
		{Sex: model.Male, Kind: model.Temperature, URL: *maleTemp},
	}
	for _, src := range overrides {
		if src.URL != "" {
			spec.Sources = append(spec.Sources, src)
		}
	}

	if *regression {
		spec.Regression = &model.RegressionRequest{Subjects: spec.Subjects}
	}
	if *exportFile != "" || *exportDB != "" {
		spec.Export = &model.Export{File: *exportFile, DB: *exportDB}
	}
	return spec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
