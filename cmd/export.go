package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/oappleby/plotsat/internal/config"
	"github.com/oappleby/plotsat/internal/lister"
	"github.com/oappleby/plotsat/internal/manifest"
	"github.com/oappleby/plotsat/internal/model"
	"github.com/oappleby/plotsat/internal/resilience"
	"github.com/oappleby/plotsat/pkg/drive"
)

var (
	exportJobPath string
	exportSource  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Reconcile PlotToSat export jobs against their destinations",
	Long:  "Compares the chunk files a PlotToSat export job should have produced against what actually landed at the destination (local folder, Google Drive, or FTP) and reports what is missing.",
}

// loadJob reads the job file named by --job, applying manifest defaults
// from the configuration.
func loadJob() (*manifest.Job, error) {
	if exportJobPath == "" {
		return nil, &model.ConfigurationError{Param: "job", Reason: "--job is required"}
	}
	return manifest.LoadJob(exportJobPath, cfg.Manifest)
}

// buildLister constructs the chunk lister for the selected source, after
// validating the configuration that source needs.
func buildLister(job *manifest.Job) (lister.Lister, error) {
	source := exportSource
	if source == "" {
		source = cfg.Export.Source
	}
	retry := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMS, cfg.Retry.MaxBackoffMS)

	switch source {
	case "local":
		if err := cfg.Validate("export-local"); err != nil {
			return nil, err
		}
		return lister.NewLocal(job, cfg.Export.LocalDir), nil
	case "drive":
		if err := cfg.Validate("export-drive"); err != nil {
			return nil, err
		}
		token, err := driveToken(cfg.Drive)
		if err != nil {
			return nil, err
		}
		client := drive.NewClient(token,
			drive.WithBaseURL(cfg.Drive.BaseURL),
			drive.WithPageSize(cfg.Drive.PageSize),
			drive.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Drive.TimeoutSecs) * time.Second}))
		return lister.NewDrive(job, client, cfg.Drive.ParentFolder, retry), nil
	case "ftp":
		if err := cfg.Validate("export-ftp"); err != nil {
			return nil, err
		}
		return lister.NewFTP(job, cfg.FTP, retry), nil
	default:
		return nil, &model.ConfigurationError{Param: "export.source", Reason: fmt.Sprintf("unknown source %q (want local, drive or ftp)", source)}
	}
}

// driveToken resolves the Drive access token, preferring the inline config
// value over the token file.
func driveToken(dc config.DriveConfig) (string, error) {
	if dc.Token != "" {
		return dc.Token, nil
	}
	raw, err := os.ReadFile(dc.TokenFile)
	if err != nil {
		return "", eris.Wrapf(err, "drive: read token file %s", dc.TokenFile)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", &model.ConfigurationError{Param: "drive.token_file", Reason: fmt.Sprintf("token file %s is empty", dc.TokenFile)}
	}
	return token, nil
}

func init() {
	exportCmd.PersistentFlags().StringVar(&exportJobPath, "job", "", "export job definition YAML")
	exportCmd.PersistentFlags().StringVar(&exportSource, "source", "", "destination to list: local, drive or ftp (falls back to export.source)")

	rootCmd.AddCommand(exportCmd)
}
