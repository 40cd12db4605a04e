// Package manifest loads export job definitions and derives the expected
// chunk set a complete PlotToSat export run would leave at the destination.
package manifest

import (
	"fmt"
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/oappleby/plotsat/internal/config"
	"github.com/oappleby/plotsat/internal/model"
)

// DefaultFilePattern matches PlotToSat chunk exports, e.g.
// plots_0000000000_0000000500_S2_mean.csv. The two capture groups are the
// half-open [start, end) plot row markers.
const DefaultFilePattern = `_(\d+)_(\d+)_S\d+_mean\.csv$`

var defaultChunkPattern = regexp.MustCompile(DefaultFilePattern)

// Job describes one export job: which country/year partitions it covers,
// how many plots each country has, and how the exporter chunks them.
type Job struct {
	Name         string         `yaml:"name"`
	FolderPrefix string         `yaml:"folder_prefix"`
	FilePattern  string         `yaml:"file_pattern"`
	Countries    []string       `yaml:"countries"`
	Years        []int          `yaml:"years"`
	TotalPlots   map[string]int `yaml:"total_plots"`
	ChunkSize    int            `yaml:"chunk_size"`

	pattern *regexp.Regexp
}

// LoadJob reads a job definition from a YAML file, applying configured
// defaults for fields the file omits, and validates it.
func LoadJob(path string, defaults config.ManifestConfig) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: read job %s", path)
	}

	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, eris.Wrap(err, "manifest: parse job")
	}

	if job.FolderPrefix == "" {
		job.FolderPrefix = defaults.FolderPrefix
	}
	if job.ChunkSize == 0 {
		job.ChunkSize = defaults.ChunkSize
	}
	if job.FilePattern == "" {
		job.FilePattern = defaults.FilePattern
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// Validate checks the job definition and compiles the chunk file pattern.
// All problems are reported as ConfigurationErrors.
func (j *Job) Validate() error {
	if j.FolderPrefix == "" {
		return &model.ConfigurationError{Param: "folder_prefix", Reason: "must not be empty"}
	}
	if j.ChunkSize < 1 {
		return &model.ConfigurationError{Param: "chunk_size", Reason: fmt.Sprintf("must be >= 1, got %d", j.ChunkSize)}
	}

	if len(j.Countries) == 0 {
		return &model.ConfigurationError{Param: "countries", Reason: "must list at least one country"}
	}
	seenCountry := make(map[string]bool, len(j.Countries))
	for _, c := range j.Countries {
		if c == "" {
			return &model.ConfigurationError{Param: "countries", Reason: "country names must not be empty"}
		}
		if seenCountry[c] {
			return &model.ConfigurationError{Param: "countries", Reason: fmt.Sprintf("duplicate country %q", c)}
		}
		seenCountry[c] = true
	}

	if len(j.Years) == 0 {
		return &model.ConfigurationError{Param: "years", Reason: "must list at least one year"}
	}
	seenYear := make(map[int]bool, len(j.Years))
	for _, y := range j.Years {
		if seenYear[y] {
			return &model.ConfigurationError{Param: "years", Reason: fmt.Sprintf("duplicate year %d", y)}
		}
		seenYear[y] = true
	}

	for _, c := range j.Countries {
		total, ok := j.TotalPlots[c]
		if !ok {
			return &model.ConfigurationError{Param: "total_plots", Reason: fmt.Sprintf("missing total for country %q", c)}
		}
		if total <= 0 {
			return &model.ConfigurationError{Param: "total_plots", Reason: fmt.Sprintf("total for country %q must be positive, got %d", c, total)}
		}
	}

	pattern := j.FilePattern
	if pattern == "" {
		j.pattern = defaultChunkPattern
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return &model.ConfigurationError{Param: "file_pattern", Reason: fmt.Sprintf("invalid pattern: %v", err)}
	}
	if re.NumSubexp() < 2 {
		return &model.ConfigurationError{Param: "file_pattern", Reason: "pattern needs two capture groups for the start and end markers"}
	}
	j.pattern = re
	return nil
}

func (j *Job) chunkPattern() *regexp.Regexp {
	if j.pattern == nil {
		// Fallback for jobs constructed without Validate.
		if j.FilePattern == "" {
			j.pattern = defaultChunkPattern
		} else if re, err := regexp.Compile(j.FilePattern); err == nil && re.NumSubexp() >= 2 {
			j.pattern = re
		} else {
			j.pattern = defaultChunkPattern
		}
	}
	return j.pattern
}
