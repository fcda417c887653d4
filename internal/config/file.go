package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/threadview/internal/model"
)

// fileConfig mirrors Config for files. Absent keys leave the current value
// alone, so every field is a pointer.
type fileConfig struct {
	URL        *string   `yaml:"url" json:"url"`
	Origin     *string   `yaml:"origin" json:"origin"`
	PostID     *int64    `yaml:"post_id" json:"post_id"`
	Sort       *string   `yaml:"sort" json:"sort"`
	RetryDelay *string   `yaml:"retry_delay" json:"retry_delay"`
	RetryMax   *int      `yaml:"retry_max" json:"retry_max"`
	Journal    *string   `yaml:"journal" json:"journal"`
	CacheSize  *int      `yaml:"cache_size" json:"cache_size"`
	Rank       *fileRank `yaml:"rank" json:"rank"`
}

type fileRank struct {
	Scale   *float64 `yaml:"scale" json:"scale"`
	Offset  *float64 `yaml:"offset" json:"offset"`
	Gravity *float64 `yaml:"gravity" json:"gravity"`
}

// OverlayFile applies the settings in the file at path. The format follows
// the extension: .yaml and .yml are YAML (unknown keys rejected), .cue is CUE.
func (c *Config) OverlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		fc, err = parseYAML(data)
	case ".cue":
		fc, err = parseCUE(path, data)
	default:
		return fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	if err := c.apply(fc); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func parseYAML(data []byte) (fileConfig, error) {
	var fc fileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil {
		// An empty document leaves everything unset.
		if errors.Is(err, io.EOF) {
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("parse yaml: %w", err)
	}
	return fc, nil
}

func parseCUE(path string, data []byte) (fileConfig, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return fileConfig{}, fmt.Errorf("compile cue: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fileConfig{}, fmt.Errorf("validate cue: %w", err)
	}

	var fc fileConfig
	if err := v.Decode(&fc); err != nil {
		return fileConfig{}, fmt.Errorf("decode cue: %w", err)
	}
	return fc, nil
}

func (c *Config) apply(fc fileConfig) error {
	if fc.URL != nil {
		c.URL = *fc.URL
	}
	if fc.Origin != nil {
		c.Origin = *fc.Origin
	}
	if fc.PostID != nil {
		c.PostID = *fc.PostID
	}
	if fc.Sort != nil {
		mode, err := model.ParseSortMode(*fc.Sort)
		if err != nil {
			return err
		}
		c.Sort = mode
	}
	if fc.RetryDelay != nil {
		d, err := time.ParseDuration(*fc.RetryDelay)
		if err != nil {
			return fmt.Errorf("retry_delay: %w", err)
		}
		c.RetryDelay = d
	}
	if fc.RetryMax != nil {
		c.RetryMax = *fc.RetryMax
	}
	if fc.Journal != nil {
		c.Journal = *fc.Journal
	}
	if fc.CacheSize != nil {
		c.CacheSize = *fc.CacheSize
	}
	if r := fc.Rank; r != nil {
		if r.Scale != nil {
			c.Rank.Scale = *r.Scale
		}
		if r.Offset != nil {
			c.Rank.Offset = *r.Offset
		}
		if r.Gravity != nil {
			c.Rank.Gravity = *r.Gravity
		}
	}
	return nil
}
