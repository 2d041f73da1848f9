// Package config holds the immutable settings of one animator run.
//
// Settings are layered: Defaults, then an optional JSON file, then ANIMATOR_*
// environment variables, then command-line flags. Every layer is expressed
// as an Overrides value so partial inputs are safe.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/banshee-data/animator/internal/timeline"
)

// EnvPrefix prefixes every environment override, e.g. ANIMATOR_FRAME_RATE.
const EnvPrefix = "ANIMATOR_"

// Renderer modes.
const (
	RendererAuto    = "auto"
	RendererGnuplot = "gnuplot"
	RendererBuiltin = "builtin"
)

// Indexer modes.
const (
	IndexerAuto     = "auto"
	IndexerSymlink  = "symlink"
	IndexerCopy     = "copy"
	IndexerManifest = "manifest"
)

// Config is passed by value to every stage; nothing mutates it after Build.
type Config struct {
	TargetDir string

	Begin    float64
	End      float64
	Interval float64

	Width       int
	Height      int
	ImageFormat string
	Font        string
	XLabel      string
	YLabel      string
	TimeUnit    string

	// Plot columns, 1-based as in the position file.
	XCol     int
	YCol     int
	ColorCol int

	FrameRate int

	PlotConfigName string
	OutputName     string
	PreviewName    string
	IndexPrefix    string
	ManifestName   string

	Renderer      string
	Indexer       string
	PlotterNames  []string
	EncoderNames  []string
	RenderTimeout time.Duration
	FailFast      bool

	naming timeline.Naming
}

// Defaults returns the stock configuration: the current directory, a
// [0, 1000) window at 1 s steps, 800x600 PNG frames and a 20 fps MP4.
func Defaults() Config {
	return Config{
		TargetDir:      ".",
		Begin:          0,
		End:            1000,
		Interval:       1,
		Width:          800,
		Height:         600,
		ImageFormat:    "png",
		Font:           "LiberationSans-Regular.ttf, 16",
		XLabel:         "x [m]",
		YLabel:         "y [m]",
		TimeUnit:       "[sec]",
		XCol:           2,
		YCol:           3,
		ColorCol:       6,
		FrameRate:      20,
		PlotConfigName: "gnuplot.conf",
		OutputName:     "animation.mp4",
		PreviewName:    "preview.html",
		IndexPrefix:    "snapshot-",
		ManifestName:   "snapshot.ffconcat",
		Renderer:       RendererAuto,
		Indexer:        IndexerAuto,
		PlotterNames:   []string{"gnuplot"},
		EncoderNames:   []string{"ffmpeg", "avconv"},
		naming:         timeline.DefaultNaming(),
	}
}

// Overrides is one configuration layer. Nil fields leave the value below
// untouched. The same struct is decoded from JSON and from the environment.
type Overrides struct {
	TargetDir *string `json:"target_dir,omitempty" env:"TARGET_DIR"`

	Begin    *float64 `json:"begin,omitempty" env:"BEGIN"`
	End      *float64 `json:"end,omitempty" env:"END"`
	Interval *float64 `json:"interval,omitempty" env:"INTERVAL"`

	Width       *int    `json:"width,omitempty" env:"WIDTH"`
	Height      *int    `json:"height,omitempty" env:"HEIGHT"`
	ImageFormat *string `json:"image_format,omitempty" env:"IMAGE_FORMAT"`
	Font        *string `json:"font,omitempty" env:"FONT"`
	XLabel      *string `json:"x_label,omitempty" env:"X_LABEL"`
	YLabel      *string `json:"y_label,omitempty" env:"Y_LABEL"`

	XCol     *int `json:"x_col,omitempty" env:"X_COL"`
	YCol     *int `json:"y_col,omitempty" env:"Y_COL"`
	ColorCol *int `json:"color_col,omitempty" env:"COLOR_COL"`

	FrameRate  *int    `json:"frame_rate,omitempty" env:"FRAME_RATE"`
	OutputName *string `json:"output_name,omitempty" env:"OUTPUT_NAME"`

	Renderer      *string  `json:"renderer,omitempty" env:"RENDERER"`
	Indexer       *string  `json:"indexer,omitempty" env:"INDEXER"`
	PlotterNames  []string `json:"plotters,omitempty" env:"PLOTTERS" envSeparator:","`
	EncoderNames  []string `json:"encoders,omitempty" env:"ENCODERS" envSeparator:","`
	RenderTimeout *string  `json:"render_timeout,omitempty" env:"RENDER_TIMEOUT"` // duration string like "30s"
	FailFast      *bool    `json:"fail_fast,omitempty" env:"FAIL_FAST"`
}

// LoadFile reads an Overrides layer from a JSON file.
// The file must have a .json extension and be at most 1 MiB.
func LoadFile(path string) (Overrides, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Overrides{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Overrides{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return Overrides{}, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Overrides{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var o Overrides
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&o); err != nil {
		return Overrides{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return o, nil
}

// FromEnv reads an Overrides layer from ANIMATOR_* variables. A nil environ
// means the process environment.
func FromEnv(environ map[string]string) (Overrides, error) {
	var o Overrides
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return Overrides{}, fmt.Errorf("parse env: %w", err)
	}
	return o, nil
}

// Apply returns c with every non-nil field of o applied.
func (c Config) Apply(o Overrides) (Config, error) {
	setString(&c.TargetDir, o.TargetDir)
	setFloat(&c.Begin, o.Begin)
	setFloat(&c.End, o.End)
	setFloat(&c.Interval, o.Interval)
	setInt(&c.Width, o.Width)
	setInt(&c.Height, o.Height)
	setString(&c.ImageFormat, o.ImageFormat)
	setString(&c.Font, o.Font)
	setString(&c.XLabel, o.XLabel)
	setString(&c.YLabel, o.YLabel)
	setInt(&c.XCol, o.XCol)
	setInt(&c.YCol, o.YCol)
	setInt(&c.ColorCol, o.ColorCol)
	setInt(&c.FrameRate, o.FrameRate)
	setString(&c.OutputName, o.OutputName)
	setString(&c.Renderer, o.Renderer)
	setString(&c.Indexer, o.Indexer)
	if len(o.PlotterNames) > 0 {
		c.PlotterNames = slices.Clone(o.PlotterNames)
	}
	if len(o.EncoderNames) > 0 {
		c.EncoderNames = slices.Clone(o.EncoderNames)
	}
	if o.RenderTimeout != nil && *o.RenderTimeout != "" {
		d, err := time.ParseDuration(*o.RenderTimeout)
		if err != nil {
			return c, fmt.Errorf("invalid render_timeout '%s': %w", *o.RenderTimeout, err)
		}
		c.RenderTimeout = d
	}
	if o.FailFast != nil {
		c.FailFast = *o.FailFast
	}
	return c, nil
}

// Ptr returns a pointer to v, for building Overrides literals.
func Ptr[T any](v T) *T { return &v }

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Build applies the layers in order, normalizes and validates the result.
func Build(layers ...Overrides) (Config, error) {
	c := Defaults()
	for _, o := range layers {
		var err error
		if c, err = c.Apply(o); err != nil {
			return Config{}, err
		}
	}
	if c.ImageFormat == "jpg" {
		c.ImageFormat = "jpeg"
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	c.naming = timeline.DefaultNaming().WithImageSuffix(c.ImageFormat)
	return c, nil
}

var terminals = map[string]string{
	"png":  "pngcairo",
	"jpeg": "jpeg",
	"gif":  "gif",
}

// Validate checks that the configuration values are usable.
func (c Config) Validate() error {
	if c.TargetDir == "" {
		return fmt.Errorf("target directory must not be empty")
	}
	if _, err := timeline.NewSequence(c.Begin, c.End, c.Interval); err != nil {
		return err
	}
	// Files are addressed by a two-decimal stamp; finer steps would share names.
	if timeline.Quantize(c.Begin) != c.Begin || timeline.Quantize(c.Interval) != c.Interval {
		return fmt.Errorf("begin and interval must have at most two decimals, got begin=%g interval=%g", c.Begin, c.Interval)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", c.Width, c.Height)
	}
	if _, ok := terminals[c.ImageFormat]; !ok && c.ImageFormat != "jpg" {
		return fmt.Errorf("image format must be one of gif, jpeg, jpg, png, got %q", c.ImageFormat)
	}
	if c.XCol < 1 || c.YCol < 1 || c.ColorCol < 1 {
		return fmt.Errorf("plot columns are 1-based, got x=%d y=%d color=%d", c.XCol, c.YCol, c.ColorCol)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("frame rate must be positive, got %d", c.FrameRate)
	}
	switch c.Renderer {
	case RendererAuto, RendererGnuplot, RendererBuiltin:
	default:
		return fmt.Errorf("renderer must be auto, gnuplot or builtin, got %q", c.Renderer)
	}
	switch c.Indexer {
	case IndexerAuto, IndexerSymlink, IndexerCopy, IndexerManifest:
	default:
		return fmt.Errorf("indexer must be auto, symlink, copy or manifest, got %q", c.Indexer)
	}
	if c.RenderTimeout < 0 {
		return fmt.Errorf("render timeout must not be negative, got %s", c.RenderTimeout)
	}
	if c.OutputName == "" || filepath.Base(c.OutputName) != c.OutputName {
		return fmt.Errorf("output name must be a bare file name, got %q", c.OutputName)
	}
	return nil
}

// Naming returns the file name templates for this configuration.
func (c Config) Naming() timeline.Naming {
	if c.naming == (timeline.Naming{}) {
		return timeline.DefaultNaming().WithImageSuffix(c.ImageFormat)
	}
	return c.naming
}

// Sequence returns the configured time window. Build has validated it.
func (c Config) Sequence() timeline.Sequence {
	s, err := timeline.NewSequence(c.Begin, c.End, c.Interval)
	if err != nil {
		panic(fmt.Sprintf("config: unvalidated time window: %v", err))
	}
	return s
}

// Terminal returns the gnuplot terminal for the image format.
func (c Config) Terminal() string {
	return terminals[c.ImageFormat]
}

// PlotConfigPath is the optional user plot configuration in the target dir.
func (c Config) PlotConfigPath() string {
	return filepath.Join(c.TargetDir, c.PlotConfigName)
}

// OutputPath is the assembled video in the target dir.
func (c Config) OutputPath() string {
	return filepath.Join(c.TargetDir, c.OutputName)
}

// PreviewPath is the trajectory preview page in the target dir.
func (c Config) PreviewPath() string {
	return filepath.Join(c.TargetDir, c.PreviewName)
}
