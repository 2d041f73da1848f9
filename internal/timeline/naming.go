package timeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Fixed-width timestamp formats. The filled form is the addressing scheme
// for position and image files; the label form is only drawn on frames.
const (
	stampFormat       = "%9.2f"
	filledStampFormat = "%09.2f"
)

// FormatFilled encodes t as a zero-filled fixed-width stamp, e.g. 000012.50.
func FormatFilled(t float64) string {
	return fmt.Sprintf(filledStampFormat, t)
}

// FormatLabel encodes t as a space-padded fixed-width stamp, e.g. "    12.50".
func FormatLabel(t float64) string {
	return fmt.Sprintf(stampFormat, t)
}

// ParseStamp decodes either stamp form.
func ParseStamp(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return v, nil
}

// Quantize rounds t to the precision the file names can carry.
func Quantize(t float64) float64 {
	v, _ := ParseStamp(FormatFilled(t))
	return v
}

// Naming holds the file name templates of one target directory layout.
type Naming struct {
	TracePrefix    string
	TraceSuffix    string
	PositionPrefix string
	PositionSuffix string
	// ImageSuffix is the image format extension without the dot.
	ImageSuffix string
}

// DefaultNaming is the node_*.trc / time_*.pos / time_*.png layout.
func DefaultNaming() Naming {
	return Naming{
		TracePrefix:    "node_",
		TraceSuffix:    "trc",
		PositionPrefix: "time_",
		PositionSuffix: "pos",
		ImageSuffix:    "png",
	}
}

// WithImageSuffix returns a copy of n that names images with ext.
func (n Naming) WithImageSuffix(ext string) Naming {
	n.ImageSuffix = ext
	return n
}

func (n Naming) PositionName(t float64) string {
	return n.PositionPrefix + FormatFilled(t) + "." + n.PositionSuffix
}

func (n Naming) PositionPath(dir string, t float64) string {
	return filepath.Join(dir, n.PositionName(t))
}

// ImageName shares the position prefix so a frame and its source sort together.
func (n Naming) ImageName(t float64) string {
	return n.PositionPrefix + FormatFilled(t) + "." + n.ImageSuffix
}

func (n Naming) ImagePath(dir string, t float64) string {
	return filepath.Join(dir, n.ImageName(t))
}

// TraceName formats a node id with the six digit zero padding used by
// recorders, e.g. node_001234.trc.
func (n Naming) TraceName(id int) string {
	return fmt.Sprintf("%s%06d.%s", n.TracePrefix, id, n.TraceSuffix)
}

func (n Naming) PositionGlob(dir string) string {
	return filepath.Join(dir, n.PositionPrefix+"*."+n.PositionSuffix)
}

func (n Naming) ImageGlob(dir string) string {
	return filepath.Join(dir, n.PositionPrefix+"*."+n.ImageSuffix)
}

func (n Naming) TraceGlob(dir string) string {
	return filepath.Join(dir, n.TracePrefix+"*."+n.TraceSuffix)
}

// ParsePositionName extracts the timestamp from a position file name or path.
func (n Naming) ParsePositionName(name string) (float64, bool) {
	return parseStamped(filepath.Base(name), n.PositionPrefix, "."+n.PositionSuffix)
}

// ParseImageName extracts the timestamp from an image file name or path.
func (n Naming) ParseImageName(name string) (float64, bool) {
	return parseStamped(filepath.Base(name), n.PositionPrefix, "."+n.ImageSuffix)
}

// ParseTraceName extracts the node id from a trace file name or path. Leading
// zeros are dropped; a bare run of zeros becomes "0".
func (n Naming) ParseTraceName(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, n.TracePrefix) || !strings.HasSuffix(base, "."+n.TraceSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(base, n.TracePrefix), "."+n.TraceSuffix)
	if id == "" {
		return "", false
	}
	id = strings.TrimLeft(id, "0")
	if id == "" {
		id = "0"
	}
	return id, true
}

func parseStamped(base, prefix, suffix string) (float64, bool) {
	if !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, suffix) {
		return 0, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(base, prefix), suffix)
	if stamp == "" {
		return 0, false
	}
	t, err := ParseStamp(stamp)
	if err != nil || FormatFilled(t) != stamp {
		return 0, false
	}
	return t, true
}
