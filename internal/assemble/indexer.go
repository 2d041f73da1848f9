package assemble

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/banshee-data/animator/internal/config"
	"github.com/banshee-data/animator/internal/fsutil"
)

// Layout names the dense-index artifacts in the target directory.
type Layout struct {
	Dir       string
	Prefix    string
	Ext       string
	Manifest  string
	FrameRate int
}

// Pattern is the printf-style input pattern the encoder expands.
func (l Layout) Pattern() string {
	return filepath.Join(l.Dir, l.Prefix+"%05d."+l.Ext)
}

// IndexPath is the dense-index name of frame i.
func (l Layout) IndexPath(i int) string {
	return filepath.Join(l.Dir, fmt.Sprintf("%s%05d.%s", l.Prefix, i, l.Ext))
}

// IndexGlob matches every dense-index file of the layout.
func (l Layout) IndexGlob() string {
	return filepath.Join(l.Dir, l.Prefix+"*."+l.Ext)
}

func (l Layout) ManifestPath() string {
	return filepath.Join(l.Dir, l.Manifest)
}

// Indexer presents an ordered set of images to the encoder as the input
// sequence it expects.
type Indexer interface {
	Name() string
	// Index creates the artifacts for images and returns the encoder input
	// arguments together with the paths it created.
	Index(fsys fsutil.FileSystem, images []Image) (args []string, created []string, err error)
}

// NewIndexer returns the indexer for mode. Auto resolves to symlinks on
// unix-like systems and to copies on windows.
func NewIndexer(mode string, l Layout) (Indexer, error) {
	if mode == config.IndexerAuto {
		mode = config.IndexerSymlink
		if runtime.GOOS == "windows" {
			mode = config.IndexerCopy
		}
	}
	switch mode {
	case config.IndexerSymlink:
		return &SymlinkIndexer{Layout: l}, nil
	case config.IndexerCopy:
		return &CopyIndexer{Layout: l}, nil
	case config.IndexerManifest:
		return &ManifestIndexer{Layout: l}, nil
	default:
		return nil, fmt.Errorf("unknown indexer %q", mode)
	}
}

func (l Layout) sequenceArgs() []string {
	return []string{"-framerate", strconv.Itoa(l.FrameRate), "-i", l.Pattern()}
}

// SymlinkIndexer links each dense name to its image with a relative symlink.
type SymlinkIndexer struct{ Layout Layout }

func (*SymlinkIndexer) Name() string { return config.IndexerSymlink }

func (x *SymlinkIndexer) Index(fsys fsutil.FileSystem, images []Image) ([]string, []string, error) {
	created := make([]string, 0, len(images))
	for _, img := range images {
		link := x.Layout.IndexPath(img.Index)
		if err := fsys.Symlink(filepath.Base(img.Path), link); err != nil {
			return nil, created, fmt.Errorf("link frame %d: %w", img.Index, err)
		}
		created = append(created, link)
	}
	return x.Layout.sequenceArgs(), created, nil
}

// CopyIndexer hard-links each image to its dense name and copies the bytes
// when the filesystem refuses the link.
type CopyIndexer struct{ Layout Layout }

func (*CopyIndexer) Name() string { return config.IndexerCopy }

func (x *CopyIndexer) Index(fsys fsutil.FileSystem, images []Image) ([]string, []string, error) {
	created := make([]string, 0, len(images))
	for _, img := range images {
		dst := x.Layout.IndexPath(img.Index)
		if err := linkOrCopy(fsys, img.Path, dst); err != nil {
			return nil, created, fmt.Errorf("copy frame %d: %w", img.Index, err)
		}
		created = append(created, dst)
	}
	return x.Layout.sequenceArgs(), created, nil
}

func linkOrCopy(fsys fsutil.FileSystem, src, dst string) error {
	err := fsys.Link(src, dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrExist) {
		return err
	}
	data, rerr := fsys.ReadFile(src)
	if rerr != nil {
		return rerr
	}
	return fsys.WriteFile(dst, data, 0644)
}

// ManifestIndexer writes an ffconcat manifest that lists the images in order
// with one frame duration each. No per-frame files are created.
type ManifestIndexer struct{ Layout Layout }

func (*ManifestIndexer) Name() string { return config.IndexerManifest }

func (x *ManifestIndexer) Index(fsys fsutil.FileSystem, images []Image) ([]string, []string, error) {
	path := x.Layout.ManifestPath()
	if err := fsys.WriteFile(path, []byte(Manifest(images, x.Layout.FrameRate)), 0644); err != nil {
		return nil, nil, fmt.Errorf("write manifest: %w", err)
	}
	return []string{"-f", "concat", "-safe", "0", "-i", path}, []string{path}, nil
}

// Manifest renders the ffconcat listing. Entries are relative to the
// manifest's directory. The last file is repeated so its duration applies.
func Manifest(images []Image, frameRate int) string {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	dur := strconv.FormatFloat(1/float64(frameRate), 'f', -1, 64)
	for _, img := range images {
		fmt.Fprintf(&b, "file %s\nduration %s\n", concatQuote(filepath.Base(img.Path)), dur)
	}
	if n := len(images); n > 0 {
		fmt.Fprintf(&b, "file %s\n", concatQuote(filepath.Base(images[n-1].Path)))
	}
	return b.String()
}

func concatQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
