package ffmpeg

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	releaseVersion = "6.1"
	releaseBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"
)

// platform suffix of the ffbinaries release asset
var platformAssets = map[string]string{
	"linux/amd64":   "linux-64",
	"linux/arm64":   "linux-arm-64",
	"darwin/amd64":  "macos-64",
	"windows/amd64": "win-64",
}

// bundle is one downloadable ffmpeg+ffprobe release archive.
type bundle struct {
	version string
	goos    string
	goarch  string
	asset   string
}

func bundleFor(goos, goarch string) (bundle, error) {
	platform, ok := platformAssets[goos+"/"+goarch]
	if !ok {
		return bundle{}, fmt.Errorf("unsupported platform for bundled ffmpeg: %s/%s", goos, goarch)
	}
	return bundle{
		version: releaseVersion,
		goos:    goos,
		goarch:  goarch,
		asset:   fmt.Sprintf("ffmpeg-%s-%s.zip", releaseVersion, platform),
	}, nil
}

func (b bundle) url() string {
	return fmt.Sprintf("%s/v%s/%s", releaseBaseURL, b.version, b.asset)
}

// install fills dir from the release archive unless it already holds both
// binaries. Concurrent runs sharing the cache wait on a lock file.
func (b bundle) install(dir string) (BinaryPaths, error) {
	paths := binaryPathsIn(dir)
	if paths.exist() {
		return paths, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return BinaryPaths{}, fmt.Errorf("create ffmpeg cache dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, ".lock"))
	if err := lock.Lock(); err != nil {
		return BinaryPaths{}, fmt.Errorf("lock ffmpeg cache dir: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	if paths.exist() {
		return paths, nil
	}

	archive, err := b.download()
	if err != nil {
		return BinaryPaths{}, err
	}
	defer func() { _ = os.Remove(archive) }()

	if err := unpack(archive, dir); err != nil {
		return BinaryPaths{}, fmt.Errorf("extract %s: %w", b.asset, err)
	}
	if !paths.exist() {
		return BinaryPaths{}, errors.New("ffmpeg binaries not found after extraction")
	}
	return paths, nil
}

// download saves the archive to a temp file and returns its path.
func (b bundle) download() (string, error) {
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Get(b.url())
	if err != nil {
		return "", fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download ffmpeg bundle: unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "trimsub-ffmpeg-*.zip")
	if err != nil {
		return "", fmt.Errorf("create temp archive: %w", err)
	}
	_, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write archive: %w", err)
	}
	return tmp.Name(), nil
}

// unpack copies the ffmpeg and ffprobe entries of a zip archive into dir,
// ignoring everything else and any directory prefix in the archive.
func unpack(archivePath, dir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open ffmpeg archive: %w", err)
	}
	defer func() { _ = zr.Close() }()

	missing := map[string]bool{}
	for _, tool := range tools {
		missing[tool.name] = true
	}

	for _, f := range zr.File {
		name := strings.TrimSuffix(strings.ToLower(filepath.Base(f.Name)), ".exe")
		if !missing[name] {
			continue
		}
		if err := unpackEntry(f, filepath.Join(dir, name+executableSuffix())); err != nil {
			return err
		}
		delete(missing, name)
	}

	if len(missing) > 0 {
		return errors.New("ffmpeg archive missing required binaries")
	}
	return nil
}

// unpackEntry writes f next to dest and renames it into place so a reader
// never sees a partial binary.
func unpackEntry(f *zip.File, dest string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open ffmpeg archive entry: %w", err)
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".partial-*")
	if err != nil {
		return fmt.Errorf("create ffmpeg binary: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	_, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return fmt.Errorf("write ffmpeg binary: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o755); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(dest), err)
	}
	return os.Rename(tmp.Name(), dest)
}
