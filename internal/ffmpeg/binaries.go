// Package ffmpeg locates the ffmpeg and ffprobe binaries and runs them.
//
// Binaries come from the TRIMSUB_FFMPEG_PATH and TRIMSUB_FFPROBE_PATH
// overrides, then PATH, then a per-user cache populated on first use.
package ffmpeg

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	EnvFFmpegPath  = "TRIMSUB_FFMPEG_PATH"
	EnvFFprobePath = "TRIMSUB_FFPROBE_PATH"
)

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

// tools pairs each binary with its override variable.
var tools = []struct {
	name string
	env  string
	set  func(*BinaryPaths, string)
}{
	{"ffmpeg", EnvFFmpegPath, func(p *BinaryPaths, v string) { p.FFmpeg = v }},
	{"ffprobe", EnvFFprobePath, func(p *BinaryPaths, v string) { p.FFprobe = v }},
}

var resolve = sync.OnceValues(func() (BinaryPaths, error) {
	if paths, ok := lookupInstalled(); ok {
		return paths, nil
	}
	b, err := bundleFor(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return BinaryPaths{}, err
	}
	return b.install(cacheDir(b))
})

// Ensure resolves both binaries once per process, downloading them into
// the user cache when neither the environment nor PATH provide them.
func Ensure() (BinaryPaths, error) {
	return resolve()
}

func FFmpegPath() (string, error) {
	paths, err := Ensure()
	return paths.FFmpeg, err
}

func FFprobePath() (string, error) {
	paths, err := Ensure()
	return paths.FFprobe, err
}

func lookupInstalled() (BinaryPaths, bool) {
	var paths BinaryPaths
	for _, tool := range tools {
		found := os.Getenv(tool.env)
		if found == "" {
			p, err := exec.LookPath(tool.name)
			if err != nil {
				return BinaryPaths{}, false
			}
			found = p
		}
		tool.set(&paths, found)
	}
	return paths, true
}

func cacheDir(b bundle) string {
	root, err := os.UserCacheDir()
	if err != nil || root == "" {
		root = os.TempDir()
	}
	return filepath.Join(root, "trimsub", "ffmpeg", b.version, b.goos, b.goarch)
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

func binaryPathsIn(dir string) BinaryPaths {
	var paths BinaryPaths
	for _, tool := range tools {
		tool.set(&paths, filepath.Join(dir, tool.name+executableSuffix()))
	}
	return paths
}

func (p BinaryPaths) exist() bool {
	return fileExists(p.FFmpeg) && fileExists(p.FFprobe)
}

// fileExists reports a non-empty regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
