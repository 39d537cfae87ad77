// Package audio prepares media for transcription: probing, re-encoding
// and splitting into time-offset chunks.
package audio

import (
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Options selects the codec and layout of encoded audio.
type Options struct {
	Format     string // wav, mp3, aac or flac
	SampleRate int    // Hz
	Channels   int
	Bitrate    string // lossy formats only, e.g. "64k"
}

// DefaultCompressionOptions keeps uploads small: mono 16 kHz mp3 at 64k.
func DefaultCompressionOptions() Options {
	return Options{
		Format:     "mp3",
		SampleRate: 16000,
		Channels:   1,
		Bitrate:    "64k",
	}
}

type codec struct {
	name  string
	lossy bool
}

var codecs = map[string]codec{
	"mp3":  {"libmp3lame", true},
	"aac":  {"aac", true},
	"flac": {"flac", false},
	"wav":  {"pcm_s16le", false},
}

// KwArgs renders o as ffmpeg output arguments. Unknown formats fall back
// to 16-bit PCM.
func (o Options) KwArgs() ffmpeg.KwArgs {
	c, ok := codecs[o.Format]
	if !ok {
		c = codecs["wav"]
	}
	kwargs := ffmpeg.KwArgs{"vn": "", "acodec": c.name}
	if o.SampleRate > 0 {
		kwargs["ar"] = o.SampleRate
	}
	if o.Channels > 0 {
		kwargs["ac"] = o.Channels
	}
	if c.lossy && o.Bitrate != "" {
		kwargs["b:a"] = o.Bitrate
	}
	return kwargs
}

var (
	videoExts = extSet(".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm", ".m4v", ".mpeg", ".mpg", ".3gp")
	audioExts = extSet(".mp3", ".wav", ".aac", ".flac", ".ogg", ".m4a", ".wma", ".aiff")
)

func extSet(exts ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[e] = struct{}{}
	}
	return set
}

func hasExt(set map[string]struct{}, path string) bool {
	_, ok := set[strings.ToLower(filepath.Ext(path))]
	return ok
}

func IsVideoFile(path string) bool { return hasExt(videoExts, path) }

func IsAudioFile(path string) bool { return hasExt(audioExts, path) }

func IsMediaFile(path string) bool {
	return IsAudioFile(path) || IsVideoFile(path)
}
