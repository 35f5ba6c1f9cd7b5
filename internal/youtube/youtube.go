// Package youtube downloads the audio and video streams of a video.
package youtube

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	yt "github.com/kkdai/youtube/v2"

	"codeberg.org/snonux/toolbelt/internal"
	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/logger"
)

// Source resolves videos and opens their streams
type Source interface {
	Video(ctx context.Context, url string) (*yt.Video, error)
	Stream(ctx context.Context, video *yt.Video, format *yt.Format) (io.ReadCloser, int64, error)
}

type clientSource struct {
	client *yt.Client
}

func (s *clientSource) Video(ctx context.Context, url string) (*yt.Video, error) {
	return s.client.GetVideoContext(ctx, url)
}

func (s *clientSource) Stream(ctx context.Context, video *yt.Video, format *yt.Format) (io.ReadCloser, int64, error) {
	return s.client.GetStreamContext(ctx, video, format)
}

// Result names the downloaded files (base names inside their dirs)
type Result struct {
	Title     string `json:"title"`
	AudioFile string `json:"audio_file"`
	VideoFile string `json:"video_file"`
}

// Downloader saves the first audio-only and first video-only stream
type Downloader struct {
	source   Source
	audioDir string
	videoDir string
}

// NewDownloader creates a downloader writing into audioDir and videoDir.
// A nil source uses the YouTube client.
func NewDownloader(source Source, audioDir, videoDir string) *Downloader {
	if source == nil {
		source = &clientSource{client: &yt.Client{}}
	}
	return &Downloader{source: source, audioDir: audioDir, videoDir: videoDir}
}

// Download fetches metadata and both streams
func (d *Downloader) Download(ctx context.Context, url string) (Result, error) {
	const op = "youtube.download"
	url = strings.TrimSpace(url)
	if url == "" {
		return Result{}, apperr.Invalid(op, "please enter a URL")
	}

	video, err := d.source.Video(ctx, url)
	if err != nil {
		return Result{}, apperr.Upstream(op, fmt.Errorf("failed to load video: %w", err))
	}

	audio := firstFormat(video.Formats, "audio/")
	if audio == nil {
		return Result{}, apperr.E(op, apperr.KindNotFound, fmt.Errorf("no audio stream found"))
	}
	audioFile, err := d.save(ctx, video, audio, d.audioDir)
	if err != nil {
		return Result{}, err
	}
	logger.L().Info("youtube.audio_saved", "title", video.Title, "file", audioFile)

	vid := firstFormat(video.Formats, "video/")
	if vid == nil {
		return Result{}, apperr.E(op, apperr.KindNotFound, fmt.Errorf("no video stream found"))
	}
	videoFile, err := d.save(ctx, video, vid, d.videoDir)
	if err != nil {
		return Result{}, err
	}
	logger.L().Info("youtube.video_saved", "title", video.Title, "file", videoFile)

	return Result{Title: video.Title, AudioFile: audioFile, VideoFile: videoFile}, nil
}

// firstFormat returns the first format whose mime type starts with kind
// and that carries only that kind of stream.
func firstFormat(formats yt.FormatList, kind string) *yt.Format {
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, kind) {
			continue
		}
		if kind == "video/" && f.AudioChannels > 0 {
			continue
		}
		return f
	}
	return nil
}

func (d *Downloader) save(ctx context.Context, video *yt.Video, format *yt.Format, dir string) (string, error) {
	const op = "youtube.save"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	name := FileName(video.Title, video.ID, format.MimeType)
	stream, _, err := d.source.Stream(ctx, video, format)
	if err != nil {
		return "", apperr.Upstream(op, fmt.Errorf("failed to open stream: %w", err))
	}
	defer stream.Close()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := io.Copy(f, stream); err != nil {
		f.Close()
		os.Remove(path)
		return "", apperr.Upstream(op, fmt.Errorf("download interrupted: %w", err))
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

// FileName builds "<title>_<id>.<ext>" from the stream mime type. The
// title is reduced to a plain file name and dropped when nothing is left;
// the video id keeps names of different videos apart.
func FileName(title, id, mimeType string) string {
	stem := internal.SecureFilename(title)
	if sid := internal.SecureFilename(id); sid != "" {
		if stem == "" {
			stem = sid
		} else {
			stem += "_" + sid
		}
	}
	if stem == "" {
		stem = "download"
	}
	return stem + "." + Extension(mimeType)
}

// Extension maps "audio/mp4; codecs=..." to "m4a", "video/webm" to "webm"
func Extension(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "bin"
	}
	switch mt {
	case "audio/mp4":
		return "m4a"
	case "audio/webm", "video/webm":
		return "webm"
	case "video/mp4":
		return "mp4"
	case "video/3gpp":
		return "3gp"
	}
	if i := strings.IndexByte(mt, '/'); i >= 0 {
		return mt[i+1:]
	}
	return "bin"
}
