package audio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Synthesizer turns text into an audio file and returns its path
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice, opts Options) (string, error)
}

// Options are the prosody settings sent with each request
type Options struct {
	Rate  float64
	Pitch float64
}

const (
	ttsRequestTimeout = 10 * time.Second
	googleTTSURL      = "https://translate.google.com/translate_tts"
	ttsUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// GoogleTTS synthesizes speech with Google Translate's text-to-speech
// endpoint and caches the MP3 files on disk
type GoogleTTS struct {
	audioDir string
	baseURL  string
	client   *http.Client
}

// NewGoogleTTS creates a synthesizer that caches audio under audioDir
func NewGoogleTTS(audioDir string) *GoogleTTS {
	return &GoogleTTS{
		audioDir: audioDir,
		baseURL:  googleTTSURL,
		client:   &http.Client{Timeout: ttsRequestTimeout},
	}
}

// WithBaseURL points the synthesizer at another endpoint
func (g *GoogleTTS) WithBaseURL(baseURL string) *GoogleTTS {
	g.baseURL = baseURL
	return g
}

// CachePath returns where the audio for text in the given voice is stored
func (g *GoogleTTS) CachePath(text string, voice Voice, opts Options) string {
	key := fmt.Sprintf("%s:%s:%g:%g", voice.Lang, text, opts.Rate, opts.Pitch)
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(g.audioDir, hex.EncodeToString(sum[:])+".mp3")
}

// Synthesize returns the cached file for the text, fetching it first if needed
func (g *GoogleTTS) Synthesize(ctx context.Context, text string, voice Voice, opts Options) (string, error) {
	path := g.CachePath(text, voice, opts)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(g.audioDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}
	if err := g.fetch(ctx, text, voice, opts, path); err != nil {
		return "", fmt.Errorf("failed to generate audio: %w", err)
	}
	return path, nil
}

func (g *GoogleTTS) fetch(ctx context.Context, text string, voice Voice, opts Options, outputPath string) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", voice.Lang)
	params.Set("client", "tw-ob")
	params.Set("textlen", strconv.Itoa(len(text)))
	if opts.Rate > 0 && opts.Rate != 1 {
		params.Set("ttsspeed", strconv.FormatFloat(opts.Rate, 'f', -1, 64))
	}

	ctx, cancel := context.WithTimeout(ctx, ttsRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", ttsUserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Write to a temp file first so a cancelled download never leaves a
	// truncated file in the cache
	tmp, err := os.CreateTemp(g.audioDir, ".tts-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	return os.Rename(tmp.Name(), outputPath)
}
