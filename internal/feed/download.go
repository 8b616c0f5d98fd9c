package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// ErrDownload indicates the feed could not be fetched. The monitor treats
// it as a degraded cycle, never a fatal condition.
var ErrDownload = errors.New("feed download failed")

// Downloader fetches the raw CSV feed into a temp file. When LocalPath is
// set the file is copied instead of downloaded, which is how tests and
// offline runs drive the monitor.
type Downloader struct {
	url       string
	localPath string
	client    *http.Client
}

// NewDownloader creates a downloader for the given feed URL.
func NewDownloader(url string, timeout time.Duration) *Downloader {
	return &Downloader{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// NewLocalDownloader creates a downloader that copies a local file.
func NewLocalDownloader(path string) *Downloader {
	return &Downloader{localPath: path}
}

// SetLocalPath overrides the feed source with a local file path.
func (d *Downloader) SetLocalPath(path string) {
	d.localPath = path
}

// Fetch downloads the feed into a fresh temp file and returns its path.
// The caller owns the file and should remove it when done.
func (d *Downloader) Fetch(ctx context.Context) (string, error) {
	tmp, err := os.CreateTemp("", "inventory-*.csv")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if d.localPath != "" {
		if err := copyFile(d.localPath, tmp); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", fmt.Errorf("%w: %v", ErrDownload, err)
		}
		tmp.Close()
		return tmp.Name(), nil
	}

	if err := d.download(ctx, tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", ErrDownload, err)
	}
	tmp.Close()
	return tmp.Name(), nil
}

func (d *Downloader) download(ctx context.Context, dst io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return err
	}
	log.Printf("[Feed] Downloaded %d bytes from %s", n, d.url)
	return nil
}

func copyFile(src string, dst io.Writer) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	_, err = io.Copy(dst, in)
	return err
}
