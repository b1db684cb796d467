package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/desertthunder/mixtape/internal/shared"
)

// downloadChunkSize is the copy buffer size for streaming downloads.
const downloadChunkSize = 32 * 1024

// downloadToFile streams an HTTP response body to dest in fixed-size chunks.
// Progress is reported after each chunk as (bytesRead, totalBytes), with
// totalBytes -1 when the origin omits Content-Length. A partial file is
// removed on any failure so callers never observe a truncated download at
// dest. Cancellation via ctx takes effect at chunk boundaries.
func downloadToFile(ctx context.Context, client *http.Client, streamURL, dest, userAgent string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrDownloadFailed, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	total := resp.ContentLength // -1 when unknown
	var read int64
	buf := make([]byte, downloadChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			out.Close()
			os.Remove(dest)
			return err
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				out.Close()
				os.Remove(dest)
				return fmt.Errorf("failed to write file: %w", writeErr)
			}
			read += int64(n)
			if onProgress != nil {
				onProgress(read, total)
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			os.Remove(dest)
			return fmt.Errorf("%w: %v", shared.ErrDownloadFailed, readErr)
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if read == 0 {
		os.Remove(dest)
		return fmt.Errorf("%w: empty response body", shared.ErrDownloadFailed)
	}

	if total >= 0 && read < total {
		os.Remove(dest)
		return fmt.Errorf("%w: truncated response (%d of %d bytes)", shared.ErrDownloadFailed, read, total)
	}

	return nil
}
