package commands

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"galerie/internal/config"

	"github.com/h2non/filetype"
)

// headerSize is the number of leading bytes filetype needs to recognise a format.
const headerSize = 261

// Upload sends the image at path to a running server and prints the resulting URL.
// The content type is detected from the file contents.
func Upload(path string, cfg *config.Config, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return fmt.Errorf("could not detect the image type of %s", path)
	}
	if !filetype.IsImage(head[:n]) {
		return fmt.Errorf("%s is %s, not an image", path, kind.MIME.Value)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind %s: %w", path, err)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	resp, err := http.Post(baseURL+"/images", kind.MIME.Value, f)
	if err != nil {
		return fmt.Errorf("failed to call images API: %w. Is the server running?", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to upload image (Status: %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	_, err = fmt.Fprintf(out, "%s%s\n", baseURL, resp.Header.Get("Location"))
	return err
}
