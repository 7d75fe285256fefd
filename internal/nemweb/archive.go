package nemweb

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/nemfeed/internal/logging"
	"github.com/JonMunkholm/nemfeed/internal/table"
)

// FetchTable downloads the archive at archiveURL and parses its first entry.
//
// The response must carry one of the accepted content types; otherwise the
// body is not read. The archive is held in memory, capped at
// MaxArchiveBytes.
func (c *Client) FetchTable(ctx context.Context, archiveURL string) (*table.Table, error) {
	log := logging.WithFields(ctx, "archive", archiveURL)

	tbl, entry, err := c.fetchTable(ctx, archiveURL)
	if err != nil {
		log.Error("fetch archive failed", "error", err)
		return nil, err
	}

	log.Info("archive parsed", "entry", entry, "columns", len(tbl.Columns), "rows", tbl.Len())
	return tbl, nil
}

func (c *Client) fetchTable(ctx context.Context, archiveURL string) (*table.Table, string, error) {
	resp, err := c.get(ctx, archiveURL)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !acceptedType(ct, c.cfg.ContentTypes) {
		return nil, "", fmt.Errorf("GET %s: %w %q", archiveURL, ErrUnexpectedContentType, ct)
	}

	if resp.ContentLength > c.cfg.MaxArchiveBytes {
		return nil, "", fmt.Errorf("GET %s: %w: %d > %d bytes",
			archiveURL, ErrArchiveTooLarge, resp.ContentLength, c.cfg.MaxArchiveBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxArchiveBytes+1))
	if err != nil {
		return nil, "", transportError(archiveURL, err)
	}
	if int64(len(data)) > c.cfg.MaxArchiveBytes {
		return nil, "", fmt.Errorf("GET %s: %w: more than %d bytes",
			archiveURL, ErrArchiveTooLarge, c.cfg.MaxArchiveBytes)
	}

	return firstEntry(data, c.cfg.Layout)
}

// firstEntry parses the first file of a zip archive, whatever its name.
func firstEntry(data []byte, layout table.Layout) (*table.Table, string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMalformedArchive, err)
	}
	if len(zr.File) == 0 {
		return nil, "", ErrEmptyArchive
	}

	f := zr.File[0]
	rc, err := f.Open()
	if err != nil {
		return nil, f.Name, fmt.Errorf("%w: open %s: %w", ErrMalformedArchive, f.Name, err)
	}
	defer rc.Close()

	tbl, err := table.Parse(rc, table.WithLayout(layout))
	if err != nil {
		if errors.Is(err, table.ErrMalformed) {
			return nil, f.Name, fmt.Errorf("%s: %w", f.Name, err)
		}
		return nil, f.Name, fmt.Errorf("%w: read %s: %w", ErrMalformedArchive, f.Name, err)
	}
	return tbl, f.Name, nil
}

// acceptedType reports whether header contains any accepted type,
// ignoring case. An absent header is never accepted.
func acceptedType(header string, accepted []string) bool {
	if header == "" {
		return false
	}
	header = strings.ToLower(header)
	for _, t := range accepted {
		if t != "" && strings.Contains(header, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
