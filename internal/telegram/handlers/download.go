package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/futig/formchat-backend/internal/entity"
)

const downloadTimeout = 30 * time.Second

// fileDownloader fetches files users send to the bot
type fileDownloader struct {
	api     API
	client  *http.Client
	maxSize int64
}

func newFileDownloader(api API, maxSize int64) *fileDownloader {
	return &fileDownloader{
		api:     api,
		client:  &http.Client{Timeout: downloadTimeout},
		maxSize: maxSize,
	}
}

func (d *fileDownloader) Download(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := d.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > d.maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", entity.ErrFileTooLarge, d.maxSize)
	}

	return data, nil
}
