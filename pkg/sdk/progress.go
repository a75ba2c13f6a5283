package fedsearch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// maxEventBytes bounds one server-sent event line.
const maxEventBytes = 1 << 20

var errStreamEnded = errors.New("fedsearch: progress stream ended before the job finished")

// WatchProgress follows the ingestion job of a collection. The channel
// yields every snapshot the server pushes and is closed after the snapshot
// with Done set, when the stream breaks, or when ctx is done.
// It fails with ErrNotFound when the collection has no job.
func (c *Client) WatchProgress(ctx context.Context, format Format, collection string) (<-chan Progress, error) {
	start := time.Now()

	req, err := c.newRequest(ctx, http.MethodGet, nil, "upload-"+string(format), "progress", collection)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		c.obs.observe("progress", start, err)
		return nil, fmt.Errorf("watch progress of %s: %w", collection, err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := decodeError(resp)
		drain(resp.Body)
		c.obs.observe("progress", start, apiErr)
		return nil, fmt.Errorf("watch progress of %s: %w", collection, apiErr)
	}

	out := make(chan Progress)
	go func() {
		defer close(out)
		defer drain(resp.Body)
		err := readEvents(ctx, bufio.NewScanner(resp.Body), out)
		c.obs.observe("progress", start, err)
	}()
	return out, nil
}

// WaitProgress blocks until the job of a collection finishes and returns its
// final snapshot.
func (c *Client) WaitProgress(ctx context.Context, format Format, collection string) (Progress, error) {
	snaps, err := c.WatchProgress(ctx, format, collection)
	if err != nil {
		return Progress{}, err
	}
	var last Progress
	for p := range snaps {
		last = p
	}
	if !last.Done {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		return last, errStreamEnded
	}
	return last, nil
}

// readEvents parses "data:" lines into snapshots. Comment lines (heartbeats)
// and other fields are skipped.
func readEvents(ctx context.Context, sc *bufio.Scanner, out chan<- Progress) error {
	sc.Buffer(make([]byte, 0, 4096), maxEventBytes)

	var data bytes.Buffer
	for sc.Scan() {
		line := sc.Bytes()
		switch {
		case len(line) == 0:
			if data.Len() == 0 {
				continue
			}
			var p Progress
			if err := json.Unmarshal(data.Bytes(), &p); err != nil {
				return fmt.Errorf("decode progress event: %w", err)
			}
			data.Reset()

			select {
			case out <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
			if p.Done {
				return nil
			}
		case line[0] == ':':
		default:
			if v, ok := bytes.CutPrefix(line, []byte("data:")); ok {
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.Write(bytes.TrimPrefix(v, []byte(" ")))
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return errStreamEnded
}
