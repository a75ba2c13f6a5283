package fedsearch

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"
)

// UploadCSV streams a CSV file to the collection and returns once the server
// has accepted it. Ingestion continues on the server; follow it with
// WatchProgress. The call is bounded by ctx only, not by WithTimeout.
func (c *Client) UploadCSV(
	ctx context.Context, collection, filename string, file io.Reader, opts CSVOptions,
) (UploadJob, error) {
	fields := map[string]string{}
	if opts.Delimiter != "" {
		fields["delimiter"] = string(opts.Delimiter)
	}
	if opts.Encoding != "" {
		fields["encoding"] = opts.Encoding
	}
	return c.upload(ctx, FormatCSV, collection, filename, file, fields)
}

// UploadJSON streams a JSON file to the collection. See UploadCSV.
func (c *Client) UploadJSON(
	ctx context.Context, collection, filename string, file io.Reader, opts JSONOptions,
) (UploadJob, error) {
	fields := map[string]string{}
	if opts.Encoding != "" {
		fields["encoding"] = opts.Encoding
	}
	if opts.RootPath != "" {
		fields["rootPath"] = opts.RootPath
	}
	if opts.BatchSize > 0 {
		fields["batchSize"] = strconv.Itoa(opts.BatchSize)
	}
	if len(opts.PathMappings) > 0 {
		raw, err := json.Marshal(opts.PathMappings)
		if err != nil {
			return UploadJob{}, fmt.Errorf("encode path mappings: %w", err)
		}
		fields["pathMappings"] = string(raw)
	}
	return c.upload(ctx, FormatJSON, collection, filename, file, fields)
}

var uploadParts = map[Format]struct{ field, contentType string }{
	FormatCSV:  {field: "csvFile", contentType: "text/csv"},
	FormatJSON: {field: "jsonFile", contentType: "application/json"},
}

func (c *Client) upload(
	ctx context.Context, format Format, collection, filename string, file io.Reader, fields map[string]string,
) (job UploadJob, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload_"+string(format), start, err) }()

	if collection == "" {
		return UploadJob{}, fmt.Errorf("%w: collection is required", ErrInvalidRequest)
	}
	part := uploadParts[format]

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, part.field, part.contentType, filename, file, fields))
	}()
	defer pr.Close()

	req, err := c.newRequest(ctx, http.MethodPost, pr, "upload-"+string(format), collection)
	if err != nil {
		return UploadJob{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if err := c.doJSON(req, http.StatusAccepted, &job); err != nil {
		return UploadJob{}, fmt.Errorf("upload %s to %s: %w", format, collection, err)
	}
	return job, nil
}

// writeMultipart writes option fields before the file so the server sees
// them without buffering the file.
func writeMultipart(
	mw *multipart.Writer, field, contentType, filename string, file io.Reader, fields map[string]string,
) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", multipart.FileContentDisposition(field, filename))
	h.Set("Content-Type", contentType)
	w, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, file); err != nil {
		return fmt.Errorf("read upload file: %w", err)
	}
	return mw.Close()
}
