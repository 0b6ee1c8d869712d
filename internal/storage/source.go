package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
)

// payload returns the request's image bytes plus a MIME type. In-memory data
// is used as-is; a source reference is resolved.
func payload(ctx context.Context, client *http.Client, req UploadRequest) ([]byte, string, error) {
	if len(req.Data) > 0 {
		mimeType := req.ContentType
		if mimeType == "" {
			mimeType = inferMIME("", req.FileName)
		}
		return req.Data, mimeType, nil
	}
	return resolveSource(ctx, client, req.Source, req.FileName)
}

// resolveSource turns a source reference into raw bytes plus a MIME type.
// A "data:" URI is decoded in memory; an http(s) URL is fetched; anything
// else is read from the local filesystem. For non-data references the MIME
// type is inferred from the trailing extension.
func resolveSource(ctx context.Context, client *http.Client, source, fileName string) ([]byte, string, error) {
	if strings.HasPrefix(source, "data:") {
		return decodeDataURI(source)
	}

	mimeType := inferMIME(source, fileName)

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err := fetchURL(ctx, client, source)
		if err != nil {
			return nil, "", err
		}
		return data, mimeType, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, "", &Error{Kind: KindNetwork, Msg: fmt.Sprintf("read source file %q", source), Err: err}
	}
	return data, mimeType, nil
}

// decodeDataURI parses "data:<mime>;base64,<payload>".
func decodeDataURI(uri string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, "", &Error{Kind: KindParse, Msg: "malformed data URI: missing comma"}
	}
	meta := strings.TrimPrefix(header, "data:")
	mimeType, encoding, _ := strings.Cut(meta, ";")
	if mimeType == "" {
		mimeType = "text/plain"
	}

	if encoding == "base64" {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", &Error{Kind: KindParse, Msg: "decode base64 data URI", Err: err}
		}
		return data, mimeType, nil
	}
	// Unencoded data URIs are legal, just rare for images.
	return []byte(payload), mimeType, nil
}

func fetchURL(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Msg: fmt.Sprintf("build request for %q", url), Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Msg: fmt.Sprintf("fetch source %q", url), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Kind:   KindNetwork,
			Status: resp.StatusCode,
			Msg:    fmt.Sprintf("fetch source %q: status %d", url, resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Msg: fmt.Sprintf("read source body for %q", url), Err: err}
	}
	return data, nil
}

// inferMIME derives an image MIME type from the reference's trailing
// extension, falling back to the display name's extension.
func inferMIME(source, fileName string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(source)), ".")
	if ext == "" {
		ext = strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), ".")
	}
	switch ext {
	case "":
		return "application/octet-stream"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "image/" + ext
	}
}
