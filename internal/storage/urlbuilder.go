package storage

import (
	"fmt"
	"regexp"
	"strings"
)

// BuildDeliveryURL assembles a Cloudinary-style delivery URL for assetID.
// Directive order is fixed and significant to the edge's parser: dimensions,
// then crop, then quality, then format. The crop directive is emitted only
// when at least one dimension is present and defaults to "fill"; quality and
// format default to "auto". The function is pure and never fails — malformed
// options simply drop out of the URL.
func BuildDeliveryURL(base, assetID string, opts TransformOptions) string {
	quality := opts.Quality
	if quality == "" {
		quality = "auto"
	}
	format := opts.Format
	if format == "" {
		format = "auto"
	}

	var dims []string
	if opts.Width > 0 {
		dims = append(dims, fmt.Sprintf("w_%d", opts.Width))
	}
	if opts.Height > 0 {
		dims = append(dims, fmt.Sprintf("h_%d", opts.Height))
	}

	var rest []string
	if len(dims) > 0 {
		crop := opts.Crop
		if crop == "" {
			crop = "fill"
		}
		rest = append(rest, "c_"+crop)
	}
	rest = append(rest, "q_"+quality, "f_"+format)

	var segments []string
	if len(dims) > 0 {
		segments = append(segments, strings.Join(dims, ","))
	}
	segments = append(segments, strings.Join(rest, ","))

	return strings.TrimRight(base, "/") + "/image/upload/" + strings.Join(segments, "/") + "/" + assetID
}

// assetIDPattern matches an optional version segment followed by the final
// path segment up to its extension.
var assetIDPattern = regexp.MustCompile(`/(?:v\d+/)?([^/]+?)(?:\.[A-Za-z0-9]+)?$`)

// AssetIDFromURL extracts the asset identifier from a delivery URL.
// It returns "" when the URL does not match the expected shape; callers that
// need a hard failure must check for the empty string themselves.
func AssetIDFromURL(rawURL string) string {
	m := assetIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}
