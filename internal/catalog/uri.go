package catalog

import "strings"

// PicturePlaceholder is the base address stored in seeded picture URIs.
const PicturePlaceholder = "http://catalogbaseurltobereplaced"

// Settings configures catalog access.
type Settings struct {
	CatalogBaseURL string `json:"catalogBaseUrl"`
}

// URIComposer rewrites stored picture URIs to the configured catalog host.
type URIComposer struct {
	base string
}

func NewURIComposer(s Settings) *URIComposer {
	return &URIComposer{base: strings.TrimRight(s.CatalogBaseURL, "/")}
}

// ComposePicURI replaces the placeholder host in uri.
func (c *URIComposer) ComposePicURI(uri string) string {
	return strings.ReplaceAll(uri, PicturePlaceholder, c.base)
}
