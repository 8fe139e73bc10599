package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// baseTemplateDocumentLibrary is the SharePoint list template for document
// libraries.
const baseTemplateDocumentLibrary = 101

const sharePointUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// SharePointList is one list discovered on a site.
type SharePointList struct {
	ID           string
	Title        string
	BaseTemplate int
	ItemCount    int
	Hidden       bool
}

// IsDocumentLibrary reports whether the list is a visible document library.
func (l *SharePointList) IsDocumentLibrary() bool {
	return l.BaseTemplate == baseTemplateDocumentLibrary && !l.Hidden
}

// odata envelope types for the verbose JSON format.
type odataListsResponse struct {
	D struct {
		Results []struct {
			ID           string `json:"Id"`
			Title        string `json:"Title"`
			BaseTemplate int    `json:"BaseTemplate"`
			ItemCount    int    `json:"ItemCount"`
			Hidden       bool   `json:"Hidden"`
		} `json:"results"`
	} `json:"d"`
}

type odataItemsResponse struct {
	D struct {
		Results []sharePointItem `json:"results"`
		Next    string           `json:"__next"`
	} `json:"d"`
}

type sharePointItem struct {
	ID          int    `json:"ID"`
	Title       string `json:"Title"`
	FileLeafRef string `json:"FileLeafRef"`
	Modified    string `json:"Modified"`
	FileRef     string `json:"FileRef"`
	File        *struct {
		ServerRelativeUrl string `json:"ServerRelativeUrl"`
		Length            string `json:"Length"`
	} `json:"File"`
}

// sharePointSite is a parsed crawl target: the site root, its REST endpoint,
// and the document library name taken from the last path segment.
type sharePointSite struct {
	siteURL     string
	apiURL      string
	libraryName string
}

func parseSharePointURL(uri string) (*sharePointSite, error) {
	clean := strings.TrimSuffix(uri, "/")
	schemeEnd := strings.Index(clean, "://")
	if schemeEnd < 0 {
		return nil, fmt.Errorf("invalid sharepoint url %q", uri)
	}
	rest := clean[schemeEnd+3:]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return nil, fmt.Errorf("sharepoint url %q has no library path", uri)
	}

	host := rest[:slash]
	parts := strings.Split(strings.Trim(rest[slash:], "/"), "/")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return nil, fmt.Errorf("sharepoint url %q has no library path", uri)
	}

	siteURL := clean[:schemeEnd+3] + host
	return &sharePointSite{
		siteURL:     siteURL,
		apiURL:      siteURL + "/_api",
		libraryName: parts[len(parts)-1],
	}, nil
}

// discoverLibraries lists the site's visible document libraries.
func (c *SharePointCrawler) discoverLibraries(ctx context.Context, site *sharePointSite, cookies string) ([]*SharePointList, error) {
	listsURL := site.apiURL + "/web/lists?$select=Id,Title,BaseTemplate,ItemCount,Hidden&$orderby=Title"

	body, err := c.get(ctx, listsURL, cookies)
	if err != nil {
		return nil, fmt.Errorf("failed to discover sharepoint lists: %w", err)
	}

	var decoded odataListsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode sharepoint lists response: %w", err)
	}

	var libraries []*SharePointList
	for _, raw := range decoded.D.Results {
		list := &SharePointList{
			ID:           raw.ID,
			Title:        raw.Title,
			BaseTemplate: raw.BaseTemplate,
			ItemCount:    raw.ItemCount,
			Hidden:       raw.Hidden,
		}
		if list.IsDocumentLibrary() {
			libraries = append(libraries, list)
		}
	}
	return libraries, nil
}

// findLibrary matches the target library by case-insensitive title.
func findLibrary(libraries []*SharePointList, name string) *SharePointList {
	for _, lib := range libraries {
		if strings.EqualFold(lib.Title, name) {
			return lib
		}
	}
	return nil
}

// get runs an authenticated GET and returns the body. An HTML body signals
// expired cookies and is reported as an authentication failure.
func (c *SharePointCrawler) get(ctx context.Context, rawURL, cookies string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json;odata=verbose")
	req.Header.Set("Cookie", cookies)
	req.Header.Set("User-Agent", sharePointUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("sharepoint authentication failed (%d), refresh the stored cookies", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return body, &sharePointError{status: resp.StatusCode, body: string(body)}
	}
	if strings.HasPrefix(strings.TrimSpace(string(body)), "<") {
		return nil, fmt.Errorf("sharepoint returned HTML instead of JSON, refresh the stored cookies")
	}
	return body, nil
}

// sharePointError carries the status and body of a failed REST call so the
// caller can detect throttling.
type sharePointError struct {
	status int
	body   string
}

func (e *sharePointError) Error() string {
	return fmt.Sprintf("sharepoint request failed: %d", e.status)
}

// isThrottled reports whether the error is a SharePoint throttling response.
func (e *sharePointError) isThrottled() bool {
	if e.status == http.StatusTooManyRequests {
		return true
	}
	return e.status == http.StatusInternalServerError && strings.Contains(e.body, "SPQueryThrottledException")
}
