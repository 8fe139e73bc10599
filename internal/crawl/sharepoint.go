package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/golibrary/internal/filter"
	"github.com/jonesrussell/golibrary/internal/logger"
)

// SharePoint window iteration defaults. Queries go one week at a time
// backward from now so each stays under the provider's list view threshold.
const (
	defaultWindowWeeks     = 104
	defaultBatchSize       = 100
	defaultMaxEmptyWindows = 3
)

// SharePointCrawler pages through a SharePoint document library via the
// REST API, iterating backward in weekly modification-date windows.
type SharePointCrawler struct {
	client *http.Client
	saver  FileSaver
	filter *filter.Engine
	logger logger.Interface
	now    func() time.Time
}

// NewSharePointCrawler creates a SharePoint crawler.
func NewSharePointCrawler(client *http.Client, saver FileSaver, log logger.Interface) *SharePointCrawler {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &SharePointCrawler{
		client: client,
		saver:  saver,
		filter: filter.NewEngine(log),
		logger: log.WithComponent("crawl.sharepoint"),
		now:    time.Now,
	}
}

// Crawl resolves the target document library and streams its files newest
// first. The crawl aborts only when the library cannot be resolved at all;
// a throttled window is abandoned in favor of the next one.
func (c *SharePointCrawler) Crawl(ctx context.Context, target *Target) (*Iterator, error) {
	var opts SharePointOptions
	if err := decodeOptions(target.Options, &opts); err != nil {
		return nil, err
	}
	if opts.AuthCookies == "" {
		return nil, fmt.Errorf("no sharepoint authentication found for crawler %s", target.CrawlerID)
	}
	if opts.WindowWeeks <= 0 {
		opts.WindowWeeks = defaultWindowWeeks
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxEmptyWindows <= 0 {
		opts.MaxEmptyWindows = defaultMaxEmptyWindows
	}

	site, err := parseSharePointURL(target.URI)
	if err != nil {
		return nil, err
	}

	libraries, err := c.discoverLibraries(ctx, site, opts.AuthCookies)
	if err != nil {
		return nil, err
	}
	library := findLibrary(libraries, site.libraryName)
	if library == nil {
		titles := make([]string, len(libraries))
		for i, lib := range libraries {
			titles[i] = lib.Title
		}
		return nil, fmt.Errorf("library %q not found, available libraries: %s",
			site.libraryName, strings.Join(titles, ", "))
	}

	c.logger.Info("started sharepoint crawl",
		"uri", target.URI, "library", library.Title, "items", library.ItemCount)

	produce := func(ctx context.Context, yield func(*DiscoveredFile) bool) {
		c.run(ctx, target, &opts, site, library, yield)
	}
	return NewIterator(ctx, produce, nil), nil
}

func (c *SharePointCrawler) run(
	ctx context.Context,
	target *Target,
	opts *SharePointOptions,
	site *sharePointSite,
	library *SharePointList,
	yield func(*DiscoveredFile) bool,
) {
	processed := 0
	emptyWindows := 0
	now := c.now()

	for week := 0; week < opts.WindowWeeks && processed < target.MaxPages; week++ {
		windowEnd := now.AddDate(0, 0, -7*week)
		windowStart := windowEnd.AddDate(0, 0, -7)

		found, throttled := c.crawlWindow(ctx, target, opts, site, library, windowStart, windowEnd, &processed, yield)
		if ctx.Err() != nil {
			return
		}
		if throttled {
			c.logger.Warn("sharepoint throttled, skipping window",
				"window_start", windowStart.Format(time.DateOnly))
			continue
		}
		if found {
			emptyWindows = 0
			continue
		}
		emptyWindows++
		if emptyWindows >= opts.MaxEmptyWindows {
			c.logger.Info("stopping after consecutive empty windows", "windows", emptyWindows)
			return
		}
	}

	c.logger.Info("finished sharepoint crawl", "processed", processed)
}

// crawlWindow pages through one modification-date window. It reports whether
// any file was found and whether the window was abandoned for throttling.
func (c *SharePointCrawler) crawlWindow(
	ctx context.Context,
	target *Target,
	opts *SharePointOptions,
	site *sharePointSite,
	library *SharePointList,
	windowStart, windowEnd time.Time,
	processed *int,
	yield func(*DiscoveredFile) bool,
) (found, throttled bool) {
	query := url.Values{}
	query.Set("$select", "ID,Title,FileLeafRef,Modified,FileRef,File/ServerRelativeUrl,File/Length")
	query.Set("$expand", "File")
	query.Set("$filter", fmt.Sprintf("FSObjType eq 0 and Modified ge datetime'%s' and Modified le datetime'%s'",
		windowStart.UTC().Format(time.RFC3339), windowEnd.UTC().Format(time.RFC3339)))
	query.Set("$top", strconv.Itoa(opts.BatchSize))
	query.Set("$orderby", "Modified desc")

	currentURL := fmt.Sprintf("%s/web/lists/getbytitle('%s')/items?%s",
		site.apiURL, url.PathEscape(library.Title), query.Encode())

	for currentURL != "" && *processed < target.MaxPages {
		if ctx.Err() != nil {
			return found, false
		}

		body, err := c.get(ctx, currentURL, opts.AuthCookies)
		if err != nil {
			var spErr *sharePointError
			if errors.As(err, &spErr) && spErr.isThrottled() {
				return found, true
			}
			yield(&DiscoveredFile{Err: fmt.Errorf("sharepoint items request failed: %w", err)})
			return found, false
		}

		var page odataItemsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			yield(&DiscoveredFile{Err: fmt.Errorf("failed to decode sharepoint items: %w", err)})
			return found, false
		}
		if len(page.D.Results) == 0 {
			return found, false
		}
		found = true

		for i := range page.D.Results {
			if *processed >= target.MaxPages {
				return found, false
			}
			*processed++
			if !yield(c.processItem(ctx, target, opts, site, &page.D.Results[i])) {
				return found, false
			}
		}

		currentURL = page.D.Next
	}

	return found, false
}

func (c *SharePointCrawler) processItem(
	ctx context.Context,
	target *Target,
	opts *SharePointOptions,
	site *sharePointSite,
	item *sharePointItem,
) *DiscoveredFile {
	fileName := item.FileLeafRef
	if fileName == "" {
		fileName = item.Title
	}
	if fileName == "" {
		fileName = fmt.Sprintf("Item_%d", item.ID)
	}

	originURI := site.apiURL + item.FileRef
	mimeType := filter.MimeTypeFromExtension(fileName)

	var size int64
	serverRelativeURL := item.FileRef
	if item.File != nil {
		if item.File.ServerRelativeUrl != "" {
			serverRelativeURL = item.File.ServerRelativeUrl
		}
		// Length arrives as a string in the verbose format.
		size, _ = strconv.ParseInt(item.File.Length, 10, 64)
	}

	var modifiedAt *time.Time
	if ts, err := time.Parse(time.RFC3339, item.Modified); err == nil {
		modifiedAt = &ts
	}

	if rec, allowed := evaluateFilter(ctx, c.filter, c.saver, c.logger, target,
		fileName, originURI, size); !allowed {
		return rec
	}

	if size > maxProcessableSize {
		processingError := fmt.Sprintf("File too large: %s exceeds the %s limit",
			filter.FormatSize(size), filter.FormatSize(maxProcessableSize))
		saved, err := c.saver.SaveCrawledFile(ctx, &SaveFileRequest{
			Name:            fileName,
			OriginURI:       originURI,
			LibraryID:       target.LibraryID,
			CrawlerID:       target.CrawlerID,
			MimeType:        mimeType,
			Size:            &size,
			ModifiedAt:      modifiedAt,
			ProcessingError: &processingError,
		})
		if err != nil {
			return &DiscoveredFile{Err: fmt.Errorf("failed to save oversized file %s: %w", originURI, err)}
		}
		return &DiscoveredFile{
			File:  saved.File,
			Hints: fmt.Sprintf("sharepoint file %s recorded without content: size limit", fileName),
		}
	}

	content, err := c.download(ctx, site, opts.AuthCookies, serverRelativeURL)
	if err != nil {
		return &DiscoveredFile{Err: fmt.Errorf("failed to download sharepoint file %s: %w", fileName, err)}
	}

	hash := contentHash(content)
	saved, err := c.saver.SaveCrawledFile(ctx, &SaveFileRequest{
		Name:        fileName,
		OriginURI:   originURI,
		LibraryID:   target.LibraryID,
		CrawlerID:   target.CrawlerID,
		MimeType:    mimeType,
		Size:        &size,
		ModifiedAt:  modifiedAt,
		Content:     content,
		ContentHash: &hash,
	})
	if err != nil {
		return &DiscoveredFile{Err: fmt.Errorf("failed to save sharepoint file %s: %w", originURI, err)}
	}

	return &DiscoveredFile{
		File:           saved.File,
		SkipProcessing: saved.SkipProcessing,
		WasUpdated:     saved.WasUpdated,
		Hints:          fmt.Sprintf("sharepoint crawler saved file %s", fileName),
	}
}

// download fetches a file body through the getfilebyserverrelativeurl
// endpoint. No HTML sniffing here: file bodies may legitimately start
// with markup.
func (c *SharePointCrawler) download(ctx context.Context, site *sharePointSite, cookies, serverRelativeURL string) ([]byte, error) {
	fileURL := fmt.Sprintf("%s/_api/web/getfilebyserverrelativeurl('%s')/$value",
		site.siteURL, url.PathEscape(serverRelativeURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", cookies)
	req.Header.Set("User-Agent", sharePointUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("sharepoint download authentication failed (%d), refresh the stored cookies", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download sharepoint file: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
