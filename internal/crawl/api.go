package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonesrussell/golibrary/internal/filter"
	"github.com/jonesrussell/golibrary/internal/logger"
)

const (
	defaultPageSize  = 100
	defaultPageParam = "page"
	defaultSizeParam = "pageSize"
)

// Common fields probed when no identifier or title field is configured.
var (
	commonIdentifierFields = []string{"id", "uuid", "sku", "productNumber", "articleNumber", "code"}
	commonTitleFields      = []string{"name", "title", "label", "displayName", "subject", "heading"}

	unsafeFileNameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// apiItem is one decoded remote record.
type apiItem map[string]any

// APICrawler ingests records from a generic REST endpoint, rendering each as
// a markdown document. Unchanged content is detected by hash and skipped.
type APICrawler struct {
	client *http.Client
	saver  FileSaver
	filter *filter.Engine
	logger logger.Interface
}

// NewAPICrawler creates a generic REST crawler.
func NewAPICrawler(client *http.Client, saver FileSaver, log logger.Interface) *APICrawler {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &APICrawler{
		client: client,
		saver:  saver,
		filter: filter.NewEngine(log),
		logger: log.WithComponent("crawl.api"),
	}
}

// Crawl pages through the configured endpoint and yields one saved file per
// remote record, up to MaxPages records.
func (c *APICrawler) Crawl(ctx context.Context, target *Target) (*Iterator, error) {
	var opts APIOptions
	if err := decodeOptions(target.Options, &opts); err != nil {
		return nil, err
	}
	if opts.BaseURL == "" || opts.Endpoint == "" {
		return nil, fmt.Errorf("api crawler requires baseUrl and endpoint options")
	}

	c.logger.Info("started api crawl",
		"base_url", opts.BaseURL, "endpoint", opts.Endpoint, "max_pages", target.MaxPages)

	produce := func(ctx context.Context, yield func(*DiscoveredFile) bool) {
		c.run(ctx, target, &opts, yield)
	}
	return NewIterator(ctx, produce, nil), nil
}

func (c *APICrawler) run(ctx context.Context, target *Target, opts *APIOptions, yield func(*DiscoveredFile) bool) {
	count := 0
	skipped := 0

	err := c.paginate(ctx, opts, func(item apiItem) bool {
		if count >= target.MaxPages {
			return false
		}
		count++

		file := c.processItem(ctx, target, opts, item, count)
		if file.SkipProcessing {
			skipped++
		}
		return yield(file)
	})
	if err != nil {
		yield(&DiscoveredFile{Err: err})
		return
	}

	c.logger.Info("finished api crawl", "items", count, "skipped", skipped)
}

// paginate fetches pages per the configured strategy and feeds each item to
// handle until handle returns false or pages run out.
func (c *APICrawler) paginate(ctx context.Context, opts *APIOptions, handle func(apiItem) bool) error {
	pageSize := opts.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	pagType := opts.Pagination.Type
	if pagType == "" {
		pagType = PaginationPage
	}

	page := 1
	offset := 0

	for {
		params := url.Values{}
		switch pagType {
		case PaginationNone:
			// single request
		case PaginationPage:
			pageParam := opts.Pagination.PageParam
			if pageParam == "" {
				pageParam = defaultPageParam
			}
			sizeParam := opts.Pagination.PageSizeParam
			if sizeParam == "" {
				sizeParam = defaultSizeParam
			}
			params.Set(pageParam, strconv.Itoa(page))
			params.Set(sizeParam, strconv.Itoa(pageSize))
		case PaginationOffset:
			offsetParam := opts.Pagination.OffsetParam
			if offsetParam == "" {
				offsetParam = "offset"
			}
			limitParam := opts.Pagination.LimitParam
			if limitParam == "" {
				limitParam = "limit"
			}
			params.Set(offsetParam, strconv.Itoa(offset))
			params.Set(limitParam, strconv.Itoa(pageSize))
		default:
			return fmt.Errorf("unknown pagination strategy %q", pagType)
		}

		items, err := c.fetchPage(ctx, opts, params)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}

		for _, item := range items {
			if !handle(item) {
				return nil
			}
		}

		if pagType == PaginationNone || len(items) < pageSize {
			return nil
		}
		page++
		offset += len(items)

		if delay := opts.RequestDelay(); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
}

func (c *APICrawler) fetchPage(ctx context.Context, opts *APIOptions, params url.Values) ([]apiItem, error) {
	endpoint := opts.Endpoint
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	fetchURL := strings.TrimSuffix(opts.BaseURL, "/") + endpoint
	if encoded := params.Encode(); encoded != "" {
		fetchURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build api request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for name, value := range opts.Headers {
		req.Header.Set(name, value)
	}
	if err := applyAuth(req, &opts.Auth); err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api request failed: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read api response: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode api response: %w", err)
	}
	return extractItems(decoded, opts.DataPath), nil
}

// applyAuth sets request credentials per the declared strategy.
func applyAuth(req *http.Request, auth *APIAuthOptions) error {
	switch auth.Type {
	case "", AuthNone:
		return nil
	case AuthAPIKey:
		header := auth.HeaderName
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, auth.APIKey)
		return nil
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+auth.Token)
		return nil
	case AuthBasic:
		req.SetBasicAuth(auth.Username, auth.Password)
		return nil
	case AuthJWT:
		token, err := signServiceToken(auth)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	default:
		return fmt.Errorf("unknown auth strategy %q", auth.Type)
	}
}

// signServiceToken mints a short-lived HS256 token from the configured
// secret, for APIs that expect self-signed service JWTs.
func signServiceToken(auth *APIAuthOptions) (string, error) {
	if auth.JWTSecret == "" {
		return "", fmt.Errorf("jwt auth requires a jwtSecret option")
	}
	ttl := time.Duration(auth.JWTTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    auth.JWTIssuer,
		Subject:   auth.JWTSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(auth.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}

// extractItems pulls the item array out of a response: an explicit dot path
// when configured, otherwise the common envelopes (data, items, results)
// and finally the root itself.
func extractItems(decoded any, dataPath string) []apiItem {
	if dataPath != "" {
		decoded = nestedValue(decoded, dataPath)
	} else if obj, ok := decoded.(map[string]any); ok {
		for _, key := range []string{"data", "items", "results"} {
			if arr, found := obj[key].([]any); found {
				decoded = arr
				break
			}
		}
	}

	switch v := decoded.(type) {
	case []any:
		items := make([]apiItem, 0, len(v))
		for _, raw := range v {
			if item, ok := raw.(map[string]any); ok {
				items = append(items, item)
			}
		}
		return items
	case map[string]any:
		return []apiItem{v}
	default:
		return nil
	}
}

func nestedValue(obj any, path string) any {
	current := obj
	for part := range strings.SplitSeq(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

func (c *APICrawler) processItem(ctx context.Context, target *Target, opts *APIOptions, item apiItem, index int) *DiscoveredFile {
	title := itemTitle(item, opts.TitleField)
	originURI := itemOriginURI(item, opts)
	if originURI == "" {
		return &DiscoveredFile{Err: fmt.Errorf("api item %d has no identifier field", index)}
	}

	markdown := renderItemMarkdown(item, title)
	content := []byte(markdown)
	size := int64(len(content))
	hash := contentHash(content)

	safeName := strings.ToLower(unsafeFileNameChars.ReplaceAllString(title, "_"))
	if len(safeName) > 50 {
		safeName = safeName[:50]
	}
	if safeName == "" || strings.Trim(safeName, "_") == "" {
		safeName = fmt.Sprintf("api_item_%d", index)
	}

	if rec, allowed := evaluateFilter(ctx, c.filter, c.saver, c.logger, target,
		safeName+".md", originURI, size); !allowed {
		return rec
	}

	saved, err := c.saver.SaveCrawledFile(ctx, &SaveFileRequest{
		Name:        safeName + ".md",
		OriginURI:   originURI,
		LibraryID:   target.LibraryID,
		CrawlerID:   target.CrawlerID,
		MimeType:    "text/markdown",
		Size:        &size,
		Content:     content,
		ContentHash: &hash,
	})
	if err != nil {
		return &DiscoveredFile{Err: fmt.Errorf("failed to save api item %q: %w", title, err)}
	}

	if saved.SkipProcessing {
		return &DiscoveredFile{
			File:           saved.File,
			SkipProcessing: true,
			Hints:          fmt.Sprintf("api item %s skipped: unchanged content", saved.File.Name),
		}
	}
	verb := "created"
	if saved.WasUpdated {
		verb = "updated"
	}
	return &DiscoveredFile{
		File:       saved.File,
		WasUpdated: saved.WasUpdated,
		Hints:      fmt.Sprintf("api crawler %s item %s", verb, saved.File.Name),
	}
}

func itemTitle(item apiItem, titleField string) string {
	if titleField != "" {
		if s, ok := nestedValue(map[string]any(item), titleField).(string); ok && s != "" {
			return s
		}
	}
	for _, field := range commonTitleFields {
		if s, ok := item[field].(string); ok && s != "" {
			return s
		}
	}
	return "Item"
}

func itemOriginURI(item apiItem, opts *APIOptions) string {
	base := strings.TrimSuffix(opts.BaseURL, "/")
	endpoint := opts.Endpoint
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	if opts.IdentifierField != "" {
		if v := nestedValue(map[string]any(item), opts.IdentifierField); v != nil {
			return fmt.Sprintf("%s%s#%s=%s", base, endpoint, opts.IdentifierField, stringify(v))
		}
	}
	for _, field := range commonIdentifierFields {
		if v, ok := item[field]; ok && v != nil {
			return fmt.Sprintf("%s%s#%s=%s", base, endpoint, field, stringify(v))
		}
	}
	return ""
}

// renderItemMarkdown formats a record as a markdown document with one bullet
// per field, nested values as JSON blocks. Keys are sorted for stable
// content hashing.
func renderItemMarkdown(item apiItem, title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n## Data\n\n", title)

	keys := make([]string, 0, len(item))
	for key, value := range item {
		if value == nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := item[key]
		switch value.(type) {
		case map[string]any, []any:
			encoded, err := json.MarshalIndent(value, "", "  ")
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "- **%s:**\n```json\n%s\n```\n", key, encoded)
		default:
			fmt.Fprintf(&b, "- **%s:** %s\n", key, stringify(value))
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
