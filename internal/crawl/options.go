package crawl

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/jonesrussell/golibrary/internal/domain"
)

// HTTPOptions configures the HTTP crawler.
type HTTPOptions struct {
	// ServiceURL is the base URL of the external crawling service.
	ServiceURL string `mapstructure:"serviceUrl"`
}

// SMBOptions configures the SMB crawler connection.
type SMBOptions struct {
	Address  string `mapstructure:"address"`
	Share    string `mapstructure:"share"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Domain   string `mapstructure:"domain"`
}

// SharePointOptions configures SharePoint crawling. AuthCookies is the
// cookie header value obtained by the credentials flow.
type SharePointOptions struct {
	AuthCookies string `mapstructure:"authCookies"`

	// WindowWeeks is how many weeks back the crawler searches. Zero
	// means the default span.
	WindowWeeks int `mapstructure:"windowWeeks"`

	// BatchSize is the page size per list-items request.
	BatchSize int `mapstructure:"batchSize"`

	// MaxEmptyWindows stops the crawl after this many consecutive weeks
	// without files.
	MaxEmptyWindows int `mapstructure:"maxEmptyWindows"`
}

// Auth strategy names for the API crawler.
const (
	AuthNone   = "none"
	AuthAPIKey = "apiKey"
	AuthBearer = "bearer"
	AuthBasic  = "basic"
	AuthJWT    = "jwt"
)

// Pagination strategy names for the API crawler.
const (
	PaginationNone   = "none"
	PaginationPage   = "page"
	PaginationOffset = "offset"
)

// APIAuthOptions declares how the API crawler authenticates.
type APIAuthOptions struct {
	Type string `mapstructure:"type"`

	// apiKey
	HeaderName string `mapstructure:"headerName"`
	APIKey     string `mapstructure:"apiKey"`

	// bearer
	Token string `mapstructure:"token"`

	// basic
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// jwt: a service token signed per request batch
	JWTSecret     string `mapstructure:"jwtSecret"`
	JWTIssuer     string `mapstructure:"jwtIssuer"`
	JWTSubject    string `mapstructure:"jwtSubject"`
	JWTTTLSeconds int    `mapstructure:"jwtTtlSeconds"`
}

// APIPaginationOptions declares how the API crawler pages through results.
type APIPaginationOptions struct {
	Type string `mapstructure:"type"`

	PageParam     string `mapstructure:"pageParam"`
	PageSizeParam string `mapstructure:"pageSizeParam"`
	PageSize      int    `mapstructure:"pageSize"`

	OffsetParam string `mapstructure:"offsetParam"`
	LimitParam  string `mapstructure:"limitParam"`
}

// APIOptions configures the generic REST crawler.
type APIOptions struct {
	BaseURL  string            `mapstructure:"baseUrl"`
	Endpoint string            `mapstructure:"endpoint"`
	Headers  map[string]string `mapstructure:"headers"`

	Auth       APIAuthOptions       `mapstructure:"auth"`
	Pagination APIPaginationOptions `mapstructure:"pagination"`

	// DataPath is the dot path to the item array in responses; empty
	// tries common envelopes (data, items, results) then the root.
	DataPath string `mapstructure:"dataPath"`

	// TitleField and IdentifierField override the common-field probing
	// used to name items and build origin URIs.
	TitleField      string `mapstructure:"titleField"`
	IdentifierField string `mapstructure:"identifierField"`

	RequestDelayMs int `mapstructure:"requestDelayMs"`
}

// RequestDelay returns the configured inter-request delay.
func (o *APIOptions) RequestDelay() time.Duration {
	return time.Duration(o.RequestDelayMs) * time.Millisecond
}

// decodeOptions decodes a crawler's stored options map into a typed struct.
func decodeOptions(options domain.JSONBMap, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build options decoder: %w", err)
	}
	if err := decoder.Decode(map[string]any(options)); err != nil {
		return fmt.Errorf("failed to decode crawler options: %w", err)
	}
	return nil
}
