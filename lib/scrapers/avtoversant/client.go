// Package avtoversant scrapes fuel purchase transactions out of the
// avtoversant fuel-card management portal.
package avtoversant

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"time"

	"fuelcard-backend/lib/restyutil"
	"fuelcard-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

const DefaultBaseUrl = "https://test-app.avtoversant.ru"

var ErrInvalidCredentials = fmt.Errorf("the portal rejected the provided login credentials")

type Credential struct {
	// overrides DefaultBaseUrl when set
	Url      string `json:"url"`
	Login    string `json:"login"`
	Password string `json:"password"`
	// contract identifiers whose transactions are retained,
	// empty means all contracts are accepted
	Contracts []string `json:"contracts"`
}

// ParseContracts turns the portal's comma separated contract list form
// ("001,003") into identifiers usable as a Credential whitelist.
func ParseContracts(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Credential) allowsContract(contract string) bool {
	if len(c.Contracts) == 0 {
		return true
	}
	return slices.Contains(c.Contracts, contract)
}

// Client owns the cookie-bearing session for one extraction run. It
// must not be shared across runs that use different credentials since
// the portal's authentication state is session-global.
type Client struct {
	Http *resty.Client

	credential Credential
	baseUrl    *url.URL
	stations   StationDirectory
}

func NewClient() (*Client, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/avtoversant/http")
	restyutil.InstrumentClient(client, restyInstrumentOutput)

	return &Client{Http: client}, nil
}

// Login performs the portal's AJAX signin handshake and establishes the
// session cookies every subsequent request depends on. Any non-200
// response is reported as ErrInvalidCredentials, the portal does not
// disambiguate further.
func (c *Client) Login(ctx context.Context, credential Credential) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	base := credential.Url
	if base == "" {
		base = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(base)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid portal base url")
		return err
	}
	c.Http.SetBaseURL(base)
	c.Http.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetHeader("X-Winter-Request-Handler", "onSignin").
		SetBody(map[string]any{
			"login":    credential.Login,
			"password": credential.Password,
			"remember": 1,
		}).
		Post("/account/login")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}
	if res.StatusCode() != http.StatusOK {
		span.SetStatus(codes.Error, ErrInvalidCredentials.Error())
		return ErrInvalidCredentials
	}

	c.credential = credential
	c.baseUrl = baseUrl
	return nil
}

func (c *Client) requireLogin() error {
	if c.baseUrl == nil {
		return fmt.Errorf("client is not authenticated, call Login first")
	}
	return nil
}
