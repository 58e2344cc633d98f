// Package console is the session handle for the Alert Logic web console. It
// owns the logged-in HTTP session and hands raw page text to the event
// assembler, it does not interpret event pages itself.
package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"alertlogic-events/internal/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("alertlogic-events/internal/console")

const (
	report_client_login                = "client.login"
	report_client_fetch_event_page     = "client.fetch-event-page"
	report_client_fetch_signature_page = "client.fetch-signature-page"
)

const DefaultBaseUrl = "https://console.clouddefender.alertlogic.com"

var (
	ErrLoginFailed      = errors.New("failed to login to the console")
	ErrNotAuthenticated = errors.New("console session is not authenticated")
)

type ClientOptions struct {
	BaseUrl string
	// CloudflareBypass wraps the transport with browser-like TLS settings and headers.
	CloudflareBypass bool
	// RequestsPerSecond defaults to 2.
	RequestsPerSecond float64
	// DumpOutput receives full HTTP exchanges when set.
	DumpOutput telemetry.InstrumentOutput
}

// Client is an explicitly passed session handle, its lifetime is controlled
// by the caller. It is safe for concurrent use once logged in.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	tel telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	tel = telemetry.NewScopedAPI("console", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	httpClient.SetTimeout(time.Second * 30)

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(rate.Limit(rps), 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel, opts.DumpOutput)

	return &Client{
		BaseUrl: baseUrl,
		Http:    httpClient,
		tel:     tel,
	}, nil
}

// isLoginPage reports whether the document still asks for a password.
func isLoginPage(doc *goquery.Document) bool {
	return doc.Find(`input[type=password]`).Length() > 0
}

func parse(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewBuffer(body))
}

// Login authenticates the session with the console login form. Hidden
// inputs of the form (csrf tokens and the like) are sent back untouched.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	loginError := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return fmt.Errorf("console: login: %w", err)
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/login.php")
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("login page request: %w", err))
		return loginError(err)
	}
	doc, err := parse(res.Body())
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("parse login page: %w", err))
		return loginError(err)
	}

	form := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(`input[type=password]`).Length() > 0
	}).First()
	if form.Length() == 0 {
		err := fmt.Errorf("could not find login form")
		c.tel.ReportBroken(report_client_login, err)
		return loginError(err)
	}

	fields := map[string]string{}
	usernameField := "username"
	passwordField := "password"
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		switch input.AttrOr("type", "text") {
		case "password":
			passwordField = name
		case "text", "email":
			usernameField = name
		case "submit", "button", "checkbox":
		default:
			fields[name] = input.AttrOr("value", "")
		}
	})
	fields[usernameField] = username
	fields[passwordField] = password

	action := form.AttrOr("action", "")
	if action == "" {
		action = "/login.php"
	}
	actionUrl, err := res.RawResponse.Request.URL.Parse(action)
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("resolve form action: %w", err), action)
		return loginError(err)
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(fields).
		Post(actionUrl.String())
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("login request: %w", err))
		return loginError(err)
	}
	doc, err = parse(res.Body())
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("parse login response: %w", err))
		return loginError(err)
	}
	if res.StatusCode() >= 400 || isLoginPage(doc) {
		c.tel.ReportWarning(report_client_login, "login rejected", res.StatusCode())
		return loginError(ErrLoginFailed)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// EventURL is the console page of a single event.
func (c *Client) EventURL(eventID, customerID string) string {
	endpoint := c.BaseUrl.JoinPath("event.php")
	query := url.Values{}
	query.Set("id", eventID)
	query.Set("customer_id", customerID)
	query.Set("screen", "event_monitor")
	query.Set("filter_id", "0")
	endpoint.RawQuery = query.Encode()
	return endpoint.String()
}

// SignatureURL is the console page describing a signature id.
func (c *Client) SignatureURL(sid string) string {
	endpoint := c.BaseUrl.JoinPath("signature.php")
	endpoint.RawQuery = url.Values{"sid": {sid}}.Encode()
	return endpoint.String()
}

func (c *Client) fetch(ctx context.Context, reportId, endpoint string) (int, string, error) {
	ctx, span := tracer.Start(ctx, reportId)
	defer span.End()
	span.SetAttributes(attribute.String("url", endpoint))

	res, err := c.Http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.tel.ReportBroken(reportId, fmt.Errorf("fetch: %w", err), endpoint)
		return 0, "", err
	}
	body := res.String()

	if res.StatusCode() == 200 {
		doc, err := parse(res.Body())
		if err == nil && isLoginPage(doc) {
			span.SetStatus(codes.Error, "session expired")
			c.tel.ReportWarning(reportId, "redirected to login", endpoint)
			return res.StatusCode(), body, ErrNotAuthenticated
		}
	}
	return res.StatusCode(), body, nil
}

// FetchEventPage returns the status code and raw text of an event page.
func (c *Client) FetchEventPage(ctx context.Context, eventID, customerID string) (int, string, error) {
	return c.fetch(ctx, report_client_fetch_event_page, c.EventURL(eventID, customerID))
}

// FetchSignaturePage returns the status code and raw text of a signature page.
func (c *Client) FetchSignaturePage(ctx context.Context, sid string) (int, string, error) {
	return c.fetch(ctx, report_client_fetch_signature_page, c.SignatureURL(sid))
}
