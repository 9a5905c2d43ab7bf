package httpclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/omarluq/storefront/internal/config"
	"github.com/omarluq/storefront/internal/identity"
	"github.com/omarluq/storefront/internal/web"
)

// RequestIDHeaderName is sent on writes so the receiver can deduplicate them.
const RequestIDHeaderName = "x-requestid"

// RequestIDHandler stamps POST and PUT requests with the current request id,
// or a new UUID outside a request.
type RequestIDHandler struct{}

func NewRequestIDHandler() *RequestIDHandler { return &RequestIDHandler{} }

func (h *RequestIDHandler) Wrap(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && r.Header.Get(RequestIDHeaderName) == "" {
			id := web.GetRequestID(r.Context())
			if id == "" {
				id = uuid.NewString()
			}
			r = r.Clone(r.Context())
			r.Header.Set(RequestIDHeaderName, id)
		}
		return next.RoundTrip(r)
	})
}

// AuthorizationHandler authorizes outbound calls according to its mode.
type AuthorizationHandler struct {
	tokens  oauth2.TokenSource
	creds   aws.CredentialsProvider
	signer  *v4.Signer
	now     func() time.Time
	mode    string
	region  string
	service string
}

// NewAuthorizationHandler builds the handler for cfg. sigv4 without static
// keys uses the AWS default credential chain.
func NewAuthorizationHandler(ctx context.Context, cfg config.OutboundAuthConfig) (*AuthorizationHandler, error) {
	h := &AuthorizationHandler{mode: cfg.EffectiveMode(), now: time.Now}
	switch h.mode {
	case config.AuthModeClientCredentials:
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		h.tokens = cc.TokenSource(context.WithoutCancel(ctx))
	case config.AuthModeSigV4:
		h.region, h.service = cfg.AWSRegion, cfg.AWSService
		if h.service == "" {
			h.service = "execute-api"
		}
		h.signer = v4.NewSigner()
		if cfg.AWSAccessKeyID != "" {
			static := aws.Credentials{AccessKeyID: cfg.AWSAccessKeyID, SecretAccessKey: cfg.AWSSecretAccessKey}
			h.creds = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) { return static, nil })
			break
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("httpclient: load AWS config: %w", err)
		}
		h.creds = awsCfg.Credentials
	}
	return h, nil
}

// NewTokenAuthorizationHandler uses ts for client_credentials style auth.
func NewTokenAuthorizationHandler(ts oauth2.TokenSource) *AuthorizationHandler {
	return &AuthorizationHandler{mode: config.AuthModeClientCredentials, tokens: ts, now: time.Now}
}

func (h *AuthorizationHandler) Mode() string { return h.mode }

func (h *AuthorizationHandler) Wrap(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		r, err := h.authorize(r)
		if err != nil {
			return nil, err
		}
		return next.RoundTrip(r)
	})
}

func (h *AuthorizationHandler) authorize(r *http.Request) (*http.Request, error) {
	switch h.mode {
	case config.AuthModeForward:
		token := identity.PrincipalFrom(r.Context()).Token
		if token == "" {
			return r, nil
		}
		r = r.Clone(r.Context())
		r.Header.Set("Authorization", "Bearer "+token)
	case config.AuthModeClientCredentials:
		tok, err := h.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("httpclient: fetch access token: %w", err)
		}
		r = r.Clone(r.Context())
		tok.SetAuthHeader(r)
	case config.AuthModeSigV4:
		return h.sign(r)
	}
	return r, nil
}

func (h *AuthorizationHandler) sign(r *http.Request) (*http.Request, error) {
	ctx := r.Context()
	creds, err := h.creds.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("httpclient: retrieve AWS credentials: %w", err)
	}

	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: read body for signing: %w", err)
		}
		_ = r.Body.Close()
	}
	sum := sha256.Sum256(body)

	r = r.Clone(ctx)
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
	if err := h.signer.SignHTTP(ctx, creds, r, hex.EncodeToString(sum[:]), h.service, h.region, h.now()); err != nil {
		return nil, fmt.Errorf("httpclient: sign request: %w", err)
	}
	return r, nil
}
