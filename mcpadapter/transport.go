package mcpadapter

import (
	"context"
	"net/url"
	"os"
	"regexp"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcptransport "github.com/mark3labs/mcp-go/client/transport"

	"goa.design/llmcore/errs"
)

var envTemplate = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteEnv expands "${VAR}" templates in an env entry's value against
// the host environment, per spec.md §4.8's stdio transport rule.
func substituteEnv(entry string) string {
	return envTemplate.ReplaceAllStringFunc(entry, func(m string) string {
		name := envTemplate.FindStringSubmatch(m)[1]
		return os.Getenv(name)
	})
}

// buildEnv resolves a ServerConfig's Env entries and always passes PATH
// through from the host environment, per spec.md §4.8.
func buildEnv(cfg ServerConfig) []string {
	env := make([]string, 0, len(cfg.Env)+1)
	for _, e := range cfg.Env {
		env = append(env, substituteEnv(e))
	}
	if path, ok := os.LookupEnv("PATH"); ok {
		env = append(env, "PATH="+path)
	}
	return env
}

// connect performs transport selection and handshake for one server,
// returning a connected mcpClient, the transport kind actually used, and
// (for an HTTP transport configured with OAuth) the handler CompleteAuthentication
// drives once the caller has a redirect code in hand.
func connect(ctx context.Context, cfg ServerConfig) (mcpClient, string, oauthHandler, error) {
	switch {
	case cfg.Command != "":
		c, transport, err := connectStdio(ctx, cfg)
		return c, transport, nil, err
	case cfg.URL != "":
		return connectHTTP(ctx, cfg)
	default:
		return nil, "", nil, errs.New(errs.KindMCPConnection, "mcpadapter.connect",
			"server "+cfg.Key+" has neither command nor url configured")
	}
}

func connectStdio(ctx context.Context, cfg ServerConfig) (mcpClient, string, error) {
	c, err := mcpclient.NewStdioMCPClient(cfg.Command, buildEnv(cfg), cfg.Args...)
	if err != nil {
		return nil, "", errs.Wrap(errs.KindMCPConnection, "mcpadapter.connectStdio",
			"failed to start stdio transport for "+cfg.Key, err)
	}
	if err := initialize(ctx, c); err != nil {
		_ = c.Close()
		return nil, "", err
	}
	return c, "stdio", nil
}

func connectHTTP(ctx context.Context, cfg ServerConfig) (mcpClient, string, oauthHandler, error) {
	if err := requireHTTPS(cfg.URL); err != nil {
		return nil, "", nil, err
	}

	streamable, err := newStreamableClient(cfg)
	if err == nil {
		if ierr := initialize(ctx, streamable); ierr == nil {
			return streamable, "streamable-http", oauthHandlerFor(cfg, streamable), nil
		} else if !isProtocolMismatch(ierr) {
			_ = streamable.Close()
			return nil, "", nil, ierr
		}
		_ = streamable.Close()
	}

	sse, err := mcpclient.NewSSEMCPClient(cfg.URL)
	if err != nil {
		return nil, "", nil, errs.Wrap(errs.KindMCPConnection, "mcpadapter.connectHTTP",
			"failed to start SSE transport for "+cfg.Key, err)
	}
	if err := initialize(ctx, sse); err != nil {
		_ = sse.Close()
		return nil, "", nil, err
	}
	return sse, "sse", nil, nil
}

// newStreamableClient builds the Streamable-HTTP client, installing cfg.Auth
// as its auth provider (spec.md §4.8's "OAuth") when configured.
func newStreamableClient(cfg ServerConfig) (mcpClient, error) {
	if cfg.Auth == nil {
		return mcpclient.NewStreamableHttpClient(cfg.URL)
	}
	return mcpclient.NewOAuthStreamableHttpClient(cfg.URL, mcptransport.OAuthConfig{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		RedirectURI:  cfg.Auth.RedirectURL,
		ClientName:   cfg.Auth.ClientName,
		PKCEEnabled:  true,
	})
}

// oauthHandlerFor narrows c to the methods CompleteAuthentication needs to
// finish an authorization-code exchange, when cfg configured OAuth at all.
func oauthHandlerFor(cfg ServerConfig, c mcpClient) oauthHandler {
	if cfg.Auth == nil {
		return nil
	}
	oh, _ := c.(oauthHandler)
	return oh
}

// requireHTTPS enforces spec.md §4.8's "HTTPS required outside localhost."
func requireHTTPS(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errs.Wrap(errs.KindMCPConnection, "mcpadapter.requireHTTPS", "invalid server url", err)
	}
	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return nil
	}
	if u.Scheme != "https" {
		return errs.New(errs.KindMCPConnection, "mcpadapter.requireHTTPS",
			"non-localhost MCP server url must use https: "+rawURL)
	}
	return nil
}

// isProtocolMismatch reports whether err looks like the class of failure
// spec.md §4.8 says should trigger falling back from Streamable-HTTP to SSE:
// 404, 405, "not supported", or "protocol mismatch".
func isProtocolMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"404", "405", "not supported", "protocol mismatch", "method not allowed"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func initialize(ctx context.Context, c mcpClient) error {
	req := mcpInitializeRequest()
	if _, err := c.Initialize(ctx, req); err != nil {
		return errs.Wrap(errs.KindMCPConnection, "mcpadapter.initialize", "mcp initialize handshake failed", err)
	}
	return nil
}
