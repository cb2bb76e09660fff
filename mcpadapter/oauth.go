package mcpadapter

import (
	"context"

	"goa.design/llmcore/errs"
)

// oauthHandler narrows the OAuth-capable client mcp-go returns from
// NewOAuthStreamableHttpClient down to the one step CompleteAuthentication
// needs: exchanging a redirect authorization code for a token, per spec.md
// §4.8's completeAuthentication(key, code).
type oauthHandler interface {
	ProcessAuthorizationResponse(ctx context.Context, code, state, codeVerifier string) error
}

// CompleteAuthentication finishes the OAuth authorization-code flow for a
// server connected with an OAuthConfig: it hands the redirect code off to
// the server's auth provider so subsequent tool calls carry a token. It
// fails if key isn't connected or wasn't configured with OAuth.
func (a *Adapter) CompleteAuthentication(ctx context.Context, key, code string) error {
	conn, err := a.conn(key)
	if err != nil {
		return err
	}
	if conn.oauth == nil {
		return errs.New(errs.KindMCPAuth, "Adapter.CompleteAuthentication",
			"server "+key+" was not configured with OAuth")
	}
	if err := conn.oauth.ProcessAuthorizationResponse(ctx, code, "", ""); err != nil {
		return errs.Wrap(errs.KindMCPAuth, "Adapter.CompleteAuthentication",
			"failed to complete OAuth authorization for "+key, err)
	}
	return nil
}
