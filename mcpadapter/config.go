// Package mcpadapter implements MCPServiceAdapter (spec.md §4.8): connection
// lifecycle, transport selection, tool schema translation, and tool
// execution for a set of keyed remote MCP servers.
package mcpadapter

// ServerConfig describes one configured MCP server. Exactly one of Command
// or URL should be set, selecting stdio or HTTP transport respectively.
type ServerConfig struct {
	// Key identifies this server among the Adapter's connections and is the
	// prefix used when rewriting tool names (serverKey_toolName).
	Key string

	// Command, Args, Env select the stdio transport: a child process is
	// spawned running Command with Args, and Env entries of the form
	// "NAME=${OTHER_VAR}" are substituted from the adapter's host
	// environment before the process is started. PATH is always passed
	// through regardless of Env.
	Command string
	Args    []string
	Env     []string

	// URL selects the HTTP transport. HTTPS is required unless URL points
	// at localhost/127.0.0.1. Streamable-HTTP is attempted first; the
	// adapter falls back to SSE when the server responds with a
	// protocol-class error (404, 405, or a "not supported"/"protocol
	// mismatch" message).
	URL string

	// Type, when "custom", is reserved for a caller-supplied transport not
	// covered by Command/URL and is otherwise untouched by Connect.
	Type string

	Auth *OAuthConfig
}

// OAuthConfig configures the auth provider installed for an HTTP-transport
// server, per spec.md §4.8.
type OAuthConfig struct {
	RedirectURL  string
	ClientName   string
	ClientID     string
	ClientSecret string
}
