// Package providers builds [anthropic.Client] values for the backends that
// serve the Messages API.
//
// Each backend lives in its own subpackage and registers a [Factory] from
// init, so importing the subpackage is enough to make it available:
//
//	import _ "github.com/petal-labs/anthropic-go/providers/bedrock"
//
//	client, err := providers.Create(ctx, "bedrock", providers.Settings{
//	    Region: "us-east-1",
//	})
//
// The "anthropic" backend is always registered. The others are:
//
//   - bedrock: Amazon Bedrock, SigV4 signed, credentials from the AWS chain
//   - vertex: Google Vertex AI, with Application Default Credentials
//   - oauth: the first-party API with a bearer token that refreshes itself
//
// Every backend returns the same client type; they differ only in the
// middleware that rewrites paths, bodies and auth headers.
//
// # Concurrency
//
// The registry is safe for concurrent use. Factories are expected to be
// registered during init.
package providers
