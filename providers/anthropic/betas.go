package anthropic

// Beta feature flags for the anthropic-beta header.
const (
	BetaMessageBatches        = "message-batches-2024-09-24"
	BetaPromptCaching         = "prompt-caching-2024-07-31"
	BetaComputerUse20241022   = "computer-use-2024-10-22"
	BetaComputerUse20250124   = "computer-use-2025-01-24"
	BetaPDFs                  = "pdfs-2024-09-25"
	BetaTokenCounting         = "token-counting-2024-11-01"
	BetaTokenEfficientTools   = "token-efficient-tools-2025-02-19"
	BetaOutput128K            = "output-128k-2025-02-19"
	BetaFilesAPI              = "files-api-2025-04-14"
	BetaMCPClient20250404     = "mcp-client-2025-04-04"
	BetaMCPClient20251120     = "mcp-client-2025-11-20"
	BetaDevFullThinking       = "dev-full-thinking-2025-05-14"
	BetaInterleavedThinking   = "interleaved-thinking-2025-05-14"
	BetaCodeExecution         = "code-execution-2025-05-22"
	BetaExtendedCacheTTL      = "extended-cache-ttl-2025-04-11"
	BetaAdaptiveThinking      = "adaptive-thinking-2026-01-28"
	BetaClaudeCode            = "claude-code-20250219"
	BetaEffort                = "effort-2025-11-24"
	BetaOAuth                 = "oauth-2025-04-20"
	BetaPromptCachingScope    = "prompt-caching-scope-2026-01-05"
	BetaContext1M             = "context-1m-2025-08-07"
)
