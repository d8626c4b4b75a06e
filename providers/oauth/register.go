package oauth

import (
	"context"
	"errors"

	"github.com/petal-labs/anthropic-go/providers"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

func init() {
	providers.Register("oauth", func(_ context.Context, s providers.Settings) (*anthropic.Client, error) {
		if s.APIKey == "" && s.RefreshToken == "" {
			return nil, errors.New("oauth: an access token or refresh token is required")
		}
		opts := s.Options
		if s.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(s.BaseURL))
		}
		var onRefresh func(Tokens)
		if s.OnRefresh != nil {
			onRefresh = func(t Tokens) { s.OnRefresh(t.AccessToken, t.RefreshToken, t.ExpiresAt) }
		}
		return New(Config{
			Tokens: Tokens{
				AccessToken:  s.APIKey,
				RefreshToken: s.RefreshToken,
				ExpiresAt:    s.ExpiresAt,
			},
			ClientID:        s.ClientID,
			RefreshEndpoint: s.TokenURL,
			OnRefresh:       onRefresh,
		}, opts...), nil
	})
}
