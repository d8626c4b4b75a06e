package bedrock

import (
	"context"
	"errors"

	"github.com/petal-labs/anthropic-go/providers"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

func init() {
	providers.Register("bedrock", func(_ context.Context, s providers.Settings) (*anthropic.Client, error) {
		if s.Region == "" {
			return nil, errors.New("bedrock: region is required")
		}
		opts := s.Options
		if s.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(s.BaseURL))
		}
		return New(s.Region, opts...)
	})
}
