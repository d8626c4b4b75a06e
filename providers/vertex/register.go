package vertex

import (
	"context"
	"errors"

	"github.com/petal-labs/anthropic-go/providers"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

func init() {
	providers.Register("vertex", func(ctx context.Context, s providers.Settings) (*anthropic.Client, error) {
		if s.Region == "" || s.ProjectID == "" {
			return nil, errors.New("vertex: region and project id are required")
		}
		opts := s.Options
		if s.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(s.BaseURL))
		}
		return New(ctx, s.Region, s.ProjectID, opts...)
	})
}
