package anthropic

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/petal-labs/anthropic-go/core"
)

const modelsPath = "/v1/models"

// Page is one page of a list endpoint.
type Page[T any] struct {
	Data    []T    `json:"data"`
	HasMore bool   `json:"has_more"`
	FirstID string `json:"first_id,omitempty"`
	LastID  string `json:"last_id,omitempty"`
}

// ListParams selects a page of a list endpoint.
type ListParams struct {
	Limit    int
	AfterID  string
	BeforeID string
}

func (p ListParams) query() string {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.AfterID != "" {
		q.Set("after_id", p.AfterID)
	}
	if p.BeforeID != "" {
		q.Set("before_id", p.BeforeID)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ModelInfo describes a model available to the caller.
type ModelInfo struct {
	ID          Model  `json:"id"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// ModelService lists models. Use Client.Models.
type ModelService struct {
	client *Client
}

// Get returns one model. Aliases such as "sonnet" are resolved first.
func (s *ModelService) Get(ctx context.Context, id string, opts ...core.RequestOption) (*ModelInfo, error) {
	var out ModelInfo
	path := modelsPath + "/" + url.PathEscape(string(ResolveModel(id)))
	if err := s.client.do(ctx, http.MethodGet, path, nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns one page of models, newest first.
func (s *ModelService) List(ctx context.Context, params ListParams, opts ...core.RequestOption) (*Page[ModelInfo], error) {
	var out Page[ModelInfo]
	if err := s.client.do(ctx, http.MethodGet, modelsPath+params.query(), nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// All iterates over every model, fetching pages as needed.
func (s *ModelService) All(ctx context.Context, params ListParams, opts ...core.RequestOption) iter.Seq2[ModelInfo, error] {
	return paginate(params, func(p ListParams) (*Page[ModelInfo], error) {
		return s.List(ctx, p, opts...)
	})
}

// paginate walks pages forward with after_id until has_more is false.
func paginate[T any](params ListParams, list func(ListParams) (*Page[T], error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			page, err := list(params)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range page.Data {
				if !yield(item, nil) {
					return
				}
			}
			if !page.HasMore || page.LastID == "" {
				return
			}
			params.AfterID = page.LastID
			params.BeforeID = ""
		}
	}
}
