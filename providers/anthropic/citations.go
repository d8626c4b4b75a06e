package anthropic

import "github.com/petal-labs/anthropic-go/internal/json"

// TextCitation points from generated text back to a source. Variants:
// *CharLocationCitation, *PageLocationCitation, *ContentBlockLocationCitation,
// *WebSearchResultLocationCitation, *SearchResultLocationCitation and
// *UnknownCitation.
type TextCitation interface {
	citationType() string
}

// CitationsConfig enables citations on a document or text parameter.
type CitationsConfig struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// CharLocationCitation cites a character range of a plain text document.
type CharLocationCitation struct {
	CitedText      string  `json:"cited_text"`
	DocumentIndex  int     `json:"document_index"`
	DocumentTitle  *string `json:"document_title"`
	StartCharIndex int     `json:"start_char_index"`
	EndCharIndex   int     `json:"end_char_index"`
}

// PageLocationCitation cites a page range of a PDF document.
type PageLocationCitation struct {
	CitedText       string  `json:"cited_text"`
	DocumentIndex   int     `json:"document_index"`
	DocumentTitle   *string `json:"document_title"`
	StartPageNumber int     `json:"start_page_number"`
	EndPageNumber   int     `json:"end_page_number"`
}

// ContentBlockLocationCitation cites a range of blocks of a custom content document.
type ContentBlockLocationCitation struct {
	CitedText       string  `json:"cited_text"`
	DocumentIndex   int     `json:"document_index"`
	DocumentTitle   *string `json:"document_title"`
	StartBlockIndex int     `json:"start_block_index"`
	EndBlockIndex   int     `json:"end_block_index"`
}

// WebSearchResultLocationCitation cites a web search result.
type WebSearchResultLocationCitation struct {
	CitedText      string  `json:"cited_text"`
	EncryptedIndex string  `json:"encrypted_index"`
	Title          *string `json:"title,omitempty"`
	URL            *string `json:"url,omitempty"`
}

// SearchResultLocationCitation cites a search result block.
type SearchResultLocationCitation struct {
	CitedText         string  `json:"cited_text"`
	Source            string  `json:"source,omitempty"`
	Title             *string `json:"title,omitempty"`
	SearchResultIndex int     `json:"search_result_index"`
	StartBlockIndex   int     `json:"start_block_index"`
	EndBlockIndex     int     `json:"end_block_index"`
}

// UnknownCitation holds a citation type this SDK does not know.
type UnknownCitation struct {
	Type string
	Raw  json.RawMessage
}

func (*CharLocationCitation) citationType() string            { return "char_location" }
func (*PageLocationCitation) citationType() string            { return "page_location" }
func (*ContentBlockLocationCitation) citationType() string    { return "content_block_location" }
func (*WebSearchResultLocationCitation) citationType() string { return "web_search_result_location" }
func (*SearchResultLocationCitation) citationType() string    { return "search_result_location" }
func (c *UnknownCitation) citationType() string               { return c.Type }

func (c CharLocationCitation) MarshalJSON() ([]byte, error) {
	type plain CharLocationCitation
	return marshalTagged("char_location", plain(c))
}

func (c PageLocationCitation) MarshalJSON() ([]byte, error) {
	type plain PageLocationCitation
	return marshalTagged("page_location", plain(c))
}

func (c ContentBlockLocationCitation) MarshalJSON() ([]byte, error) {
	type plain ContentBlockLocationCitation
	return marshalTagged("content_block_location", plain(c))
}

func (c WebSearchResultLocationCitation) MarshalJSON() ([]byte, error) {
	type plain WebSearchResultLocationCitation
	return marshalTagged("web_search_result_location", plain(c))
}

func (c SearchResultLocationCitation) MarshalJSON() ([]byte, error) {
	type plain SearchResultLocationCitation
	return marshalTagged("search_result_location", plain(c))
}

func (c UnknownCitation) MarshalJSON() ([]byte, error) {
	return marshalUnknown(c.Type, c.Raw)
}

var citationVariants = variantSet[TextCitation]{
	union: "text citation",
	known: map[string]func() TextCitation{
		"char_location":              func() TextCitation { return &CharLocationCitation{} },
		"page_location":              func() TextCitation { return &PageLocationCitation{} },
		"content_block_location":     func() TextCitation { return &ContentBlockLocationCitation{} },
		"web_search_result_location": func() TextCitation { return &WebSearchResultLocationCitation{} },
		"search_result_location":     func() TextCitation { return &SearchResultLocationCitation{} },
	},
	unknown: func(tag string, raw json.RawMessage) TextCitation {
		return &UnknownCitation{Type: tag, Raw: raw}
	},
}

// Citations is a list of citations attached to a text block.
type Citations []TextCitation

// UnmarshalJSON decodes each element by its discriminant.
func (c *Citations) UnmarshalJSON(data []byte) error {
	list, err := citationVariants.decodeList(data)
	if err != nil {
		return err
	}
	*c = list
	return nil
}
