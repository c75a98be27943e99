package mcp_test

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/aretw0/tablecast/internal/testutil"
	mcpadapter "github.com/aretw0/tablecast/pkg/adapters/mcp"
	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	res *domain.Success
	err error
}

func (f *fakeRenderer) Render(context.Context, string) (*domain.Success, error) { return f.res, f.err }
func (f *fakeRenderer) Strategies() []string                                    { return []string{"http-api", "browser-gb2"} }

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestRenderTable_Image(t *testing.T) {
	png := testutil.PNG(200, 100)
	s := mcpadapter.NewServer(&fakeRenderer{res: &domain.Success{Image: png, Strategy: "http-api"}})

	res, err := s.HandleRenderTable(context.Background(), call(map[string]any{"text": "A - Red\nAlice 1500"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var img *mcp.ImageContent
	for _, c := range res.Content {
		if ic, ok := c.(mcp.ImageContent); ok {
			img = &ic
		}
	}
	require.NotNil(t, img)
	assert.Equal(t, "image/png", img.MIMEType)
	raw, err := base64.StdEncoding.DecodeString(img.Data)
	require.NoError(t, err)
	assert.Equal(t, png, raw)
}

func TestRenderTable_Failure(t *testing.T) {
	s := mcpadapter.NewServer(&fakeRenderer{err: &domain.Failure{Attempts: []domain.AttemptOutcome{
		{Strategy: "http-api", Kind: domain.KindAllEndpointsFailed},
	}}})

	res, err := s.HandleRenderTable(context.Background(), call(map[string]any{"text": "A - Red\nAlice 1500"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "all_endpoints_failed")
}

func TestRenderTable_MissingText(t *testing.T) {
	s := mcpadapter.NewServer(&fakeRenderer{})

	res, err := s.HandleRenderTable(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListStrategies(t *testing.T) {
	s := mcpadapter.NewServer(&fakeRenderer{})

	res, err := s.HandleListStrategies(context.Background(), call(nil))
	require.NoError(t, err)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "http-api\nbrowser-gb2", text.Text)
}
