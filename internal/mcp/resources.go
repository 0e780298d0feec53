package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// ClassesResourceURI lists every known class, one per line.
	ClassesResourceURI = "classcache://classes"
	// StatusResourceURI holds the cache_status output as JSON.
	StatusResourceURI = "classcache://status"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "classes",
			URI:         ClassesResourceURI,
			Description: "CSS class names found in workspace markup",
			MIMEType:    "text/plain",
		},
		s.readClasses,
	)
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "status",
			URI:         StatusResourceURI,
			Description: "Class cache status",
			MIMEType:    "application/json",
		},
		s.readStatus,
	)
}

func (s *Server) readClasses(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      ClassesResourceURI,
				MIMEType: "text/plain",
				Text:     FormatClassList(s.cache.AllTokens()),
			},
		},
	}, nil
}

func (s *Server) readStatus(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	out, err := s.handleCacheStatus(ctx)
	if err != nil {
		return nil, err
	}
	content, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      StatusResourceURI,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}
