package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for pdfqa resources.
	uriScheme = "pdfqa://"

	// StatsURI identifies the index statistics resource.
	StatsURI = uriScheme + "stats"
)

// statsInfo is the JSON shape of the stats resource.
type statsInfo struct {
	Name          string         `json:"name"`
	TotalVectors  int            `json:"total_vectors"`
	Dimension     int            `json:"dimension"`
	Metric        string         `json:"metric"`
	IndexFullness float64        `json:"index_fullness"`
	Namespaces    map[string]int `json:"namespaces,omitempty"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         StatsURI,
		Name:        "stats",
		Description: "Vector index statistics: total vectors, dimension and fullness",
		MIMEType:    "application/json",
	}, s.handleStatsResource)
}

func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Index == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	stats, err := s.ports.Index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("describing index: %w", err)
	}

	data, err := json.MarshalIndent(statsInfo{
		Name:          stats.Name,
		TotalVectors:  stats.TotalRecordCount,
		Dimension:     stats.Dimension,
		Metric:        stats.Metric.String(),
		IndexFullness: stats.IndexFullness,
		Namespaces:    stats.Namespaces,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling stats: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
