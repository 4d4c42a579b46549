// Package mcptools exposes the weakness tracker as Model Context Protocol
// tools so an agent can read and update player profiles.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/pkg/logger"
	"github.com/okian/coach/pkg/metrics"
)

const (
	serverName    = "coach-mcp"
	serverVersion = "1.0.0"
)

// Dependencies is the slice of the service the tools call.
type Dependencies interface {
	Profile(ctx context.Context, playerID string) (profile.Profile, error)
	FocusAreas(ctx context.Context, playerID string, topN int) ([]string, error)
	Difficulty(ctx context.Context, playerID string) (service.DifficultyView, error)
	PromoteSkill(ctx context.Context, playerID string) (profile.Profile, bool, error)
	Record(ctx context.Context, playerID string, e profile.Evaluation) (profile.Profile, []profile.Issue, error)
	Recommendations(ctx context.Context, playerID string) (profile.Recommendation, error)
	SessionSummary(ctx context.Context, playerID string) (profile.SessionSummary, error)
}

// Tool argument schemas.
type (
	PlayerArgs struct {
		PlayerID string `json:"player_id" jsonschema:"Player id (required)"`
	}
	FocusArgs struct {
		PlayerID string `json:"player_id" jsonschema:"Player id (required)"`
		Top      int    `json:"top,omitempty" jsonschema:"How many leaks to return (default 3)"`
	}
	DifficultyArgs struct {
		PlayerID string `json:"player_id" jsonschema:"Player id (required)"`
		Apply    bool   `json:"apply,omitempty" jsonschema:"Store the recommended level on the profile"`
	}
	RecordArgs struct {
		PlayerID       string   `json:"player_id" jsonschema:"Player id (required)"`
		Correct        bool     `json:"correct" jsonschema:"Whether the decision was correct"`
		LeakIdentified string   `json:"leak_identified,omitempty" jsonschema:"Leak as category.leak, e.g. postflop.betSizing"`
		Severity       float64  `json:"severity,omitempty" jsonschema:"Mistake severity 0-10"`
		EVDelta        *float64 `json:"ev_delta,omitempty" jsonschema:"EV gained or lost in big blinds"`
	}
)

// Server owns the MCP server and its tool registry.
type Server struct {
	deps   Dependencies
	server *mcp.Server
	tools  []string
	log    logger.Logger
}

// New builds the server and registers every tool.
func New(deps Dependencies, opts ...Option) *Server {
	s := &Server{deps: deps}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("mcp")
	}
	s.server = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	s.register()
	return s
}

// Tools lists registered tool names in registration order.
func (s *Server) Tools() []string { return append([]string(nil), s.tools...) }

// MCP exposes the underlying server, e.g. for in-process transports.
func (s *Server) MCP() *mcp.Server { return s.server }

// Handler serves the tools over streamable HTTP.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})
}

func addTool[T any](s *Server, tool *mcp.Tool, handler func(context.Context, T) (any, error)) {
	s.tools = append(s.tools, tool.Name)
	name := tool.Name
	mcp.AddTool(s.server, tool, func(ctx context.Context, _ *mcp.CallToolRequest, args T) (*mcp.CallToolResult, any, error) {
		out, err := handler(ctx, args)
		if err != nil {
			metrics.RecordErrorByComponent("mcp", name)
			s.log.Warn(ctx, "tool call failed", logger.String("tool", name), logger.Error(err))
			return toolError(err), nil, nil
		}
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return toolError(err), nil, nil
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}, nil, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error: %v", err)}},
	}
}

func requirePlayer(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("player_id is required")
	}
	return nil
}

func (s *Server) register() {
	addTool(s, &mcp.Tool{
		Name:        "get_profile",
		Description: "Full training profile: skill level, leak severities, focus areas and stats",
	}, func(ctx context.Context, args PlayerArgs) (any, error) {
		if err := requirePlayer(args.PlayerID); err != nil {
			return nil, err
		}
		return s.deps.Profile(ctx, args.PlayerID)
	})

	addTool(s, &mcp.Tool{
		Name:        "focus_areas",
		Description: "Highest-severity leaks, most severe first",
	}, func(ctx context.Context, args FocusArgs) (any, error) {
		if err := requirePlayer(args.PlayerID); err != nil {
			return nil, err
		}
		if args.Top < 0 {
			return nil, fmt.Errorf("top must not be negative")
		}
		areas, err := s.deps.FocusAreas(ctx, args.PlayerID, args.Top)
		if err != nil {
			return nil, err
		}
		return map[string]any{"player_id": args.PlayerID, "focus_areas": areas}, nil
	})

	addTool(s, &mcp.Tool{
		Name:        "recommend_difficulty",
		Description: "Difficulty from recent accuracy; apply=true stores it",
	}, func(ctx context.Context, args DifficultyArgs) (any, error) {
		if err := requirePlayer(args.PlayerID); err != nil {
			return nil, err
		}
		if !args.Apply {
			return s.deps.Difficulty(ctx, args.PlayerID)
		}
		p, changed, err := s.deps.PromoteSkill(ctx, args.PlayerID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"changed": changed, "skill_level": p.SkillLevel}, nil
	})

	addTool(s, &mcp.Tool{
		Name:        "record_evaluation",
		Description: "Apply one judged decision to the profile",
	}, func(ctx context.Context, args RecordArgs) (any, error) {
		if err := requirePlayer(args.PlayerID); err != nil {
			return nil, err
		}
		p, issues, err := s.deps.Record(ctx, args.PlayerID, profile.Evaluation{
			Correct:        args.Correct,
			LeakIdentified: args.LeakIdentified,
			Severity:       args.Severity,
			EVDelta:        args.EVDelta,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"focus_areas": p.FocusAreas, "stats": p.Stats, "warnings": issues}, nil
	})

	addTool(s, &mcp.Tool{
		Name:        "next_scenario_plan",
		Description: "What to train next: focus weakness, difficulty, scenario types and goals",
	}, func(ctx context.Context, args PlayerArgs) (any, error) {
		if err := requirePlayer(args.PlayerID); err != nil {
			return nil, err
		}
		return s.deps.Recommendations(ctx, args.PlayerID)
	})

	addTool(s, &mcp.Tool{
		Name:        "session_summary",
		Description: "Current or last session: decisions, accuracy, leaks seen and duration",
	}, func(ctx context.Context, args PlayerArgs) (any, error) {
		if err := requirePlayer(args.PlayerID); err != nil {
			return nil, err
		}
		return s.deps.SessionSummary(ctx, args.PlayerID)
	})
}
