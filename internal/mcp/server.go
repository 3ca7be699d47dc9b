package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/felixgeelhaar/pencil/internal/domain"
	"github.com/felixgeelhaar/pencil/internal/exercise"
	"github.com/felixgeelhaar/pencil/internal/player"
	"github.com/felixgeelhaar/pencil/internal/widget"
)

// Server exposes exercise player sessions as MCP tools
type Server struct {
	mcpServer *server.Server
	manager   *player.Manager
	registry  *exercise.Registry
	base      player.Config
	logger    *slog.Logger
}

// Config contains configuration for the MCP server
type Config struct {
	Manager  *player.Manager
	Registry *exercise.Registry
	// Player is the template for new sessions; Exercises, PriorAnswers
	// and Confirmer are filled per session.
	Player  player.Config
	Version string
	Logger  *slog.Logger
}

type confirmKey struct{}

// contextConfirmer answers reset prompts with the confirm flag of the
// tool call that asked for the reset.
var contextConfirmer = widget.ConfirmFunc(func(ctx context.Context, _ string) (bool, error) {
	confirmed, _ := ctx.Value(confirmKey{}).(bool)
	return confirmed, nil
})

// NewServer creates a new MCP server for pencil
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		manager:  cfg.Manager,
		registry: cfg.Registry,
		base:     cfg.Player,
		logger:   logger,
	}

	s.mcpServer = server.New(server.Info{
		Name:    "pencil",
		Version: version,
	}, server.WithInstructions(`
Pencil plays code exercises. Each exercise is a card with starting code;
running the code submits its output for grading, and a correct answer
moves on to the next card.

Available tools:
- pencil_start: Start a session for an exercise or a whole pack
- pencil_edit: Replace the code on the current card
- pencil_run: Run the code; the run is graded automatically
- pencil_submit: Submit the code without running it again
- pencil_reset: Restore the starting code (requires confirm=true)
- pencil_status: Show the current card, code, output and last feedback
- pencil_stop: End a session

After an error answer, new answers are ignored for a short cooldown.
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("pencil_start").
		Description("Start a session for an exercise (pack/category/name) or a pack ID.").
		Handler(s.handleStart)

	s.mcpServer.Tool("pencil_edit").
		Description("Replace the code on the current card.").
		Handler(s.handleEdit)

	s.mcpServer.Tool("pencil_run").
		Description("Run the current code. Output or errors are graded automatically.").
		Handler(s.handleRun)

	s.mcpServer.Tool("pencil_submit").
		Description("Submit the current code. Disabled while the code is blank.").
		Handler(s.handleSubmit)

	s.mcpServer.Tool("pencil_reset").
		Description("Restore the current card's starting code. Requires confirm=true.").
		Handler(s.handleReset)

	s.mcpServer.Tool("pencil_status").
		Description("Get current session status.").
		Handler(s.handleStatus)

	s.mcpServer.Tool("pencil_stop").
		Description("End a pencil session.").
		Handler(s.handleStop)
}

type StartInput struct {
	ExerciseID   string            `json:"exercise_id" jsonschema:"description=Exercise ID (pack/category/name) or pack ID"`
	PriorAnswers map[string]string `json:"prior_answers,omitempty" jsonschema:"description=Earlier answers as exercise ID -> code; those cards open read-only"`
}

type StartOutput struct {
	SessionID string        `json:"session_id"`
	Status    player.Status `json:"status"`
	Message   string        `json:"message"`
}

type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from pencil_start"`
}

type EditInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from pencil_start"`
	Code      string `json:"code" jsonschema:"description=Full replacement code for the current card"`
}

type ResetInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from pencil_start"`
	Confirm   bool   `json:"confirm" jsonschema:"description=Must be true to discard the current code"`
}

// AttemptOutput describes one graded answer
type AttemptOutput struct {
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

type RunOutput struct {
	ExitCode int            `json:"exit_code"`
	Stdout   string         `json:"stdout,omitempty"`
	Stderr   string         `json:"stderr,omitempty"`
	TimedOut bool           `json:"timed_out,omitempty"`
	Attempt  *AttemptOutput `json:"attempt,omitempty"`
	Status   player.Status  `json:"status"`
	Summary  string         `json:"summary"`
}

type SubmitOutput struct {
	Attempt *AttemptOutput `json:"attempt,omitempty"`
	Status  player.Status  `json:"status"`
	Summary string         `json:"summary"`
}

type MessageOutput struct {
	Message string `json:"message"`
}

func (s *Server) handleStart(_ context.Context, input StartInput) (StartOutput, error) {
	if input.ExerciseID == "" {
		return StartOutput{}, fmt.Errorf("%w: exercise_id is required", domain.ErrInvalidInput)
	}

	exercises, err := s.registry.Resolve(input.ExerciseID)
	if err != nil {
		return StartOutput{}, fmt.Errorf("resolve exercise: %w", err)
	}

	cfg := s.base
	cfg.Exercises = exercises
	cfg.Confirmer = contextConfirmer
	if len(input.PriorAnswers) > 0 {
		cfg.PriorAnswers = make(map[string]domain.PriorAnswer, len(input.PriorAnswers))
		for id, code := range input.PriorAnswers {
			cfg.PriorAnswers[id] = domain.PriorAnswer{Code: code}
		}
	}

	p, err := s.manager.Start(cfg)
	if err != nil {
		return StartOutput{}, fmt.Errorf("failed to start session: %w", err)
	}

	st := p.Status()
	msg := fmt.Sprintf("Session started with %d exercise(s).", st.Total)
	if !st.Finished {
		msg += fmt.Sprintf(" Current: %s.", st.Title)
	}
	return StartOutput{SessionID: st.ID, Status: st, Message: msg}, nil
}

func (s *Server) handleEdit(_ context.Context, input EditInput) (MessageOutput, error) {
	p, err := s.manager.Get(input.SessionID)
	if err != nil {
		return MessageOutput{}, err
	}
	if err := p.Edit(input.Code); err != nil {
		return MessageOutput{}, fmt.Errorf("edit failed: %w", err)
	}
	return MessageOutput{Message: "Code updated."}, nil
}

func (s *Server) handleRun(ctx context.Context, input SessionInput) (RunOutput, error) {
	p, err := s.manager.Get(input.SessionID)
	if err != nil {
		return RunOutput{}, err
	}

	report, err := p.Run(ctx)
	if report == nil {
		return RunOutput{}, fmt.Errorf("run failed: %w", err)
	}

	out := RunOutput{Attempt: attemptOutput(report.Attempt)}
	if report.Result != nil {
		out.ExitCode = report.Result.ExitCode
		out.Stdout = report.Result.Stdout
		out.Stderr = report.Result.Stderr
		out.TimedOut = report.Result.TimedOut
	}
	out.Status = p.Status()
	out.Summary = summarize(out.Attempt, out.Status, err)
	return out, nil
}

func (s *Server) handleSubmit(_ context.Context, input SessionInput) (SubmitOutput, error) {
	p, err := s.manager.Get(input.SessionID)
	if err != nil {
		return SubmitOutput{}, err
	}

	attempt, err := p.Submit()
	if err != nil {
		return SubmitOutput{}, fmt.Errorf("submit failed: %w", err)
	}

	out := SubmitOutput{Attempt: attemptOutput(attempt), Status: p.Status()}
	out.Summary = summarize(out.Attempt, out.Status, nil)
	return out, nil
}

func (s *Server) handleReset(ctx context.Context, input ResetInput) (MessageOutput, error) {
	p, err := s.manager.Get(input.SessionID)
	if err != nil {
		return MessageOutput{}, err
	}
	if err := p.Reset(context.WithValue(ctx, confirmKey{}, input.Confirm)); err != nil {
		return MessageOutput{}, fmt.Errorf("reset failed: %w", err)
	}
	if !input.Confirm {
		return MessageOutput{Message: "Reset cancelled. Pass confirm=true to discard your code."}, nil
	}
	return MessageOutput{Message: "Code reset to the starting state."}, nil
}

func (s *Server) handleStatus(_ context.Context, input SessionInput) (player.Status, error) {
	p, err := s.manager.Get(input.SessionID)
	if err != nil {
		return player.Status{}, err
	}
	return p.Status(), nil
}

func (s *Server) handleStop(_ context.Context, input SessionInput) (MessageOutput, error) {
	if err := s.manager.Stop(input.SessionID); err != nil {
		return MessageOutput{}, fmt.Errorf("failed to stop session: %w", err)
	}
	return MessageOutput{Message: "Session ended successfully"}, nil
}

func attemptOutput(a *player.Attempt) *AttemptOutput {
	if a == nil {
		return nil
	}
	return &AttemptOutput{
		Correct:  a.Outcome.Correct,
		Feedback: a.Outcome.Feedback,
		Output:   a.Answer.Output,
		Error:    a.Answer.Error,
	}
}

func summarize(a *AttemptOutput, st player.Status, runErr error) string {
	var parts []string
	if runErr != nil {
		parts = append(parts, "Runner error: "+runErr.Error())
	}
	switch {
	case a == nil && runErr != nil:
		parts = append(parts, "Nothing was graded; run again once the runner is available.")
	case a == nil:
		parts = append(parts, "No new answer was submitted (already submitted this run, or waiting out an error).")
	case a.Correct:
		parts = append(parts, "Correct: "+a.Feedback)
	default:
		parts = append(parts, "Not yet: "+a.Feedback)
	}
	switch {
	case st.Finished:
		parts = append(parts, "All exercises complete.")
	case a != nil && a.Correct:
		parts = append(parts, fmt.Sprintf("Next: %s (%d/%d).", st.Title, st.Position, st.Total))
	}
	return strings.Join(parts, " ")
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
