// Command taskpilot-mcp serves the assistant as Model Context Protocol
// tools over stdio, so MCP-speaking clients can chat and manage tasks
// against the same durable state the HTTP server uses. All logging goes
// to stderr; stdout belongs to the protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"taskpilot/internal/assistant"
	"taskpilot/internal/capability"
	"taskpilot/internal/config"
	"taskpilot/internal/conversation"
	"taskpilot/internal/engine"
	"taskpilot/internal/intent"
	"taskpilot/internal/logging"
	"taskpilot/internal/schedule"
	"taskpilot/internal/storage"
	"taskpilot/internal/task"
	"taskpilot/internal/workflow"
)

type chatParams struct {
	Message string `json:"message" mcp:"the message to send to the task assistant"`
}

type createTaskParams struct {
	Title       string `json:"title" mcp:"the task title (required)"`
	Description string `json:"description,omitempty" mcp:"optional longer description"`
	Priority    string `json:"priority,omitempty" mcp:"high, medium or low (default medium)"`
	DueDate     string `json:"due_date,omitempty" mcp:"optional due date, RFC3339 or YYYY-MM-DD"`
	Tags        string `json:"tags,omitempty" mcp:"optional free-form tags"`
}

type listTasksParams struct {
	Status   string `json:"status,omitempty" mcp:"filter by status: pending, in_progress, completed, cancelled"`
	Priority string `json:"priority,omitempty" mcp:"filter by priority: high, medium, low"`
	Limit    int    `json:"limit,omitempty" mcp:"maximum number of tasks to return (0 means all)"`
}

type taskIDParams struct {
	TaskID int64 `json:"task_id" mcp:"the numeric task identifier"`
}

type noParams struct{}

type toolServer struct {
	assistant *assistant.Assistant
	logger    zerolog.Logger
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func (s *toolServer) Chat(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[chatParams]) (*mcp.CallToolResultFor[any], error) {
	res, err := s.assistant.Chat(ctx, params.Arguments.Message, map[string]any{"transport": "mcp"})
	if err != nil {
		s.logger.Error().Err(err).Msg("chat failed")
		return errorResult("something went wrong, please retry"), nil
	}
	return textResult(res.Response), nil
}

func (s *toolServer) CreateTask(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[createTaskParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	fields := task.Fields{
		Title:       args.Title,
		Description: args.Description,
		Priority:    task.Priority(strings.ToLower(args.Priority)),
		Tags:        args.Tags,
	}
	if args.DueDate != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if ts, err := time.Parse(layout, args.DueDate); err == nil {
				fields.DueDate = &ts
				break
			}
		}
	}

	res, err := s.assistant.CreateTask(ctx, fields)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(res.Message), nil
}

func (s *toolServer) ListTasks(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[listTasksParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	f := task.Filter{
		Status:   task.Status(strings.ToLower(args.Status)),
		Priority: task.Priority(strings.ToLower(args.Priority)),
	}
	tasks := s.assistant.ListTasks(ctx, f, args.Limit)
	if len(tasks) == 0 {
		return textResult("No tasks match."), nil
	}
	return textResult(renderTasks("Tasks:", tasks)), nil
}

func (s *toolServer) CompleteTask(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[taskIDParams]) (*mcp.CallToolResultFor[any], error) {
	done := task.StatusCompleted
	res, found, err := s.assistant.UpdateTask(ctx, params.Arguments.TaskID, task.Patch{Status: &done})
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if !found {
		return errorResult(fmt.Sprintf("task #%d not found", params.Arguments.TaskID)), nil
	}
	return textResult(res.Message), nil
}

func (s *toolServer) DeleteTask(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[taskIDParams]) (*mcp.CallToolResultFor[any], error) {
	res, found, err := s.assistant.DeleteTask(ctx, params.Arguments.TaskID)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if !found {
		return errorResult(fmt.Sprintf("task #%d not found", params.Arguments.TaskID)), nil
	}
	return textResult(res.Message), nil
}

func (s *toolServer) ScheduleTasks(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[noParams]) (*mcp.CallToolResultFor[any], error) {
	pending := s.assistant.ListTasks(ctx, task.Filter{Status: task.StatusPending}, 0)
	if len(pending) == 0 {
		return textResult("Nothing is pending right now."), nil
	}
	return textResult(renderTasks("Recommended order:", schedule.Order(pending))), nil
}

func renderTasks(header string, tasks []task.Task) string {
	var b strings.Builder
	b.WriteString(header)
	for i, t := range tasks {
		fmt.Fprintf(&b, "\n%d. #%d %q [%s/%s]", i+1, t.ID, t.Title, t.Priority, t.Status)
		if t.DueDate != nil {
			b.WriteString(", due " + t.DueDate.Format("Jan 2, 2006"))
		}
	}
	return b.String()
}

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fallback := logging.Setup("info", true)
		fallback.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	store, err := storage.Open(cfg.Storage.Path, cfg.Storage.Timeout, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	factory := capability.NewFactory(&cfg.Capability, logger)
	generator := factory.Generator()
	embedder := factory.Embedder()
	tracer := factory.Tracer()

	tasks := task.NewStore()
	log := conversation.NewLog()
	resolver := intent.NewResolver(generator, factory.Cache(), factory.RateLimiter(), tracer, logger)
	eng := engine.NewEngine(tasks, log, resolver, engine.Capabilities{
		Generator: generator,
		Embedder:  embedder,
		Index:     capability.NopIndex{},
		Tracer:    tracer,
		Options:   factory.Options(),
	}, logger)
	runner := workflow.NewRunner(tasks, log, embedder, capability.NopIndex{}, cfg.Workflows.EmbedConcurrency, logger)

	asst := assistant.New(tasks, log, eng, runner, store, logger)
	if err := asst.Load(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to load persisted state")
	}

	ts := &toolServer{assistant: asst, logger: logger}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "taskpilot-mcp",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "chat",
		Description: "Send a free-form message to the task assistant and get its reply",
	}, ts.Chat)
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "create_task",
		Description: "Create a new task with a title and optional attributes",
	}, ts.CreateTask)
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks, optionally filtered by status and priority",
	}, ts.ListTasks)
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task as completed by its numeric id",
	}, ts.CompleteTask)
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "delete_task",
		Description: "Delete a task by its numeric id",
	}, ts.DeleteTask)
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "schedule_tasks",
		Description: "Get the recommended working order for pending tasks",
	}, ts.ScheduleTasks)

	logger.Info().Msg("taskpilot mcp server starting on stdio")
	if err := mcpServer.Run(context.Background(), mcp.NewStdioTransport()); err != nil {
		logger.Fatal().Err(err).Msg("mcp server failed")
	}
}
