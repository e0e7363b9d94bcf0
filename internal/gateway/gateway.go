package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"todoagent/internal/dispatchlog"
	"todoagent/internal/relay"
	"todoagent/internal/taskstore"
)

// TopicWebhookResponse is the relay topic for finished webhook replies.
const TopicWebhookResponse = "webhook.response"

const maxReplyBytes = 4 << 20

var ErrNotConfigured = errors.New("webhook url is not configured")

// GatewayError is a non-2xx answer from the automation engine.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("webhook returned status %d", e.Status)
	}
	return fmt.Sprintf("webhook returned status %d: %s", e.Status, body)
}

// Config is where and how long to wait for the engine. A zero Timeout means
// no deadline beyond the caller's context.
type Config struct {
	URL     string
	Timeout time.Duration
}

type ConfigSource interface {
	WebhookConfig() (Config, error)
}

// StaticConfig serves a fixed Config.
type StaticConfig Config

func (c StaticConfig) WebhookConfig() (Config, error) {
	return Config(c), nil
}

type TaskStore interface {
	UpdateTask(id string, patch taskstore.TaskPatch) (taskstore.Task, error)
	FindByID(id string) (taskstore.Task, bool, error)
}

type ResponseStore interface {
	UpsertResponse(rec taskstore.AgentResponse) (taskstore.AgentResponse, error)
}

type Publisher interface {
	Publish(topic string, payload any) (relay.Event, error)
}

type Recorder interface {
	Record(e dispatchlog.Entry) error
}

type Deps struct {
	Config     ConfigSource
	HTTPClient *http.Client
	Tasks      TaskStore
	Responses  ResponseStore
	Publisher  Publisher
	Recorder   Recorder
	Logger     *slog.Logger
}

// Result describes a processed reply. Task is nil when no task matched; it is
// the unchanged task when the reply carried nothing to merge.
type Result struct {
	Reply    Reply
	Task     *taskstore.Task
	Response taskstore.AgentResponse
	Event    relay.Event
	Warning  string
}

// ResponseID is the id a detail view should address.
func (r Result) ResponseID() string {
	if r.Response.ID != "" {
		return r.Response.ID
	}
	return r.Reply.ID
}

type Gateway struct {
	deps   Deps
	client *http.Client
	logger *slog.Logger
}

func New(deps Deps) *Gateway {
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Gateway{deps: deps, client: client, logger: logger}
}

// Dispatch posts task to the engine and applies its synchronous reply. A
// failed call is reported once and never retried.
func (g *Gateway) Dispatch(ctx context.Context, task taskstore.Task) (Result, error) {
	entry := dispatchlog.Entry{TaskID: task.ID, Kind: dispatchlog.KindDispatch}

	body, err := json.Marshal(task)
	if err != nil {
		return Result{}, fmt.Errorf("encode task: %w", err)
	}
	raw, status, err := g.post(ctx, body)
	entry.HTTPStatus = status
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) {
			entry.Outcome = dispatchlog.OutcomeGatewayError
		} else {
			entry.Outcome = dispatchlog.OutcomeTransportError
		}
		entry.Error = err.Error()
		g.record(entry)
		g.logger.Warn("webhook dispatch failed", "task_id", task.ID, "status", status, "err", err)
		return Result{}, err
	}

	reply, err := ParseReply(raw)
	if err != nil {
		entry.Outcome = dispatchlog.OutcomeMalformedReply
		entry.Error = err.Error()
		g.record(entry)
		g.logger.Warn("webhook reply rejected", "task_id", task.ID, "err", err)
		return Result{}, err
	}
	return g.finish(entry, reply, task.ID)
}

// HandleCallback applies an asynchronous reply the engine posted back.
func (g *Gateway) HandleCallback(_ context.Context, body []byte) (Result, error) {
	entry := dispatchlog.Entry{Kind: dispatchlog.KindCallback}
	reply, err := ParseReply(body)
	if err != nil {
		entry.Outcome = dispatchlog.OutcomeMalformedReply
		entry.Error = err.Error()
		g.record(entry)
		g.logger.Warn("webhook callback rejected", "err", err)
		return Result{}, err
	}
	entry.TaskID = reply.ID
	return g.finish(entry, reply, reply.ID)
}

func (g *Gateway) finish(entry dispatchlog.Entry, reply Reply, taskID string) (Result, error) {
	res, err := g.apply(reply, taskID)
	entry.ResponseID = res.ResponseID()
	entry.Warning = res.Warning
	if err != nil {
		entry.Outcome = dispatchlog.OutcomeStoreError
		entry.Error = err.Error()
		g.record(entry)
		return Result{}, err
	}
	entry.Outcome = dispatchlog.OutcomeOK
	g.record(entry)
	g.logger.Info("webhook reply applied", "kind", entry.Kind, "task_id", taskID, "response_id", entry.ResponseID, "task_matched", res.Task != nil)
	return res, nil
}

// apply merges the reply into the task keyed by the flat task id, upserts the
// response record and publishes the payload once.
func (g *Gateway) apply(reply Reply, taskID string) (Result, error) {
	if taskID == "" {
		taskID = reply.ID
	}
	res := Result{Reply: reply}
	var warnings []string

	switch {
	case taskID == "":
		warnings = append(warnings, "reply has no id; task merge skipped")
	case reply.Response == nil:
		if g.deps.Tasks == nil {
			warnings = append(warnings, "reply has no response; task merge skipped")
			break
		}
		task, ok, err := g.deps.Tasks.FindByID(taskID)
		if err != nil {
			return res, fmt.Errorf("look up task %q: %w", taskID, err)
		}
		if !ok {
			warnings = append(warnings, fmt.Sprintf("no task with id %q; task merge skipped", taskID))
			break
		}
		res.Task = &task
		warnings = append(warnings, "reply has no response; task merge skipped")
	case g.deps.Tasks != nil:
		updated, err := g.deps.Tasks.UpdateTask(taskID, taskstore.TaskPatch{
			Response: &taskstore.TaskResponse{Content: reply.Response},
		})
		switch {
		case errors.Is(err, taskstore.ErrNotFound):
			warnings = append(warnings, fmt.Sprintf("no task with id %q; task merge skipped", taskID))
		case err != nil:
			return res, fmt.Errorf("merge reply into task %q: %w", taskID, err)
		default:
			res.Task = &updated
		}
	}

	responseID := reply.ID
	if responseID == "" {
		responseID = taskID
	}
	if responseID != "" && g.deps.Responses != nil {
		var rec taskstore.AgentResponse
		if err := json.Unmarshal(reply.Payload, &rec); err != nil {
			return res, fmt.Errorf("%w: %v", ErrMalformedReply, err)
		}
		rec.ID = responseID
		saved, err := g.deps.Responses.UpsertResponse(rec)
		if err != nil {
			return res, fmt.Errorf("store agent response %q: %w", responseID, err)
		}
		res.Response = saved
	}

	if g.deps.Publisher != nil {
		evt, err := g.deps.Publisher.Publish(TopicWebhookResponse, reply.Payload)
		if err != nil {
			g.logger.Warn("publish webhook response failed", "response_id", responseID, "err", err)
		} else {
			res.Event = evt
		}
	}

	res.Warning = strings.Join(warnings, "; ")
	if res.Warning != "" {
		g.logger.Warn("webhook reply applied with warnings", "task_id", taskID, "warning", res.Warning)
	}
	return res, nil
}

func (g *Gateway) post(ctx context.Context, body []byte) ([]byte, int, error) {
	if g.deps.Config == nil {
		return nil, 0, ErrNotConfigured
	}
	cfg, err := g.deps.Config.WebhookConfig()
	if err != nil {
		return nil, 0, fmt.Errorf("load webhook config: %w", err)
	}
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, 0, ErrNotConfigured
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("call webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read webhook reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &GatewayError{Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, resp.StatusCode, nil
}

func (g *Gateway) record(e dispatchlog.Entry) {
	if g.deps.Recorder == nil {
		return
	}
	if err := g.deps.Recorder.Record(e); err != nil {
		g.logger.Warn("record dispatch failed", "kind", e.Kind, "task_id", e.TaskID, "err", err)
	}
}
