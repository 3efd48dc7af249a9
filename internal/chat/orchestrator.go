package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/querydesk/querydesk/internal/intent"
	"github.com/querydesk/querydesk/internal/llm"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/pipeline"
)

// QueryExplanation introduces the generated query in a successful SQL turn.
const QueryExplanation = "Based on your request, I generated and executed a query:"

type State string

const (
	StateIdle        State = "idle"
	StateClassifying State = "classifying"
	StateQuerying    State = "querying"
	StateChatting    State = "chatting"
)

// Sink receives progress while a turn is processed. Fragment gets the text
// accumulated so far, not the delta. Calls happen on the ProcessTurn
// goroutine, in order.
type Sink interface {
	StateChanged(state State)
	IntentDetected(result intent.Result)
	Fragment(accumulated string)
	TurnAppended(turn Turn)
}

type NopSink struct{}

func (NopSink) StateChanged(State)           {}
func (NopSink) IntentDetected(intent.Result) {}
func (NopSink) Fragment(string)              {}
func (NopSink) TurnAppended(Turn)            {}

type IntentClassifier interface {
	Classify(ctx context.Context, question string) intent.Result
}

type QueryAsker interface {
	Ask(ctx context.Context, question string) (pipeline.Response, error)
}

// TurnReport describes how a turn was handled. Err is the failure recorded
// as an error turn, if any.
type TurnReport struct {
	Intent    intent.Result
	Response  *pipeline.Response
	Fragments int
	Err       error
}

type Orchestrator struct {
	classifier IntentClassifier
	asker      QueryAsker
	model      llm.Client
	logger     *slog.Logger
}

func NewOrchestrator(classifier IntentClassifier, asker QueryAsker, model llm.Client, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		asker:      asker,
		model:      model,
		logger:     observability.Component(logger, "chat"),
	}
}

// ProcessTurn answers question within conv and returns the extended
// conversation. conv itself is left untouched. Failures become assistant
// error turns; the orchestrator always ends in StateIdle.
func (o *Orchestrator) ProcessTurn(ctx context.Context, conv Conversation, question string, sink Sink) (Conversation, TurnReport) {
	if sink == nil {
		sink = NopSink{}
	}
	defer sink.StateChanged(StateIdle)

	var report TurnReport
	userTurn := UserText(question)
	out := conv.With(userTurn)
	sink.TurnAppended(userTurn)

	sink.StateChanged(StateClassifying)
	report.Intent = o.classifier.Classify(ctx, question)
	sink.IntentDetected(report.Intent)

	var turns []Turn
	if report.Intent.Label == intent.DatabaseQuery {
		sink.StateChanged(StateQuerying)
		turns = o.query(ctx, question, &report)
	} else {
		sink.StateChanged(StateChatting)
		turns = o.chat(ctx, out, sink, &report)
	}

	out = out.With(turns...)
	for _, turn := range turns {
		sink.TurnAppended(turn)
	}

	attrs := []any{
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("intent", string(report.Intent.Label)),
		slog.Bool("intent_degraded", report.Intent.Degraded),
		slog.Int("turns", out.Len()),
	}
	if report.Err != nil {
		o.logger.WarnContext(ctx, "chat turn failed", append(attrs, slog.Any("error", report.Err))...)
	} else {
		o.logger.DebugContext(ctx, "chat turn completed", attrs...)
	}
	return out, report
}

func (o *Orchestrator) query(ctx context.Context, question string, report *TurnReport) []Turn {
	resp, err := o.asker.Ask(ctx, question)
	if err != nil {
		report.Err = err
		return []Turn{AssistantError(describeFailure(err))}
	}
	report.Response = &resp
	result := resp.Result()
	return []Turn{
		AssistantText(QueryExplanation),
		{Role: RoleAssistant, Kind: KindSQLQuery, Text: resp.GeneratedQuery},
		{Role: RoleAssistant, Kind: KindTable, Table: &result},
	}
}

func (o *Orchestrator) chat(ctx context.Context, conv Conversation, sink Sink, report *TurnReport) []Turn {
	if o.model == nil {
		report.Err = errors.New("language model client is not configured")
		return []Turn{AssistantError(describeFailure(report.Err))}
	}

	var text strings.Builder
	for fragment, err := range o.model.Chat(ctx, conv.TextHistory()) {
		if err != nil {
			report.Err = fmt.Errorf("chat stream: %w", err)
			break
		}
		text.WriteString(fragment)
		report.Fragments++
		sink.Fragment(text.String())
	}
	observability.IncrementChatFragments(report.Fragments)

	if report.Err != nil {
		return []Turn{AssistantError(describeFailure(report.Err))}
	}
	return []Turn{AssistantText(text.String())}
}

func describeFailure(err error) string {
	return "Error: " + err.Error()
}
