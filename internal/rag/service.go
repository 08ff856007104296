package rag

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/josinaldojr/smart-assistant/internal/rag")

const DefaultTopK = 30

type Options struct {
	TopK         int
	SystemPrompt string
	// Rephrase rewrites the latest question as self-contained before embedding it.
	Rephrase bool
	// AnswerLanguage: "" (no directive), "auto" or a language code/name.
	AnswerLanguage string
}

type Service struct {
	embeddings EmbeddingsClient
	retriever  Retriever
	completion CompletionClient
	opts       Options
}

func NewService(embeddings EmbeddingsClient, retriever Retriever, completion CompletionClient, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if strings.TrimSpace(opts.SystemPrompt) == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	return &Service{
		embeddings: embeddings,
		retriever:  retriever,
		completion: completion,
		opts:       opts,
	}
}

// Reply runs one user turn through embed -> retrieve -> generate and returns the assistant turn.
func (s *Service) Reply(ctx context.Context, conv Conversation) (turn Turn, err error) {
	ctx, span := tracer.Start(ctx, "rag.Reply", trace.WithAttributes(
		attribute.Int("rag.turns", len(conv)),
		attribute.Int("rag.top_k", s.opts.TopK),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := conv.Validate(); err != nil {
		return Turn{}, err
	}

	latest := conv.Latest().Content
	query := latest

	if s.opts.Rephrase && len(conv) > 1 {
		rephrased, err := s.rephrase(ctx, conv[:len(conv)-1], latest)
		if err != nil {
			return Turn{}, err
		}
		query = rephrased
	}

	// Embedding da pergunta
	vec, err := s.embeddings.Embed(ctx, query)
	if err != nil {
		return Turn{}, asStage(StageEmbedding, err)
	}

	// Busca vetorial
	docs, err := s.retriever.Search(ctx, vec, s.opts.TopK)
	if err != nil {
		return Turn{}, asStage(StageRetrieval, err)
	}
	slog.DebugContext(ctx, "retrieved documents", "count", len(docs), "top_k", s.opts.TopK)
	span.SetAttributes(attribute.Int("rag.documents", len(docs)))

	system := s.opts.SystemPrompt
	if directive := languageDirective(s.opts.AnswerLanguage, latest); directive != "" {
		system += "\n" + directive
	}

	// Gera resposta final com o contexto recuperado
	msgs := ComposeMessages(system, docs, conv, latest)
	reply, err := s.completion.Complete(ctx, msgs)
	if err != nil {
		return Turn{}, asStage(StageGeneration, err)
	}
	if strings.TrimSpace(reply) == "" {
		return Turn{}, NewError(StageGeneration, 0, "", errors.New("model returned empty text"))
	}

	return Turn{Role: RoleAssistant, Content: reply}, nil
}

func (s *Service) rephrase(ctx context.Context, history Conversation, latest string) (string, error) {
	out, err := s.completion.Complete(ctx, rephraseMessages(history, latest))
	if err != nil {
		return "", asStage(StageGeneration, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return latest, nil
	}
	slog.DebugContext(ctx, "rephrased question", "question", out)
	return out, nil
}
