// Package marketing drafts marketing emails from uploaded company documents
// with a fixed research, strategy and writer pipeline.
package marketing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"geoagent/internal/config"
	"geoagent/internal/logger"
)

type Stage string

const (
	StageResearch Stage = "research"
	StageStrategy Stage = "strategy"
	StageWriter   Stage = "writer"
	StageEnd      Stage = "end"
)

var (
	ErrNoDocuments = errors.New("no supported documents were uploaded")
	ErrNoChunks    = errors.New("the documents produced no text chunks")
)

// Completer is a single-turn text generator
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AgentState is the pipeline's working record. Topic and RecipientType are
// inputs; each stage writes its own output field exactly once.
type AgentState struct {
	Topic         string
	RecipientType string

	ResearchFindings string
	EmailStrategy    string
	FinalEmail       string

	CurrentAgent Stage
	NextAgent    Stage
	Done         bool

	// Visited lists stages in the order they ran
	Visited []Stage
}

type Pipeline struct {
	llm      Completer
	embedder Embedder
	splitter *TextSplitter
	k        int

	// observe is called with a copy of the state after each stage
	observe func(stage Stage, state AgentState)
}

func New(llm Completer, embedder Embedder, cfg config.MarketingConfig) *Pipeline {
	return &Pipeline{
		llm:      llm,
		embedder: embedder,
		splitter: NewTextSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		k:        cfg.RetrievalK,
	}
}

// Generate runs the pipeline and returns the drafted email. Failures come
// back as text starting with "An error occurred: ", never as an error.
func (p *Pipeline) Generate(ctx context.Context, files []File, topic, recipientType string) string {
	state, err := p.Run(ctx, files, topic, recipientType)
	if err != nil {
		logger.Errorf("Email generation failed: %v", err)
		return "An error occurred: " + err.Error()
	}
	return state.FinalEmail
}

// Run loads and indexes files, then walks research, strategy and writer.
// The returned state is non-nil whenever indexing succeeded, also on error.
func (p *Pipeline) Run(ctx context.Context, files []File, topic, recipientType string) (*AgentState, error) {
	docs, err := LoadDocuments(files)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	chunks := p.splitter.SplitDocuments(docs)
	logger.Infof("Created %d text chunks for processing", len(chunks))

	index, err := BuildIndex(ctx, p.embedder, chunks)
	if err != nil {
		return nil, err
	}

	state := &AgentState{
		Topic:         topic,
		RecipientType: recipientType,
		NextAgent:     StageResearch,
	}
	return state, p.execute(ctx, state, index)
}

func (p *Pipeline) execute(ctx context.Context, state *AgentState, index *Index) error {
	stage := state.NextAgent
	for stage != StageEnd {
		if slices.Contains(state.Visited, stage) {
			return fmt.Errorf("stage %s already ran", stage)
		}
		state.Visited = append(state.Visited, stage)

		var err error
		switch stage {
		case StageResearch:
			err = p.research(ctx, state, index)
		case StageStrategy:
			err = p.strategy(ctx, state)
		case StageWriter:
			err = p.writer(ctx, state)
		default:
			return fmt.Errorf("unknown stage %q", stage)
		}
		if err != nil {
			return fmt.Errorf("%s stage failed: %w", stage, err)
		}

		if p.observe != nil {
			snapshot := *state
			snapshot.Visited = slices.Clone(state.Visited)
			p.observe(stage, snapshot)
		}
		stage = nextStage(state)
	}
	return nil
}

// nextStage is the edge out of the stage that just ran. Only the writer
// sets Done, which routes to the terminal state.
func nextStage(state *AgentState) Stage {
	if state.Done {
		return StageEnd
	}
	return state.NextAgent
}

func (p *Pipeline) research(ctx context.Context, state *AgentState, index *Index) error {
	logger.Infof("[research] Analyzing documents...")

	query := fmt.Sprintf(researchQueryTemplate, state.Topic)
	chunks, err := index.Search(ctx, query, p.k)
	if err != nil {
		return err
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = chunk.Text
	}

	findings, err := p.llm.Complete(ctx, fmt.Sprintf(retrievalQATemplate, strings.Join(parts, "\n\n"), query))
	if err != nil {
		return err
	}

	state.ResearchFindings = findings
	state.CurrentAgent = StageResearch
	state.NextAgent = StageStrategy
	return nil
}

func (p *Pipeline) strategy(ctx context.Context, state *AgentState) error {
	logger.Infof("[strategy] Planning email approach...")

	plan, err := p.llm.Complete(ctx, fmt.Sprintf(strategyTemplate, state.ResearchFindings, state.RecipientType, state.Topic))
	if err != nil {
		return err
	}

	state.EmailStrategy = plan
	state.CurrentAgent = StageStrategy
	state.NextAgent = StageWriter
	return nil
}

func (p *Pipeline) writer(ctx context.Context, state *AgentState) error {
	logger.Infof("[writer] Composing email...")

	email, err := p.llm.Complete(ctx, fmt.Sprintf(writerTemplate, state.ResearchFindings, state.EmailStrategy, state.Topic, state.RecipientType))
	if err != nil {
		return err
	}

	state.FinalEmail = email
	state.CurrentAgent = StageWriter
	state.Done = true
	return nil
}
