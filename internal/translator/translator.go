// Package translator runs the translate and explain-more actions of a
// session. Session state is a plain value: every action takes the current
// State and returns the next one, and a failed action hands back the State
// it was given.
package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"jargon-translator/internal/helper"
	"jargon-translator/internal/models"
	"jargon-translator/internal/prompt"
	"jargon-translator/internal/rag"
)

var (
	ErrEmptyStatement = errors.New("please enter a financial statement")
	ErrNoExplanation  = errors.New("nothing to simplify yet, translate a statement first")
)

// Generator turns a prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever returns the k document chunks closest to query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.Passage, error)
}

// Indexer builds the Retriever for a document's text.
type Indexer interface {
	Index(ctx context.Context, text string) (*rag.Index, error)
	Reset()
}

// State is what a session carries between actions.
type State struct {
	SessionID   string `json:"session_id"`
	Input       string `json:"input"`
	Explanation string `json:"explanation"`
}

// NewState starts a session with a fresh id.
func NewState() State {
	id, err := helper.GenerateUUID()
	if err != nil {
		log.Warn().Err(err).Msg("Could not generate session id")
	}
	return State{SessionID: id}
}

// Document is an uploaded document ready for retrieval. Index is nil when
// the document has no usable text; translation then runs without context.
type Document struct {
	Name   string    `json:"name"`
	Hash   string    `json:"hash"`
	Chunks int       `json:"chunks"`
	Index  Retriever `json:"-"`
}

type Service struct {
	indexer Indexer
	gen     Generator
	topK    int
}

func NewService(indexer Indexer, gen Generator, topK int) *Service {
	return &Service{indexer: indexer, gen: gen, topK: topK}
}

// LoadDocument indexes text for retrieval. Problems that only cost the
// session its retrieval context come back as warnings, never as an error.
func (s *Service) LoadDocument(ctx context.Context, name, text string) (*Document, []string) {
	doc := &Document{Name: name, Hash: helper.HashContent(text)}

	if strings.TrimSpace(text) == "" {
		s.indexer.Reset()
		return doc, []string{noTextWarning(name)}
	}

	idx, err := s.indexer.Index(ctx, text)
	if err != nil {
		if errors.Is(err, rag.ErrNoText) {
			return doc, []string{noTextWarning(name)}
		}
		log.Error().Err(err).Str("document", name).Msg("Failed to index document")
		return doc, []string{"RAG error: " + err.Error()}
	}

	doc.Index = idx
	doc.Chunks = idx.Len()
	log.Info().Str("document", name).Int("chunks", doc.Chunks).Msg("Document indexed")
	return doc, nil
}

func noTextWarning(name string) string {
	return fmt.Sprintf("No text could be extracted from %s; explanations will not use document context.", name)
}

// UnloadDocument forgets any cached index.
func (s *Service) UnloadDocument() {
	s.indexer.Reset()
}

// Translate explains statement for role, grounded in doc when it has an
// index. On success the returned State holds the statement and the trimmed
// explanation.
func (s *Service) Translate(ctx context.Context, st State, doc *Document, role models.Role, statement string) (State, models.Explanation, error) {
	if strings.TrimSpace(statement) == "" {
		return st, models.Explanation{}, ErrEmptyStatement
	}

	out := models.Explanation{SessionID: st.SessionID, Role: role, Statement: statement}

	var contextChunks []string
	if doc != nil && doc.Index != nil {
		passages, err := doc.Index.Retrieve(ctx, statement, s.topK)
		if err != nil {
			log.Warn().Err(err).Msg("Retrieval failed, continuing without context")
			out.Warnings = append(out.Warnings, "RAG error: "+err.Error())
		} else {
			out.Sources = passages
			for _, p := range passages {
				contextChunks = append(contextChunks, p.Content)
			}
		}
	}

	out.Prompt = prompt.Build(role, contextChunks, statement)
	text, err := s.gen.Generate(ctx, out.Prompt)
	if err != nil {
		log.Error().Err(err).Str("session", st.SessionID).Msg("Translation failed")
		return st, out, err
	}

	out.Content = strings.TrimSpace(text)
	log.Info().
		Str("session", st.SessionID).
		Str("role", role.String()).
		Int("sources", len(out.Sources)).
		Msg("Statement translated")

	return State{SessionID: st.SessionID, Input: statement, Explanation: out.Content}, out, nil
}

// ExplainMore simplifies the stored explanation further. The result is not
// stored in the State.
func (s *Service) ExplainMore(ctx context.Context, st State, role models.Role) (models.Explanation, error) {
	if st.Explanation == "" {
		return models.Explanation{}, ErrNoExplanation
	}

	out := models.Explanation{SessionID: st.SessionID, Role: role, Statement: st.Input}
	out.Prompt = prompt.FollowUp(role, st.Explanation)

	text, err := s.gen.Generate(ctx, out.Prompt)
	if err != nil {
		log.Error().Err(err).Str("session", st.SessionID).Msg("Follow-up explanation failed")
		return out, err
	}
	out.Content = strings.TrimSpace(text)
	return out, nil
}
