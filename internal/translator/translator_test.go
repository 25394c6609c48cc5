package translator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"

	"jargon-translator/internal/config"
	"jargon-translator/internal/embedding"
	"jargon-translator/internal/models"
	"jargon-translator/internal/rag"
	"jargon-translator/internal/watsonx"
)

const report = "Revenue grew 10%. Costs fell 5%. Net margin improved."

type fakeGenerator struct {
	calls   int
	prompts []string
	reply   string
	err     error
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

type fakeRetriever struct {
	calls    int
	passages []models.Passage
	err      error
}

func (r *fakeRetriever) Retrieve(context.Context, string, int) ([]models.Passage, error) {
	r.calls++
	return r.passages, r.err
}

type countingIndexer struct {
	*rag.RAG
	resets int
}

func (c *countingIndexer) Reset() {
	c.resets++
	c.RAG.Reset()
}

func newIndexer(embedCalls *int) *countingIndexer {
	factory := func() (embeddings.Embedder, error) {
		*embedCalls++
		return embedding.NewTFIDF(), nil
	}
	return &countingIndexer{RAG: rag.NewRAG(config.RAGConfig{ChunkSize: 20, TopK: 1, Index: config.IndexFlat}, factory)}
}

func TestLoadDocument(t *testing.T) {
	embedCalls := 0
	idx := newIndexer(&embedCalls)
	svc := NewService(idx, &fakeGenerator{}, 1)

	doc, warnings := svc.LoadDocument(context.Background(), "q3.pdf", report)
	assert.Empty(t, warnings)
	require.NotNil(t, doc.Index)
	assert.Equal(t, 3, doc.Chunks)
	assert.Equal(t, "q3.pdf", doc.Name)
	assert.Len(t, doc.Hash, 64)

	// same text again comes from the memo
	again, _ := svc.LoadDocument(context.Background(), "copy.pdf", report)
	assert.Same(t, doc.Index, again.Index)
	assert.Equal(t, 1, embedCalls)
}

func TestLoadDocumentWithoutText(t *testing.T) {
	for _, text := range []string{"", "  \n\t "} {
		embedCalls := 0
		idx := newIndexer(&embedCalls)
		gen := &fakeGenerator{reply: "Profit rose."}
		svc := NewService(idx, gen, 3)

		doc, warnings := svc.LoadDocument(context.Background(), "scan.pdf", text)
		assert.Nil(t, doc.Index)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "No text could be extracted")
		assert.Zero(t, embedCalls)
		assert.Equal(t, 1, idx.resets)

		// retrieval is skipped, translation still works
		st, out, err := svc.Translate(context.Background(), NewState(), doc, models.RoleStudent, "EBITDA rose.")
		require.NoError(t, err)
		assert.Empty(t, out.Warnings)
		assert.Empty(t, out.Sources)
		assert.NotContains(t, gen.prompts[0], "Relevant context")
		assert.Equal(t, "Profit rose.", st.Explanation)
	}
}

func TestLoadDocumentIndexFailure(t *testing.T) {
	failing := rag.NewRAG(config.RAGConfig{ChunkSize: 20, TopK: 1}, func() (embeddings.Embedder, error) {
		return nil, errors.New("ollama unreachable")
	})
	svc := NewService(failing, &fakeGenerator{}, 1)

	doc, warnings := svc.LoadDocument(context.Background(), "q3.pdf", report)
	assert.Nil(t, doc.Index)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "RAG error: ")
	assert.Contains(t, warnings[0], "ollama unreachable")
}

func TestTranslateUsesRetrievedContext(t *testing.T) {
	embedCalls := 0
	gen := &fakeGenerator{reply: "\n  Profits got better compared to sales.  \n"}
	svc := NewService(newIndexer(&embedCalls), gen, 1)
	doc, _ := svc.LoadDocument(context.Background(), "q3.pdf", report)

	st0 := NewState()
	st, out, err := svc.Translate(context.Background(), st0, doc, models.RoleInvestor, "What happened to margin?")
	require.NoError(t, err)

	assert.Equal(t, "Profits got better compared to sales.", out.Content)
	assert.Equal(t, State{SessionID: st0.SessionID, Input: "What happened to margin?", Explanation: out.Content}, st)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "margin improved.", out.Sources[0].Content)

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, "You are a financial tutor helping a investor understand the following:\n"+
		"\nRelevant context from document:\nmargin improved.\n"+
		"\nStatement:\nWhat happened to margin?\n\nExplain in simple terms.", gen.prompts[0])
	assert.Equal(t, gen.prompts[0], out.Prompt)
}

func TestTranslateEmptyStatementMakesNoCalls(t *testing.T) {
	for _, statement := range []string{"", "   ", "\n\t"} {
		gen := &fakeGenerator{reply: "x"}
		retriever := &fakeRetriever{}
		svc := NewService(nil, gen, 3)
		prev := State{SessionID: "s", Input: "old", Explanation: "old answer"}

		st, _, err := svc.Translate(context.Background(), prev, &Document{Index: retriever}, models.RoleStudent, statement)
		assert.ErrorIs(t, err, ErrEmptyStatement)
		assert.Equal(t, prev, st)
		assert.Zero(t, gen.calls)
		assert.Zero(t, retriever.calls)
	}
}

func TestTranslateRetrievalFailureIsAWarning(t *testing.T) {
	gen := &fakeGenerator{reply: "Sales went up."}
	svc := NewService(nil, gen, 3)
	doc := &Document{Index: &fakeRetriever{err: errors.New("dimension mismatch")}}

	st, out, err := svc.Translate(context.Background(), State{}, doc, models.RoleEmployee, "Revenue grew.")
	require.NoError(t, err)
	assert.Equal(t, []string{"RAG error: dimension mismatch"}, out.Warnings)
	assert.Equal(t, "Sales went up.", st.Explanation)
	assert.NotContains(t, gen.prompts[0], "Relevant context")
}

func TestTranslateGenerationFailureKeepsState(t *testing.T) {
	gen := &fakeGenerator{err: &watsonx.APIError{StatusCode: http.StatusInternalServerError, Body: "boom"}}
	svc := NewService(nil, gen, 3)
	prev := State{SessionID: "s", Input: "Revenue grew.", Explanation: "Sales went up."}

	st, _, err := svc.Translate(context.Background(), prev, nil, models.RoleStudent, "Costs fell.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, prev, st)
}

func TestTranslateAgainstWatsonxServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/identity/token" {
			_, _ = w.Write([]byte(`{"access_token":"t","token_type":"Bearer","expires_in":3600}`))
			return
		}
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := watsonx.NewClient(config.WatsonxConfig{
		APIKey:    "k",
		ProjectID: "p",
		IAMURL:    srv.URL + "/identity/token",
		URL:       srv.URL,
		Version:   "2024-05-29",
		ModelID:   "ibm/granite-3-3-8b-instruct",
	}, config.Default().Generation.Parameters, 0)
	require.NoError(t, err)

	svc := NewService(nil, client, 3)
	prev := State{SessionID: "s", Input: "Revenue grew.", Explanation: "Sales went up."}

	st, _, err := svc.Translate(context.Background(), prev, nil, models.RoleStudent, "Costs fell.")
	var apiErr *watsonx.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, prev, st)
}

func TestExplainMore(t *testing.T) {
	gen := &fakeGenerator{reply: " Money in went up. "}
	svc := NewService(nil, gen, 3)
	st := State{SessionID: "s", Input: "Revenue grew 10%.", Explanation: "Sales increased by a tenth."}

	out, err := svc.ExplainMore(context.Background(), st, models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "Money in went up.", out.Content)
	assert.Equal(t, "Explain the following even more simply for a student:\n\nSales increased by a tenth.", gen.prompts[0])
	assert.Equal(t, "Sales increased by a tenth.", st.Explanation)
}

func TestExplainMoreRequiresExplanation(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewService(nil, gen, 3)

	_, err := svc.ExplainMore(context.Background(), State{Input: "x"}, models.RoleStudent)
	assert.ErrorIs(t, err, ErrNoExplanation)
	assert.Zero(t, gen.calls)
}

func TestExplainMoreFailure(t *testing.T) {
	gen := &fakeGenerator{err: &watsonx.NetworkError{Err: errors.New("connection reset")}}
	svc := NewService(nil, gen, 3)

	_, err := svc.ExplainMore(context.Background(), State{Explanation: "Sales went up."}, models.RoleInvestor)
	var netErr *watsonx.NetworkError
	assert.ErrorAs(t, err, &netErr)
}
