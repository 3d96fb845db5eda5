package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/generation"
	"github.com/papercomputeco/stacks/pkg/generation/gemini"
)

var _ = Describe("Gemini Generator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should require an API key", func() {
		_, err := gemini.NewGenerator(gemini.GeneratorConfig{})
		Expect(err).To(HaveOccurred())
	})

	It("should call generateContent and return the first candidate", func() {
		var gotBody map[string]any

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1beta/models/gemini-1.5-flash:generateContent"))
			Expect(r.Header.Get("x-goog-api-key")).To(Equal("test-key"))
			Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())

			json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{
					{
						"content": map[string]any{
							"role":  "model",
							"parts": []map[string]any{{"text": "the answer"}},
						},
					},
				},
			})
		}))
		defer server.Close()

		generator, err := gemini.NewGenerator(gemini.GeneratorConfig{
			BaseURL: server.URL,
			APIKey:  "test-key",
		})
		Expect(err).NotTo(HaveOccurred())

		answer, err := generator.Generate(ctx, generation.Request{
			Prompt: "what is the answer?",
			System: "answer briefly",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("the answer"))
		Expect(gotBody).To(HaveKey("systemInstruction"))
	})

	It("should fail when no candidates are returned", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
		}))
		defer server.Close()

		generator, err := gemini.NewGenerator(gemini.GeneratorConfig{
			BaseURL: server.URL,
			APIKey:  "test-key",
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = generator.Generate(ctx, generation.Request{Prompt: "hello"})
		Expect(err).To(MatchError(generation.ErrGeneration))
	})
})
