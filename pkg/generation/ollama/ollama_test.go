package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/generation"
	"github.com/papercomputeco/stacks/pkg/generation/ollama"
)

var _ = Describe("Ollama Generator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should send a non-streaming generate request", func() {
		var gotBody map[string]any

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Method).To(Equal("POST"))
			Expect(r.URL.Path).To(Equal("/api/generate"))
			Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())

			json.NewEncoder(w).Encode(map[string]any{
				"response": "a stack is a LIFO structure",
				"done":     true,
			})
		}))
		defer server.Close()

		generator, err := ollama.NewGenerator(ollama.GeneratorConfig{
			BaseURL: server.URL,
			Model:   "llama3.2",
		})
		Expect(err).NotTo(HaveOccurred())

		answer, err := generator.Generate(ctx, generation.Request{
			Prompt: "what is a stack?",
			System: "answer briefly",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("a stack is a LIFO structure"))
		Expect(gotBody["model"]).To(Equal("llama3.2"))
		Expect(gotBody["stream"]).To(BeFalse())
		Expect(gotBody["system"]).To(Equal("answer briefly"))
	})

	It("should fold retrieved passages into the prompt", func() {
		var gotBody map[string]any

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())
			json.NewEncoder(w).Encode(map[string]any{"response": "ok", "done": true})
		}))
		defer server.Close()

		generator, err := ollama.NewGenerator(ollama.GeneratorConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = generator.Generate(ctx, generation.Request{
			Prompt:  "what is a stack?",
			Context: []string{"A stack is a LIFO structure."},
		})
		Expect(err).NotTo(HaveOccurred())

		prompt := gotBody["prompt"].(string)
		Expect(prompt).To(ContainSubstring("A stack is a LIFO structure."))
		Expect(prompt).To(ContainSubstring("Question: what is a stack?"))
	})

	It("should wrap server errors in ErrGeneration", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer server.Close()

		generator, err := ollama.NewGenerator(ollama.GeneratorConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = generator.Generate(ctx, generation.Request{Prompt: "hello"})
		Expect(err).To(MatchError(generation.ErrGeneration))
	})
})
