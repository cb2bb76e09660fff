// Command demo wires a Caller against the anthropic provider and runs one
// chat call, the same "construct then run a trivial call" shape as the
// teacher's own cmd/demo.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	llmcore "goa.design/llmcore"
	"goa.design/llmcore/model"
)

func main() {
	caller, err := llmcore.New("anthropic", "cheap", "You are a concise assistant.", llmcore.Options{
		APIKey: os.Getenv("ANTHROPIC_API_KEY"),
		Models: []model.Info{
			{
				Name:                  "claude-haiku-4-5",
				InputPricePerMillion:  1,
				OutputPricePerMillion: 5,
				MaxRequestTokens:      200_000,
				MaxResponseTokens:     8_192,
				Capabilities: model.Capabilities{
					Streaming: true,
					Output:    model.OutputCapability{TextOutputFormats: []string{"text", "json"}},
				},
				Characteristics: model.Characteristics{QualityIndex: 70, OutputSpeed: 120, FirstTokenLatency: 600},
			},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	responses, err := caller.Call(context.Background(), llmcore.Input{Text: "Say hello in five words."})
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range responses {
		if r.Content != nil {
			fmt.Println(*r.Content)
		}
	}
}
