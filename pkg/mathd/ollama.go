package mathd

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/stepwisehq/stepwise/pkg/logger"
)

// OllamaSolver asks a local Ollama model for worked steps. Configuring
// solver.provider=ollama swaps it in for the builtin solver.
type OllamaSolver struct {
	llm llms.Model
	log *logger.Logger
}

// NewOllamaSolver connects to an Ollama server.
func NewOllamaSolver(baseURL, model string) (*OllamaSolver, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama LLM: %w", err)
	}
	return &OllamaSolver{
		llm: llm,
		log: logger.WithComponent("ollama_solver"),
	}, nil
}

const solvePrompt = `You are a careful math tutor. Solve the following problem step by step.

Problem: %s

Respond in exactly this format, one line per step:
STEP: <first step>
STEP: <next step>
ANSWER: <final answer on one line>`

// Solve prompts the model and parses STEP and ANSWER lines from the reply.
func (o *OllamaSolver) Solve(ctx context.Context, question string) (*Worked, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, o.llm, fmt.Sprintf(solvePrompt, question))
	if err != nil {
		return nil, fmt.Errorf("ollama generation failed: %w", err)
	}

	worked := parseWorked(response)
	if worked == nil {
		o.log.Warn("Model reply had no parseable steps", "reply_length", len(response))
		return nil, ErrCannotSolve
	}
	return worked, nil
}

func parseWorked(response string) *Worked {
	var worked Worked
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "STEP:"):
			text := strings.TrimSpace(strings.TrimPrefix(line, "STEP:"))
			if text != "" {
				worked.Steps = append(worked.Steps, Step{
					Step: len(worked.Steps) + 1,
					Text: text,
					Type: "solution_step",
				})
			}
		case strings.HasPrefix(line, "ANSWER:"):
			worked.FinalAnswer = strings.TrimSpace(strings.TrimPrefix(line, "ANSWER:"))
		}
	}
	if len(worked.Steps) == 0 && worked.FinalAnswer == "" {
		return nil
	}
	return &worked
}
