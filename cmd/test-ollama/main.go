package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/stepwisehq/stepwise/pkg/mathd"
)

func main() {
	var (
		ollamaURL = flag.String("url", "http://localhost:11434", "Ollama server URL")
		model     = flag.String("model", "qwen3:latest", "model to solve with")
		timeout   = flag.Duration("timeout", 90*time.Second, "per-question timeout")
	)
	flag.Parse()

	fmt.Println("🧪 Testing Ollama Solver")
	fmt.Println("========================")

	s, err := mathd.NewOllamaSolver(*ollamaURL, *model)
	if err != nil {
		log.Fatalf("❌ Failed to create solver: %v", err)
	}

	fmt.Printf("✅ Solver created for %s at %s\n", *model, *ollamaURL)

	scenarios := []struct {
		name     string
		question string
	}{
		{
			name:     "Linear Equation",
			question: "Solve 2x + 5 = 11",
		},
		{
			name:     "Order of Operations",
			question: "What is 2 + 3 * 4?",
		},
		{
			name:     "Word Problem",
			question: "A train travels 120 miles in 2 hours. What is its average speed?",
		},
		{
			name:     "Concept Question",
			question: "What is the quadratic formula?",
		},
	}

	failures := 0
	for i, scenario := range scenarios {
		fmt.Printf("\n🧪 Test %d: %s\n", i+1, scenario.name)
		fmt.Printf("❓ Question: %s\n", scenario.question)
		fmt.Println("🔄 Solving...")

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		worked, err := s.Solve(ctx, scenario.question)
		cancel()

		switch {
		case errors.Is(err, mathd.ErrCannotSolve):
			failures++
			fmt.Println("❌ Model produced no parseable solution")
		case err != nil:
			failures++
			fmt.Printf("❌ Error: %v\n", err)
		default:
			for _, step := range worked.Steps {
				fmt.Printf("   %d. %s\n", step.Step, step.Text)
			}
			fmt.Printf("✅ Answer: %s\n", worked.FinalAnswer)
		}

		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}

	if failures > 0 {
		log.Fatalf("❌ %d of %d questions failed", failures, len(scenarios))
	}

	fmt.Println("\n🎉 Testing completed!")
	fmt.Printf("📊 %d questions solved by %s\n", len(scenarios), *model)
}
