package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/stepwisehq/stepwise/pkg/solver"
	"github.com/stepwisehq/stepwise/pkg/stream"
)

// KnowledgeBaseQuestions are seeded into the dev solver's knowledge base and
// should come back with the knowledge_base route.
var KnowledgeBaseQuestions = []string{
	"Solve 2x + 5 = 11",
	"What is 2 + 3 * 4?",
	"What is the Pythagorean theorem?",
}

// WebSearchQuestions have no knowledge base entry and should fall through to
// the web_search route.
var WebSearchQuestions = []string{
	"Solve 7w - 9 = 5",
	"What is 128 / (4 + 4)?",
	"Explain how derivatives work",
}

// AllQuestions combines both sets for a full routing sweep.
var AllQuestions = append(KnowledgeBaseQuestions, WebSearchQuestions...)

type questionResult struct {
	Question    string
	Route       string
	Confidence  float64
	FinalAnswer string
	Steps       int
	Elapsed     time.Duration
	Err         error
}

func main() {
	var (
		serverURL   = flag.String("server", "http://localhost:8000", "solver service URL")
		questionSet = flag.String("questions", "all", "Questions to run: 'kb', 'web', 'all', or a semicolon-separated list")
		timeout     = flag.Duration("timeout", 60*time.Second, "per-question timeout")
	)
	flag.Parse()

	var questions []string
	switch strings.ToLower(*questionSet) {
	case "kb":
		questions = KnowledgeBaseQuestions
		fmt.Println("🎯 Running KNOWLEDGE BASE questions")
	case "web":
		questions = WebSearchQuestions
		fmt.Println("🌐 Running WEB SEARCH questions")
	case "all":
		questions = AllQuestions
		fmt.Println("🚀 Running ALL routing questions")
	default:
		questions = strings.Split(*questionSet, ";")
		for i, q := range questions {
			questions[i] = strings.TrimSpace(q)
		}
		fmt.Printf("🔧 Running CUSTOM question list: %d questions\n", len(questions))
	}

	if len(questions) == 0 {
		fmt.Println("❌ No questions to run")
		os.Exit(1)
	}

	client := solver.NewClient(*serverURL, solver.WithIdleTimeout(*timeout))

	fmt.Printf("🔗 Connecting to solver at: %s\n", *serverURL)
	fmt.Printf("📊 Running %d questions...\n\n", len(questions))

	var results []questionResult
	for i, q := range questions {
		fmt.Printf("%d. %s\n", i+1, q)

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		res := runQuestion(ctx, client, q)
		cancel()
		results = append(results, res)

		if res.Err != nil {
			fmt.Printf("   ❌ %v\n", res.Err)
			continue
		}
		fmt.Printf("   ✅ route=%s confidence=%.2f steps=%d answer=%q (%v)\n",
			res.Route, res.Confidence, res.Steps, res.FinalAnswer,
			res.Elapsed.Round(time.Millisecond))
	}

	printSummary(results)

	for _, res := range results {
		if res.Err != nil {
			os.Exit(1)
		}
	}
}

// runQuestion streams one question to completion and records how it routed.
func runQuestion(ctx context.Context, client *solver.Client, question string) questionResult {
	res := questionResult{Question: question}
	start := time.Now()

	st, err := client.OpenSolveStream(ctx, solver.SolveRequest{Question: question})
	if err != nil {
		res.Err = err
		return res
	}
	defer st.Cancel()

	var failure string
	stream.DispatchAll(ctx, st.Events(), stream.Callbacks{
		OnSolutionComplete: func(p stream.SolutionCompletePayload) {
			res.Route = p.Data.Route
			res.Confidence = p.Data.Confidence
			res.FinalAnswer = p.Data.FinalAnswer
			res.Steps = len(p.Data.Steps)
		},
		OnError: func(p stream.ErrorPayload) {
			failure = p.Message
		},
	})
	res.Elapsed = time.Since(start)

	switch {
	case st.Err() != nil:
		res.Err = st.Err()
	case failure != "":
		res.Err = errors.New(failure)
	case res.Route == "":
		res.Err = errors.New("stream ended without a solution")
	}
	return res
}

func printSummary(results []questionResult) {
	fmt.Printf("\n%s\n", strings.Repeat("=", 60))
	fmt.Println("📊 ROUTING SUMMARY")
	fmt.Println(strings.Repeat("=", 60))

	routes := map[string]int{}
	failed := 0
	var total time.Duration
	for _, res := range results {
		if res.Err != nil {
			failed++
			continue
		}
		routes[res.Route]++
		total += res.Elapsed
	}

	succeeded := len(results) - failed
	fmt.Printf("   Questions: %d (%d ok, %d failed)\n", len(results), succeeded, failed)
	for route, count := range routes {
		fmt.Printf("   %-16s %d\n", route, count)
	}
	if succeeded > 0 {
		fmt.Printf("   Average time: %v\n", (total / time.Duration(succeeded)).Round(time.Millisecond))
	}

	if failed > 0 {
		fmt.Println("\n❌ Some questions failed")
	} else {
		fmt.Println("\n✅ All questions solved")
	}
}
