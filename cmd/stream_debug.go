package cmd

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepwisehq/stepwise/pkg/mathd"
	"github.com/stepwisehq/stepwise/pkg/solver"
	"github.com/stepwisehq/stepwise/pkg/stream"
)

var streamDebugCmd = &cobra.Command{
	Use:    "stream-debug [question]",
	Short:  "Debug the solve stream against an in-process solver",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("🚀 Testing Solve Stream Integration")
		fmt.Println("===================================")

		question := "Solve 2x + 5 = 11"
		if len(args) > 0 {
			question = questionFromArgs(args)
		}

		// Test 1: in-process solver, no external services required
		fmt.Println("\n1. Starting in-process solver...")
		srv, err := mathd.NewServer(mathd.Options{StepDelay: 50 * time.Millisecond})
		if err != nil {
			log.Fatalf("❌ Failed to start solver: %v", err)
		}
		defer srv.Close()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatalf("❌ Failed to listen: %v", err)
		}
		httpSrv := &http.Server{Handler: srv.Handler()}
		go httpSrv.Serve(ln)
		defer httpSrv.Close()

		baseURL := "http://" + ln.Addr().String()
		fmt.Printf("✅ Solver listening on %s\n", baseURL)

		// Test 2: open the stream through the real client
		fmt.Println("\n2. Opening solve stream...")
		client := solver.NewClient(baseURL, solver.WithIdleTimeout(10*time.Second))

		ctx, stop := signalContext()
		defer stop()

		st, err := client.OpenSolveStream(ctx, solver.SolveRequest{
			Question:  question,
			SessionID: "stream-debug",
		})
		if err != nil {
			log.Fatalf("❌ Failed to open stream: %v", err)
		}
		defer st.Cancel()
		fmt.Printf("✅ Stream open for %q\n", question)

		// Test 3: dispatch every event as it arrives
		fmt.Println("\n3. Events:")
		var sol *stream.SolutionData
		stream.DispatchAll(ctx, st.Events(), stream.Callbacks{
			OnConnected: func(p stream.ConnectedPayload) {
				fmt.Printf("   connected           session=%s\n", p.SessionID)
			},
			OnProcessingStarted: func(p stream.ProcessingStartedPayload) {
				fmt.Printf("   processing_started  %s\n", p.Message)
			},
			OnRouting: func(p stream.RoutingPayload) {
				fmt.Printf("   routing             %s\n", p.Message)
			},
			OnRoutingResult: func(p stream.RoutingResultPayload) {
				fmt.Printf("   routing_result      route=%s confidence=%.2f\n", p.Route, p.Confidence)
			},
			OnStepUpdate: func(p stream.StepUpdatePayload) {
				progress := "-"
				if p.Progress != nil {
					progress = fmt.Sprintf("%d%%", *p.Progress)
				}
				fmt.Printf("   step_update         step=%d progress=%s %s\n", p.Step, progress, p.Message)
			},
			OnStepGenerated: func(p stream.StepGeneratedPayload) {
				fmt.Printf("   step_generated      %d/%d %s\n", p.StepNumber, p.TotalSteps, p.StepData.Text)
			},
			OnCompletion: func(p stream.CompletionPayload) {
				fmt.Printf("   completion          %s\n", p.Message)
			},
			OnSolutionComplete: func(p stream.SolutionCompletePayload) {
				data := p.Data
				sol = &data
				fmt.Printf("   solution_complete   answer=%q\n", data.FinalAnswer)
			},
			OnError: func(p stream.ErrorPayload) {
				fmt.Printf("   error               %s\n", p.Message)
			},
			OnUnknown: func(env stream.Envelope) {
				fmt.Printf("   unknown             type=%q\n", env.Type)
			},
		})

		if err := st.Err(); err != nil {
			log.Fatalf("❌ Stream failed: %v", err)
		}
		if sol == nil {
			log.Fatal("❌ Stream ended without a solution")
		}

		fmt.Println("\n🎉 Solve Stream Summary")
		fmt.Println("=======================")
		fmt.Printf("✅ Route: %s (confidence %.2f)\n", sol.Route, sol.Confidence)
		fmt.Printf("✅ Steps: %d\n", len(sol.Steps))
		fmt.Printf("✅ Answer: %s\n", sol.FinalAnswer)
	},
}

func init() {
	rootCmd.AddCommand(streamDebugCmd)
}
