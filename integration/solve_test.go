package integration

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/stepwisehq/stepwise/pkg/chat"
	"github.com/stepwisehq/stepwise/pkg/mathd"
	"github.com/stepwisehq/stepwise/pkg/session"
	"github.com/stepwisehq/stepwise/pkg/solver"
	"github.com/stepwisehq/stepwise/pkg/stream"
)

func TestIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Integration Suite")
}

// skipUnlessEnabled gates the suite behind an explicit opt-in.
func skipUnlessEnabled() {
	viper.SetEnvPrefix("")
	viper.AutomaticEnv()

	if viper.GetString("INTEGRATION_TEST") != "true" {
		Skip("Integration tests skipped. Set INTEGRATION_TEST=true to run.")
	}
}

// startSolver brings up an in-process solver service and returns a client
// pointed at it plus a teardown func.
func startSolver(opts mathd.Options) (*solver.Client, func()) {
	srv, err := mathd.NewServer(opts)
	Expect(err).ToNot(HaveOccurred())

	ts := httptest.NewServer(srv.Handler())
	client := solver.NewClient(ts.URL, solver.WithIdleTimeout(10*time.Second))
	return client, func() {
		ts.Close()
		srv.Close()
	}
}

var _ = Describe("Solve Stream Integration", func() {
	var (
		client  *solver.Client
		cleanup func()
		ctx     context.Context
		cancel  context.CancelFunc
	)

	BeforeEach(func() {
		skipUnlessEnabled()

		client, cleanup = startSolver(mathd.Options{StepDelay: time.Millisecond})
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	})

	AfterEach(func() {
		if cancel != nil {
			cancel()
		}
		if cleanup != nil {
			cleanup()
		}
	})

	Describe("Canonical event sequence", func() {
		It("should stream the full sequence for a knowledge base question", func() {
			st, err := client.OpenSolveStream(ctx, solver.SolveRequest{
				Question:  "Solve 2x + 5 = 11",
				SessionID: "s1",
			})
			Expect(err).ToNot(HaveOccurred())
			defer st.Cancel()

			var (
				types    []string
				routing  *stream.RoutingResultPayload
				steps    []stream.StepGeneratedPayload
				solution *stream.SolutionCompletePayload
			)
			for env := range st.Events() {
				types = append(types, env.Type)
				err := stream.Dispatch(env, stream.Callbacks{
					OnRoutingResult: func(p stream.RoutingResultPayload) {
						routing = &p
					},
					OnStepGenerated: func(p stream.StepGeneratedPayload) {
						steps = append(steps, p)
					},
					OnSolutionComplete: func(p stream.SolutionCompletePayload) {
						solution = &p
					},
				})
				Expect(err).ToNot(HaveOccurred())
			}
			Expect(st.Err()).ToNot(HaveOccurred())

			Expect(types[0]).To(Equal(stream.EventConnected))
			Expect(types[1]).To(Equal(stream.EventProcessingStarted))
			Expect(types).To(ContainElement(stream.EventRouting))
			Expect(types[len(types)-2]).To(Equal(stream.EventCompletion))
			Expect(types[len(types)-1]).To(Equal(stream.EventSolutionComplete))

			Expect(routing).ToNot(BeNil())
			Expect(routing.Route).To(Equal("knowledge_base"))
			Expect(routing.Confidence).To(BeNumerically(">", 0.9))

			Expect(steps).To(HaveLen(4))
			Expect(steps[0].StepNumber).To(Equal(1))
			Expect(steps[0].TotalSteps).To(Equal(4))
			Expect(steps[0].StepData.Text).To(ContainSubstring("Start with the equation"))

			Expect(solution).ToNot(BeNil())
			Expect(solution.Data.FinalAnswer).To(Equal("x = 3"))
			Expect(solution.Data.SessionID).To(Equal("s1"))
		})
	})

	Describe("Session manager end to end", func() {
		It("should deliver the worked solution into the message store", func() {
			store := chat.NewStore()
			manager := session.NewManager(client, store, session.Sinks{})

			ctrl, err := manager.Ask(ctx, "Solve 2x + 5 = 11")
			Expect(err).ToNot(HaveOccurred())
			Eventually(ctrl.Done(), 30*time.Second).Should(BeClosed())

			msg, ok := store.LastAssistant()
			Expect(ok).To(BeTrue())
			Expect(msg.IsError).To(BeFalse())
			Expect(msg.StreamingSessionID).To(BeEmpty())
			Expect(msg.Progress).To(Equal(100))
			Expect(msg.Solution).ToNot(BeNil())
			Expect(msg.Solution.FinalAnswer).To(Equal("x = 3"))
			Expect(msg.Solution.Route).To(Equal("knowledge_base"))
			Expect(msg.Steps).To(HaveLen(4))
		})

		It("should mark a follow-up question context aware", func() {
			store := chat.NewStore()
			manager := session.NewManager(client, store, session.Sinks{})

			first, err := manager.Ask(ctx, "Solve 2x + 5 = 11")
			Expect(err).ToNot(HaveOccurred())
			Eventually(first.Done(), 30*time.Second).Should(BeClosed())

			firstMsg, ok := store.LastAssistant()
			Expect(ok).To(BeTrue())
			Expect(firstMsg.Solution.ContextAware).To(BeFalse())

			second, err := manager.Ask(ctx, "What is 2 + 3 * 4?")
			Expect(err).ToNot(HaveOccurred())
			Eventually(second.Done(), 30*time.Second).Should(BeClosed())

			secondMsg, ok := store.LastAssistant()
			Expect(ok).To(BeTrue())
			Expect(secondMsg.Solution).ToNot(BeNil())
			Expect(secondMsg.Solution.FinalAnswer).To(Equal("14"))
			Expect(secondMsg.Solution.ContextAware).To(BeTrue())
		})

		It("should surface connection failures without an error message state", func() {
			store := chat.NewStore()
			var sunkErr error
			manager := session.NewManager(client, store, session.Sinks{
				OnError: func(msg chat.Message, err error) { sunkErr = err },
			})

			// Take the solver away before asking.
			cleanup()
			cleanup = nil

			_, err := manager.Ask(ctx, "Solve 2x + 5 = 11")
			Expect(err).To(HaveOccurred())

			var connErr *solver.ConnectionError
			Expect(errors.As(err, &connErr)).To(BeTrue())
			Expect(sunkErr).To(Equal(err))

			msg, ok := store.LastAssistant()
			Expect(ok).To(BeTrue())
			Expect(msg.IsError).To(BeFalse())
			Expect(msg.StreamingSessionID).To(BeEmpty())
			Expect(msg.Text).To(ContainSubstring("Connection error"))
		})
	})
})
