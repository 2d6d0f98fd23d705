package integration

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stepwisehq/stepwise/pkg/chat"
	"github.com/stepwisehq/stepwise/pkg/mathd"
	"github.com/stepwisehq/stepwise/pkg/session"
	"github.com/stepwisehq/stepwise/pkg/solver"
)

var _ = Describe("Feedback Integration", func() {
	var (
		client  *solver.Client
		cleanup func()
		ctx     context.Context
		cancel  context.CancelFunc
		store   *chat.Store
		manager *session.Manager
	)

	BeforeEach(func() {
		skipUnlessEnabled()

		client, cleanup = startSolver(mathd.Options{StepDelay: time.Millisecond})
		ctx, cancel = context.WithTimeout(context.Background(), 60*time.Second)
		store = chat.NewStore()
		manager = session.NewManager(client, store, session.Sinks{})
	})

	AfterEach(func() {
		if cancel != nil {
			cancel()
		}
		if cleanup != nil {
			cleanup()
		}
	})

	// solve asks one question and waits for the terminal state.
	solve := func(question string) {
		ctrl, err := manager.Ask(ctx, question)
		Expect(err).ToNot(HaveOccurred())
		Eventually(ctrl.Done(), 30*time.Second).Should(BeClosed())
	}

	It("should round-trip feedback and aggregate learning stats", func() {
		solve("Solve 2x + 5 = 11")

		resp, err := manager.RateLastSolution(ctx, 5, "clear and correct")
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.Status).To(Equal("success"))
		Expect(resp.ImprovementTriggered).To(BeFalse())

		solve("What is 2 + 3 * 4?")

		resp, err = manager.RateLastSolution(ctx, 1, "wrong order")
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.ImprovementTriggered).To(BeTrue())

		stats, err := client.LearningStats(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(stats.TotalFeedback).To(Equal(2))
		Expect(stats.AverageRating).To(BeNumerically("~", 3.0, 0.001))
		Expect(stats.KBAccuracy).To(BeNumerically("~", 0.5, 0.001))
		Expect(stats.LowRatings).To(Equal(1))
		Expect(stats.HighRatings).To(Equal(1))
		Expect(stats.LearningStatus).To(Equal("active"))
	})

	It("should expose conversation state through health and context", func() {
		solve("Solve 2x + 5 = 11")
		solve("What is 2 + 3 * 4?")

		health, err := client.Health(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(health.Status).To(Equal("healthy"))
		Expect(health.Streaming).To(Equal("enabled"))
		Expect(health.ActiveConversations).To(Equal(1))
		Expect(health.TotalStoredMessages).To(Equal(4))

		sessionCtx, err := client.SessionContext(ctx, manager.SessionID())
		Expect(err).ToNot(HaveOccurred())
		Expect(sessionCtx.SessionID).To(Equal(manager.SessionID()))
		Expect(sessionCtx.MessageCount).To(Equal(4))
		Expect(sessionCtx.FullHistory).To(HaveLen(4))
		Expect(sessionCtx.FullHistory[0].Role).To(Equal("user"))
		Expect(sessionCtx.FullHistory[0].Content).To(Equal("Solve 2x + 5 = 11"))
		Expect(sessionCtx.FullHistory[1].Role).To(Equal("assistant"))
	})
})
