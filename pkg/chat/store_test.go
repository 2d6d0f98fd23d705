package chat_test

import (
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stepwisehq/stepwise/pkg/chat"
)

var _ = Describe("Store", func() {
	var store *chat.Store

	BeforeEach(func() {
		store = chat.NewStore()
	})

	Describe("Append", func() {
		It("should keep messages in insertion order", func() {
			first := chat.NewUserMessage("one")
			second := chat.NewUserMessage("two")

			store.Append(first)
			store.Append(second)

			msgs := store.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].ID).To(Equal(first.ID))
			Expect(msgs[1].ID).To(Equal(second.ID))
		})
	})

	Describe("Messages", func() {
		It("should return copies that do not alias store state", func() {
			msg := chat.NewUserMessage("original")
			store.Append(msg)

			snapshot := store.Messages()
			snapshot[0].Text = "mutated"

			got, ok := store.Get(msg.ID)
			Expect(ok).To(BeTrue())
			Expect(got.Text).To(Equal("original"))
		})

		It("should deep copy steps and solution", func() {
			msg := chat.NewAssistantPlaceholder("q")
			msg.Steps = []chat.SolutionStep{{Step: 1, Text: "a"}}
			msg.Solution = &chat.Solution{FinalAnswer: "x=3"}
			store.Append(msg)

			snapshot := store.Messages()
			snapshot[0].Steps[0].Text = "changed"
			snapshot[0].Solution.FinalAnswer = "changed"

			got, _ := store.Get(msg.ID)
			Expect(got.Steps[0].Text).To(Equal("a"))
			Expect(got.Solution.FinalAnswer).To(Equal("x=3"))
		})
	})

	Describe("UpdateByID", func() {
		It("should change only the fields named by the patch", func() {
			msg := chat.NewAssistantPlaceholder("q")
			store.Append(msg)

			text := "working on it"
			progress := 40
			err := store.UpdateByID(msg.ID, chat.MessagePatch{Text: &text, Progress: &progress})
			Expect(err).NotTo(HaveOccurred())

			got, _ := store.Get(msg.ID)
			Expect(got.Text).To(Equal("working on it"))
			Expect(got.Progress).To(Equal(40))
			Expect(got.OriginalQuestion).To(Equal("q"))
			Expect(got.IsError).To(BeFalse())
			Expect(got.Solution).To(BeNil())
		})

		It("should clear the streaming session id with an empty pointer value", func() {
			msg := chat.NewAssistantPlaceholder("q")
			msg.StreamingSessionID = "live-session"
			store.Append(msg)

			empty := ""
			Expect(store.UpdateByID(msg.ID, chat.MessagePatch{StreamingSessionID: &empty})).To(Succeed())

			got, _ := store.Get(msg.ID)
			Expect(got.IsStreaming()).To(BeFalse())
		})

		It("should return ErrMessageNotFound for an unknown id", func() {
			err := store.UpdateByID("nope", chat.MessagePatch{})
			Expect(err).To(MatchError(chat.ErrMessageNotFound))
		})

		It("should be safe under concurrent patches", func() {
			msg := chat.NewAssistantPlaceholder("q")
			store.Append(msg)

			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					_ = store.UpdateByID(msg.ID, chat.MessagePatch{Progress: &p})
				}(i)
			}
			wg.Wait()

			got, _ := store.Get(msg.ID)
			Expect(got.Progress).To(BeNumerically(">=", 0))
			Expect(got.Progress).To(BeNumerically("<", 50))
		})
	})

	Describe("LastAssistant", func() {
		It("should skip trailing user messages", func() {
			assistant := chat.NewAssistantPlaceholder("q")
			store.Append(chat.NewUserMessage("q"))
			store.Append(assistant)
			store.Append(chat.NewUserMessage("follow up"))

			got, ok := store.LastAssistant()
			Expect(ok).To(BeTrue())
			Expect(got.ID).To(Equal(assistant.ID))
		})

		It("should report absence on an empty store", func() {
			_, ok := store.LastAssistant()
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Subscribe", func() {
		It("should notify on every append and update", func() {
			var calls atomic.Int32
			store.Subscribe(func() { calls.Add(1) })

			msg := chat.NewUserMessage("hello")
			store.Append(msg)
			text := "hi"
			_ = store.UpdateByID(msg.ID, chat.MessagePatch{Text: &text})

			Expect(calls.Load()).To(Equal(int32(2)))
		})
	})
})
