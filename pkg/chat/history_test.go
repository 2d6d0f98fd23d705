package chat_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stepwisehq/stepwise/pkg/chat"
)

var _ = Describe("BuildHistory", func() {
	It("should drop whitespace-only messages and default missing fields", func() {
		messages := []chat.Message{
			{Text: ""},
			{Text: "hi", Role: chat.RoleUser},
		}

		entries := chat.BuildHistory(messages)

		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Content).To(Equal("hi"))
		Expect(entries[0].Role).To(Equal(chat.RoleUser))
		Expect(entries[0].RequestType).To(Equal(chat.RequestTypeUnknown))
	})

	It("should default a missing role to user", func() {
		entries := chat.BuildHistory([]chat.Message{{Text: "solve it"}})

		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Role).To(Equal(chat.RoleUser))
	})

	It("should keep explicit roles and request types", func() {
		entries := chat.BuildHistory([]chat.Message{
			{Text: "teach me fractions", Role: chat.RoleUser, RequestType: chat.RequestTypeTeaching},
			{Text: "Sure, a fraction is...", Role: chat.RoleAssistant},
		})

		Expect(entries).To(HaveLen(2))
		Expect(entries[0].RequestType).To(Equal(chat.RequestTypeTeaching))
		Expect(entries[1].Role).To(Equal(chat.RoleAssistant))
		Expect(entries[1].RequestType).To(Equal(chat.RequestTypeUnknown))
	})

	It("should treat whitespace-only text as empty", func() {
		entries := chat.BuildHistory([]chat.Message{{Text: "  \t\n "}})

		Expect(entries).To(BeEmpty())
	})

	It("should return an empty slice for no messages", func() {
		Expect(chat.BuildHistory(nil)).To(BeEmpty())
	})
})

var _ = Describe("Transcript", func() {
	It("should round-trip a conversation through disk", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "nested", "transcript.json")

		user := chat.NewUserMessage("Solve 2x + 5 = 11")
		assistant := chat.NewAssistantPlaceholder(user.Text)
		assistant.Text = "x = 3"
		assistant.Solution = &chat.Solution{FinalAnswer: "x = 3", Route: "knowledge_base"}

		Expect(chat.SaveTranscript(path, "session-1", []chat.Message{user, assistant})).To(Succeed())

		sessionID, messages, err := chat.LoadTranscript(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessionID).To(Equal("session-1"))
		Expect(messages).To(HaveLen(2))
		Expect(messages[1].Solution.FinalAnswer).To(Equal("x = 3"))
	})

	It("should fail on a missing file", func() {
		_, _, err := chat.LoadTranscript(filepath.Join(GinkgoT().TempDir(), "absent.json"))
		Expect(err).To(HaveOccurred())
	})
})
