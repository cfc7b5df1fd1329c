package report

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"
)

var _ = Describe("Sanitize", func() {
	It("should replace spaces with underscores and strip special characters", func() {
		Expect(Sanitize("Team Lunch #1!")).To(Equal("Team_Lunch_1"))
	})

	It("should keep hyphens and underscores", func() {
		Expect(Sanitize("pre-event check_in")).To(Equal("pre-event_check_in"))
	})

	It("should be idempotent", func() {
		once := Sanitize("Dinner @ Joe's (team)")
		Expect(Sanitize(once)).To(Equal(once))
	})

	It("should return empty for input with no allowed characters", func() {
		Expect(Sanitize("!@#$%")).To(Equal(""))
	})
})

var _ = Describe("Filenames", func() {
	var (
		id   uuid.UUID
		date time.Time
	)

	BeforeEach(func() {
		id = uuid.MustParse("ab12cd34-0000-4000-8000-000000000000")
		date = day(2025, time.March, 2)
	})

	Describe("ExpenseReceiptFilename", func() {
		It("should join occasion, date and a four-character ID prefix", func() {
			Expect(ExpenseReceiptFilename("Client Dinner", date, id, "jpg")).
				To(Equal("Client_Dinner_2025-03-02_ab12.jpg"))
		})

		It("should be deterministic for identical inputs", func() {
			a := ExpenseReceiptFilename("Client Dinner", date, id, "pdf")
			b := ExpenseReceiptFilename("Client Dinner", date, id, "pdf")
			Expect(a).To(Equal(b))
		})

		It("should distinguish same-day, same-occasion items by ID prefix", func() {
			other := uuid.MustParse("cd34ab12-0000-4000-8000-000000000000")
			Expect(ExpenseReceiptFilename("Lunch", date, id, "jpg")).
				NotTo(Equal(ExpenseReceiptFilename("Lunch", date, other, "jpg")))
		})
	})

	Describe("TripReceiptFilename", func() {
		It("should join trip name, category, date and ID prefix", func() {
			Expect(TripReceiptFilename("Berlin Trip", "Major Transport", date, id, "pdf")).
				To(Equal("Berlin_Trip_Major_Transport_2025-03-02_ab12.pdf"))
		})
	})
})
