package report

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"
)

// readArchive opens the returned archive bytes and maps entry name to
// content.
func readArchive(archive []byte) map[string][]byte {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	Expect(err).NotTo(HaveOccurred())
	entries := make(map[string][]byte, len(reader.File))
	for _, f := range reader.File {
		rc, err := f.Open()
		Expect(err).NotTo(HaveOccurred())
		content, err := io.ReadAll(rc)
		Expect(err).NotTo(HaveOccurred())
		Expect(rc.Close()).To(Succeed())
		Expect(f.UncompressedSize64).To(Equal(uint64(len(content))))
		entries[f.Name] = content
	}
	return entries
}

var _ = Describe("BuildExpenseReport", func() {
	var (
		items  []ExpenseItem
		result *Result
		err    error
	)

	BeforeEach(func() {
		items = []ExpenseItem{
			{
				ID:       uuid.MustParse("ab12cd34-0000-4000-8000-000000000000"),
				Date:     day(2025, time.March, 2),
				Occasion: "Client Dinner",
				Payload:  []byte("%PDF-1.4 dinner receipt"),
				MIMEType: "application/pdf",
			},
			{
				ID:       uuid.MustParse("ef56ab78-0000-4000-8000-000000000000"),
				Date:     day(2025, time.March, 4),
				Occasion: "Team Lunch #1!",
				Payload:  []byte("%PDF-1.4 lunch receipt"),
				MIMEType: "application/pdf",
			},
		}
	})

	JustBeforeEach(func() {
		result, err = BuildExpenseReport(items)
	})

	When("all items are valid", func() {
		It("should succeed", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).NotTo(BeNil())
		})

		It("should archive one entry per item with byte-identical content", func() {
			entries := readArchive(result.Archive)
			Expect(entries).To(HaveLen(2))
			Expect(entries["Client_Dinner_2025-03-02_ab12.pdf"]).To(Equal([]byte("%PDF-1.4 dinner receipt")))
			Expect(entries["Team_Lunch_1_2025-03-04_ef56.pdf"]).To(Equal([]byte("%PDF-1.4 lunch receipt")))
		})

		It("should keep archive entries in caller-supplied order", func() {
			reader, zerr := zip.NewReader(bytes.NewReader(result.Archive), int64(len(result.Archive)))
			Expect(zerr).NotTo(HaveOccurred())
			Expect(reader.File[0].Name).To(Equal("Client_Dinner_2025-03-02_ab12.pdf"))
			Expect(reader.File[1].Name).To(Equal("Team_Lunch_1_2025-03-04_ef56.pdf"))
		})

		It("should render the full summary", func() {
			Expect(result.Summary).To(Equal(
				"Expenses Report\n" +
					"Date Range: 2025-03-02 to 2025-03-04\n" +
					"\n" +
					"• Client Dinner on 2025-03-02 — Receipt: Client_Dinner_2025-03-02_ab12.pdf\n" +
					"• Team Lunch #1! on 2025-03-04 — Receipt: Team_Lunch_1_2025-03-04_ef56.pdf\n" +
					"\n" +
					"Total Expenses: 2"))
		})
	})

	When("an item has no occasion", func() {
		BeforeEach(func() {
			items[0].Occasion = ""
		})

		It("should fall back to the Expense label", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Summary).To(ContainSubstring("• Expense on 2025-03-02"))
		})
	})

	When("no items are supplied", func() {
		BeforeEach(func() {
			items = nil
		})

		It("should fail with the no-items reason", func() {
			var buildErr *BuildError
			Expect(err).To(BeAssignableToTypeOf(buildErr))
			buildErr = err.(*BuildError)
			Expect(buildErr.Kind).To(Equal(FailureNoItems))
			Expect(buildErr.Message).To(Equal("No expenses to report."))
			Expect(result).To(BeNil())
		})
	})

	When("a later item has an empty payload", func() {
		BeforeEach(func() {
			items[1].Payload = nil
		})

		It("should abort the whole build with no partial result", func() {
			Expect(result).To(BeNil())
			buildErr, ok := err.(*BuildError)
			Expect(ok).To(BeTrue())
			Expect(buildErr.Kind).To(Equal(FailureMissingPayload))
			Expect(buildErr.Message).To(ContainSubstring("Team Lunch #1!"))
			Expect(buildErr.Message).To(ContainSubstring("2025-03-04"))
		})
	})

	When("an item is missing its date", func() {
		BeforeEach(func() {
			items[1].Date = time.Time{}
		})

		It("should fail naming the item", func() {
			Expect(result).To(BeNil())
			buildErr, ok := err.(*BuildError)
			Expect(ok).To(BeTrue())
			Expect(buildErr.Kind).To(Equal(FailureInvalidItem))
			Expect(buildErr.Message).To(ContainSubstring("Team Lunch #1!"))
		})
	})
})

var _ = Describe("BuildTripReport", func() {
	var (
		trip    Trip
		mileage string
		result  *Result
		err     error
	)

	BeforeEach(func() {
		mileage = ""
		trip = Trip{
			ID:                 uuid.MustParse("11111111-0000-4000-8000-000000000000"),
			Name:               "Berlin Conf",
			StartDate:          day(2025, time.July, 10),
			EndDate:            day(2025, time.July, 14),
			EventStartDate:     dayPtr(2025, time.July, 11),
			EventEndDate:       dayPtr(2025, time.July, 13),
			DestinationCity:    "Berlin",
			DestinationCountry: "Germany",
			TransportType:      TransportFlightTrain,
			Receipts: []Receipt{
				{
					ID:       uuid.MustParse("aaaa1111-0000-4000-8000-000000000000"),
					Date:     day(2025, time.July, 11),
					Category: NewCategory(CategoryHotel),
					Payload:  []byte("%PDF-1.4 hotel"),
					MIMEType: "application/pdf",
				},
				{
					ID:       uuid.MustParse("bbbb2222-0000-4000-8000-000000000000"),
					Date:     day(2025, time.July, 10),
					Category: NewCategory(CategoryTransport),
					Payload:  []byte("%PDF-1.4 train"),
					MIMEType: "application/pdf",
				},
				{
					ID:       uuid.MustParse("cccc3333-0000-4000-8000-000000000000"),
					Date:     day(2025, time.July, 12),
					Category: NewCustomCategory("conference badge"),
					Payload:  []byte("%PDF-1.4 badge"),
					MIMEType: "application/pdf",
				},
			},
		}
	})

	JustBeforeEach(func() {
		result, err = BuildTripReport(trip, mileage)
	})

	When("the trip is complete", func() {
		It("should succeed", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).NotTo(BeNil())
		})

		It("should sort receipts by category display name, case-insensitive", func() {
			reader, zerr := zip.NewReader(bytes.NewReader(result.Archive), int64(len(result.Archive)))
			Expect(zerr).NotTo(HaveOccurred())
			// "conference badge" < "Hotel" < "Major Transport"
			Expect(reader.File[0].Name).To(Equal("Berlin_Conf_conference_badge_2025-07-12_cccc.pdf"))
			Expect(reader.File[1].Name).To(Equal("Berlin_Conf_Hotel_2025-07-11_aaaa.pdf"))
			Expect(reader.File[2].Name).To(Equal("Berlin_Conf_Major_Transport_2025-07-10_bbbb.pdf"))
		})

		It("should embed the retitled per-diem block", func() {
			Expect(result.Summary).To(ContainSubstring("Per Diem Reimbursement Request"))
			Expect(result.Summary).To(ContainSubstring("Location: Berlin, Germany"))
			Expect(result.Summary).NotTo(ContainSubstring("Per Diem Summary"))
			Expect(result.Summary).NotTo(ContainSubstring("Destination:"))
		})

		It("should list receipts after the receipts header and end with the count", func() {
			Expect(result.Summary).To(ContainSubstring("Receipts for reimbursements"))
			Expect(result.Summary).To(ContainSubstring("• Hotel: Berlin_Conf_Hotel_2025-07-11_aaaa.pdf"))
			Expect(strings.HasSuffix(result.Summary, "Total Receipts: 3")).To(BeTrue())
		})

		It("should preserve receipt content byte-identically", func() {
			entries := readArchive(result.Archive)
			Expect(entries["Berlin_Conf_Hotel_2025-07-11_aaaa.pdf"]).To(Equal([]byte("%PDF-1.4 hotel")))
		})
	})

	When("the trip is by car with mileage supplied", func() {
		BeforeEach(func() {
			trip.TransportType = TransportDrive
			mileage = "120"
		})

		It("should place the mileage line directly after the per-diem block", func() {
			Expect(result.Summary).To(ContainSubstring(
				"Event Days: 3 (2025-07-11 to 2025-07-13)\nMileage reimbursement: 120 miles"))
		})
	})

	When("mileage is supplied but transport is not drive", func() {
		BeforeEach(func() {
			mileage = "120"
		})

		It("should not add a mileage line", func() {
			Expect(result.Summary).NotTo(ContainSubstring("Mileage"))
		})
	})

	When("mileage is blank for a drive trip", func() {
		BeforeEach(func() {
			trip.TransportType = TransportDrive
			mileage = "   "
		})

		It("should not add a mileage line", func() {
			Expect(result.Summary).NotTo(ContainSubstring("Mileage"))
		})
	})

	When("per-diem data is insufficient", func() {
		BeforeEach(func() {
			trip.DestinationCity = ""
		})

		It("should still build the report without a per-diem block", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Summary).NotTo(ContainSubstring("Per Diem"))
			Expect(result.Summary).To(ContainSubstring("Receipts for reimbursements"))
		})
	})

	When("the trip has no name", func() {
		BeforeEach(func() {
			trip.Name = ""
		})

		It("should fall back to the Trip label", func() {
			Expect(result.Summary).To(HavePrefix("Trip Expenses Report - Trip"))
		})
	})

	When("the trip has no receipts", func() {
		BeforeEach(func() {
			trip.Receipts = nil
		})

		It("should produce an empty listing with a zero count", func() {
			Expect(err).NotTo(HaveOccurred())
			entries := readArchive(result.Archive)
			Expect(entries).To(BeEmpty())
			Expect(strings.HasSuffix(result.Summary, "Total Receipts: 0")).To(BeTrue())
		})
	})

	When("a receipt has an empty payload", func() {
		BeforeEach(func() {
			trip.Receipts[0].Payload = []byte{}
		})

		It("should abort the whole build naming the receipt", func() {
			Expect(result).To(BeNil())
			buildErr, ok := err.(*BuildError)
			Expect(ok).To(BeTrue())
			Expect(buildErr.Kind).To(Equal(FailureMissingPayload))
			Expect(buildErr.Message).To(ContainSubstring("[Hotel]"))
			Expect(buildErr.Message).To(ContainSubstring("2025-07-11"))
		})
	})

	When("a receipt has no identifier", func() {
		BeforeEach(func() {
			trip.Receipts[1].ID = uuid.Nil
		})

		It("should fail the whole build", func() {
			Expect(result).To(BeNil())
			buildErr, ok := err.(*BuildError)
			Expect(ok).To(BeTrue())
			Expect(buildErr.Kind).To(Equal(FailureInvalidItem))
		})
	})
})
