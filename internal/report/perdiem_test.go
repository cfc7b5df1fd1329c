package report

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(year int, month time.Month, d int) *time.Time {
	t := day(year, month, d)
	return &t
}

var _ = Describe("CalculatePerDiem", func() {
	var (
		trip Trip
		info PerDiemInfo
		ok   bool
	)

	BeforeEach(func() {
		trip = Trip{
			Name:               "Conference",
			StartDate:          day(2025, time.July, 10),
			EndDate:            day(2025, time.July, 14),
			DestinationCity:    "Berlin",
			DestinationCountry: "Germany",
		}
	})

	JustBeforeEach(func() {
		info, ok = CalculatePerDiem(trip)
	})

	When("the event interval is nested inside the trip interval", func() {
		BeforeEach(func() {
			trip.EventStartDate = dayPtr(2025, time.July, 11)
			trip.EventEndDate = dayPtr(2025, time.July, 13)
		})

		It("should be available", func() {
			Expect(ok).To(BeTrue())
		})

		It("should classify both trip boundary days as travel days, start first", func() {
			Expect(info.TravelDayDates).To(Equal([]time.Time{
				day(2025, time.July, 10),
				day(2025, time.July, 14),
			}))
		})

		It("should list every event day inclusive", func() {
			Expect(info.EventDayDates).To(Equal([]time.Time{
				day(2025, time.July, 11),
				day(2025, time.July, 12),
				day(2025, time.July, 13),
			}))
		})

		It("should count total days from the day sequences", func() {
			Expect(info.TotalDays).To(Equal(5))
		})
	})

	When("no explicit event dates are set", func() {
		It("should treat every trip day as an event day", func() {
			Expect(ok).To(BeTrue())
			Expect(info.TravelDayDates).To(BeEmpty())
			Expect(info.EventDayDates).To(HaveLen(5))
			Expect(info.TotalDays).To(Equal(5))
		})
	})

	When("the trip is a single day with no explicit event dates", func() {
		BeforeEach(func() {
			trip.EndDate = trip.StartDate
		})

		It("should yield zero travel days and one event day", func() {
			Expect(ok).To(BeTrue())
			Expect(info.TravelDayDates).To(BeEmpty())
			Expect(info.EventDayDates).To(Equal([]time.Time{day(2025, time.July, 10)}))
			Expect(info.TotalDays).To(Equal(1))
		})
	})

	When("the event matches the trip bounds exactly", func() {
		BeforeEach(func() {
			trip.EventStartDate = dayPtr(2025, time.July, 10)
			trip.EventEndDate = dayPtr(2025, time.July, 14)
		})

		It("should have no travel days", func() {
			Expect(ok).To(BeTrue())
			Expect(info.TravelDayDates).To(BeEmpty())
			Expect(info.TotalDays).To(Equal(5))
		})
	})

	When("only the return is a travel day", func() {
		BeforeEach(func() {
			trip.EventStartDate = dayPtr(2025, time.July, 10)
			trip.EventEndDate = dayPtr(2025, time.July, 13)
		})

		It("should include only the trip end", func() {
			Expect(ok).To(BeTrue())
			Expect(info.TravelDayDates).To(Equal([]time.Time{day(2025, time.July, 14)}))
			Expect(info.TotalDays).To(Equal(5))
		})
	})

	When("the event starts before the trip", func() {
		BeforeEach(func() {
			trip.EventStartDate = dayPtr(2025, time.July, 9)
		})

		It("should be unavailable, never clamped", func() {
			Expect(ok).To(BeFalse())
		})
	})

	When("the event ends after the trip", func() {
		BeforeEach(func() {
			trip.EventEndDate = dayPtr(2025, time.July, 15)
		})

		It("should be unavailable", func() {
			Expect(ok).To(BeFalse())
		})
	})

	When("the trip start date is missing", func() {
		BeforeEach(func() {
			trip.StartDate = time.Time{}
		})

		It("should be unavailable", func() {
			Expect(ok).To(BeFalse())
		})
	})

	When("the destination is missing", func() {
		BeforeEach(func() {
			trip.DestinationCountry = ""
		})

		It("should be unavailable", func() {
			Expect(ok).To(BeFalse())
		})
	})

	When("stored dates carry wall-clock times and zones", func() {
		BeforeEach(func() {
			est := time.FixedZone("EST", -5*3600)
			trip.StartDate = time.Date(2025, time.July, 10, 23, 45, 0, 0, est)
			trip.EndDate = time.Date(2025, time.July, 14, 1, 30, 0, 0, time.UTC)
			eventStart := time.Date(2025, time.July, 11, 8, 0, 0, 0, est)
			trip.EventStartDate = &eventStart
			trip.EventEndDate = dayPtr(2025, time.July, 13)
		})

		It("should compare by calendar day only", func() {
			Expect(ok).To(BeTrue())
			Expect(info.TravelDayDates).To(Equal([]time.Time{
				day(2025, time.July, 10),
				day(2025, time.July, 14),
			}))
			Expect(info.TotalDays).To(Equal(5))
		})
	})

	Describe("Summary", func() {
		BeforeEach(func() {
			trip.EventStartDate = dayPtr(2025, time.July, 11)
			trip.EventEndDate = dayPtr(2025, time.July, 13)
		})

		It("should render header, destination, counts and date lines", func() {
			Expect(ok).To(BeTrue())
			Expect(info.Summary()).To(Equal(
				"Per Diem Summary\n" +
					"Destination: Berlin, Germany\n" +
					"Total Days: 5\n" +
					"Travel Days: 2 (2025-07-10, 2025-07-14)\n" +
					"Event Days: 3 (2025-07-11 to 2025-07-13)"))
		})

		When("there are no travel days", func() {
			BeforeEach(func() {
				trip.EventStartDate = nil
				trip.EventEndDate = nil
			})

			It("should omit the travel days line", func() {
				Expect(info.Summary()).NotTo(ContainSubstring("Travel Days"))
				Expect(info.Summary()).To(ContainSubstring("Event Days: 5"))
			})
		})
	})
})
