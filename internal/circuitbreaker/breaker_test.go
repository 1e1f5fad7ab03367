package circuitbreaker_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensio/ml-gateway/internal/circuitbreaker"
)

var _ = Describe("CircuitBreaker", func() {
	var cb *circuitbreaker.CircuitBreaker

	Describe("NewCircuitBreaker", func() {
		It("should create a circuit breaker in closed state", func() {
			cb = circuitbreaker.NewCircuitBreaker(3, 60*time.Second)
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("State transitions", func() {
		BeforeEach(func() {
			cb = circuitbreaker.NewCircuitBreaker(3, 100*time.Millisecond)
		})

		Context("when in CLOSED state", func() {
			It("should allow calls", func() {
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should remain closed after failures below threshold", func() {
				cb.RecordFailure()
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should transition to OPEN after reaching failure threshold", func() {
				cb.RecordFailure()
				cb.RecordFailure()
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			})

			It("should record the open time when tripping", func() {
				before := time.Now()
				cb.RecordFailure()
				cb.RecordFailure()
				cb.RecordFailure()
				snap := cb.Snapshot()
				Expect(snap.OpenedAt).To(BeTemporally(">=", before))
			})
		})

		Context("when in OPEN state", func() {
			BeforeEach(func() {
				// Trip the circuit
				cb.RecordFailure()
				cb.RecordFailure()
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			})

			It("should block calls before the recovery window elapses", func() {
				time.Sleep(50 * time.Millisecond)
				Expect(cb.Allow()).To(BeFalse())
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			})

			It("should allow a trial call after the recovery window elapses", func() {
				time.Sleep(150 * time.Millisecond)
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should close optimistically when the recovery window elapses", func() {
				time.Sleep(150 * time.Millisecond)
				cb.Allow()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				Expect(cb.Snapshot().Failures).To(BeZero())
				Expect(cb.Snapshot().OpenedAt).To(BeZero())
			})
		})

		Context("after a trial call was allowed", func() {
			BeforeEach(func() {
				// Trip the circuit, then let the recovery window elapse
				cb.RecordFailure()
				cb.RecordFailure()
				cb.RecordFailure()
				time.Sleep(150 * time.Millisecond)
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should stay closed when the trial call succeeds", func() {
				cb.RecordSuccess()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should re-open immediately when the trial call fails", func() {
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
				Expect(cb.Allow()).To(BeFalse())
			})

			It("should refresh the open time when the trial call fails", func() {
				before := time.Now()
				cb.RecordFailure()
				Expect(cb.Snapshot().OpenedAt).To(BeTemporally(">=", before))
			})

			It("should require a full run of failures once a call has succeeded", func() {
				cb.RecordSuccess()
				cb.RecordFailure()
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			})
		})
	})

	Describe("RecordSuccess", func() {
		BeforeEach(func() {
			cb = circuitbreaker.NewCircuitBreaker(3, 100*time.Millisecond)
		})

		It("should reset the failure count", func() {
			cb.RecordFailure()
			cb.RecordFailure()
			cb.RecordSuccess()
			// Should not open after one more failure
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should clear the open time", func() {
			cb.RecordFailure()
			cb.RecordFailure()
			cb.RecordFailure()
			time.Sleep(150 * time.Millisecond)
			cb.Allow()
			cb.RecordSuccess()
			Expect(cb.Snapshot().OpenedAt).To(BeZero())
		})
	})

	Describe("Snapshot", func() {
		It("should report state, failures and open time", func() {
			cb = circuitbreaker.NewCircuitBreaker(3, time.Minute)
			cb.RecordFailure()

			snap := cb.Snapshot()
			Expect(snap.State).To(Equal("CLOSED"))
			Expect(snap.Failures).To(Equal(1))
			Expect(snap.OpenedAt).To(BeZero())
		})
	})

	Describe("State.String", func() {
		It("should return correct string representation", func() {
			Expect(circuitbreaker.StateClosed.String()).To(Equal("CLOSED"))
			Expect(circuitbreaker.StateOpen.String()).To(Equal("OPEN"))
		})
	})
})
