package validate_test

import (
	"context"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scaffold/pkg/validate"
)

var _ = Describe("Pool", func() {
	It("runs every job of a wave before returning", func() {
		pool, err := validate.NewPool(&validate.PoolConfig{NumWorkers: 3, QueueSize: 2})
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		var ran atomic.Int32
		jobs := make([]validate.Job, 20)
		for i := range jobs {
			jobs[i] = validate.Job{Name: "job", Run: func(context.Context) { ran.Add(1) }}
		}

		Expect(pool.RunAll(context.Background(), jobs)).To(Succeed())
		Expect(ran.Load()).To(Equal(int32(20)))
	})

	It("stops submitting once the context is done", func() {
		pool, err := validate.NewPool(&validate.PoolConfig{NumWorkers: 1})
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(pool.RunAll(ctx, []validate.Job{{Name: "x", Run: func(context.Context) {}}})).To(MatchError(context.Canceled))
	})
})

var _ = Describe("State", func() {
	It("lets dependents run only after a pass or a fix", func() {
		Expect(validate.StatePassed.Satisfied()).To(BeTrue())
		Expect(validate.StateFixApplied.Satisfied()).To(BeTrue())
		Expect(validate.StateFailed.Satisfied()).To(BeFalse())
		Expect(validate.StateSkipped.Satisfied()).To(BeFalse())
	})

	It("knows the terminal states", func() {
		for _, s := range []validate.State{validate.StateSkipped, validate.StatePassed, validate.StateFixApplied, validate.StateFixFailed} {
			Expect(s.Terminal()).To(BeTrue(), string(s))
		}
		Expect(validate.StateFailed.Terminal()).To(BeFalse())
		Expect(validate.StatePending.Terminal()).To(BeFalse())
	})
})

var _ = Describe("UnifiedDiff", func() {
	It("is empty for equal content", func() {
		Expect(validate.UnifiedDiff("a", "x\n", "x\n")).To(BeEmpty())
	})

	It("keeps context around changes and marks gaps", func() {
		local := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"
		expected := "1\n2\n3\n4\n5\n6\n7\n8\n9\nten\n"

		diff := validate.UnifiedDiff("n.txt", local, expected)
		Expect(diff).To(HavePrefix("--- n.txt (local)\n+++ n.txt (template)\n@@\n"))
		Expect(diff).To(ContainSubstring(" 7\n 8\n 9\n-10\n+ten\n"))
		Expect(diff).NotTo(ContainSubstring(" 6\n"))
	})
})

var _ = Describe("BuiltinPredicates", func() {
	It("registers the document checks", func() {
		Expect(validate.BuiltinPredicates()).To(HaveKey("not_empty"))
		Expect(validate.BuiltinPredicates()).To(HaveKey("valid_json"))
		Expect(validate.BuiltinPredicates()).To(HaveKey("valid_jsonc"))
		Expect(validate.BuiltinPredicates()).To(HaveKey("valid_yaml"))
	})
})
