package dedupe_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/okian/droprelay/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When accepting job ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the id is new", func() {
				accepted := d.Accept(ctx, "job-1")

				Convey("Then it should be accepted and recorded", func() {
					So(accepted, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
					So(d.Contains(ctx, "job-1"), ShouldBeTrue)
				})
			})

			Convey("And the id was already accepted", func() {
				d.Accept(ctx, "job-1")
				accepted := d.Accept(ctx, "job-1")

				Convey("Then it should be rejected", func() {
					So(accepted, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And Contains is called for an unknown id", func() {
				Convey("Then it should not record it", func() {
					So(d.Contains(ctx, "job-x"), ShouldBeFalse)
					So(d.Size(), ShouldEqual, 0)
				})
			})
		})

		Convey("When the default capacity is exceeded", func() {
			d := dedupe.NewInMemoryDeduper()
			for i := 0; i <= dedupe.DefaultMaxSize; i++ {
				So(d.Accept(ctx, fmt.Sprintf("job-%d", i)), ShouldBeTrue)
			}

			Convey("Then the set should hold exactly the capacity", func() {
				So(d.Size(), ShouldEqual, dedupe.DefaultMaxSize)
			})

			Convey("And the earliest id should be the one evicted", func() {
				So(d.Contains(ctx, "job-0"), ShouldBeFalse)
				So(d.Contains(ctx, "job-1"), ShouldBeTrue)
				So(d.Contains(ctx, fmt.Sprintf("job-%d", dedupe.DefaultMaxSize)), ShouldBeTrue)
			})

			Convey("And the evicted id should be accepted again", func() {
				So(d.Accept(ctx, "job-0"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, dedupe.DefaultMaxSize)
				So(d.Contains(ctx, "job-1"), ShouldBeFalse)
			})
		})

		Convey("When eviction wraps around the ring several times", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 0; i < 10; i++ {
				d.Accept(ctx, fmt.Sprintf("job-%d", i))
			}

			Convey("Then only the three newest ids should remain", func() {
				So(d.Size(), ShouldEqual, 3)
				for i := 0; i < 7; i++ {
					So(d.Contains(ctx, fmt.Sprintf("job-%d", i)), ShouldBeFalse)
				}
				for i := 7; i < 10; i++ {
					So(d.Contains(ctx, fmt.Sprintf("job-%d", i)), ShouldBeTrue)
				}
			})
		})

		Convey("When a duplicate arrives at capacity", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
			d.Accept(ctx, "a")
			d.Accept(ctx, "b")

			Convey("Then it should not evict anything", func() {
				So(d.Accept(ctx, "a"), ShouldBeFalse)
				So(d.Contains(ctx, "a"), ShouldBeTrue)
				So(d.Contains(ctx, "b"), ShouldBeTrue)
			})
		})

		Convey("When using unbounded mode", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			const numIDs = 5000
			for i := 0; i < numIDs; i++ {
				d.Accept(ctx, fmt.Sprintf("job-%d", i))
			}

			Convey("Then every id should be kept", func() {
				So(d.Size(), ShouldEqual, int64(numIDs))
				So(d.Contains(ctx, "job-0"), ShouldBeTrue)
			})
		})
	})
}

func TestDedupeForget(t *testing.T) {
	ctx := context.Background()

	Convey("Given a deduper that is not yet full", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		d.Accept(ctx, "a")
		d.Accept(ctx, "b")

		Convey("When the latest id is forgotten", func() {
			So(d.Forget(ctx, "b"), ShouldBeTrue)

			Convey("Then it should be accepted again", func() {
				So(d.Size(), ShouldEqual, 1)
				So(d.Contains(ctx, "b"), ShouldBeFalse)
				So(d.Accept(ctx, "b"), ShouldBeTrue)
			})

			Convey("And FIFO order should be unchanged", func() {
				d.Accept(ctx, "c")
				d.Accept(ctx, "d")
				d.Accept(ctx, "e")
				So(d.Contains(ctx, "a"), ShouldBeFalse)
				So(d.Contains(ctx, "c"), ShouldBeTrue)
				So(d.Contains(ctx, "e"), ShouldBeTrue)
			})
		})

		Convey("When an older id is forgotten", func() {
			Convey("Then nothing should change", func() {
				So(d.Forget(ctx, "a"), ShouldBeFalse)
				So(d.Contains(ctx, "a"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 2)
			})
		})

		Convey("When the same id is forgotten twice", func() {
			So(d.Forget(ctx, "b"), ShouldBeTrue)

			Convey("Then the second call should be a no-op", func() {
				So(d.Forget(ctx, "b"), ShouldBeFalse)
				So(d.Contains(ctx, "a"), ShouldBeTrue)
			})
		})
	})

	Convey("Given a full deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
		d.Accept(ctx, "a")
		d.Accept(ctx, "b")
		d.Accept(ctx, "c")

		Convey("When the id that caused an eviction is forgotten", func() {
			So(d.Forget(ctx, "c"), ShouldBeTrue)

			Convey("Then the evicted id should be restored as the oldest", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.Contains(ctx, "a"), ShouldBeTrue)
				So(d.Contains(ctx, "b"), ShouldBeTrue)
				So(d.Contains(ctx, "c"), ShouldBeFalse)

				d.Accept(ctx, "x")
				So(d.Contains(ctx, "a"), ShouldBeFalse)
				So(d.Contains(ctx, "b"), ShouldBeTrue)
				So(d.Contains(ctx, "x"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		d.Accept(ctx, "a")

		Convey("Then forgetting the latest id should remove it", func() {
			So(d.Forget(ctx, "a"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 0)
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper shared by goroutines", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const numGoroutines = 10

		Convey("When every goroutine offers the same ids", func() {
			var wg sync.WaitGroup
			var accepted atomic.Int64
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						if d.Accept(context.Background(), fmt.Sprintf("job-%d", j)) {
							accepted.Add(1)
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each id should be accepted exactly once", func() {
				So(accepted.Load(), ShouldEqual, 100)
				So(d.Size(), ShouldEqual, 100)
			})
		})
	})
}

func TestDedupeEdgeCases(t *testing.T) {
	Convey("Given a deduper with edge cases", t, func() {
		ctx := context.Background()

		Convey("When recording very long strings", func() {
			d := dedupe.NewInMemoryDeduper()
			long := strings.Repeat("a", 10000)

			Convey("Then they should dedupe like any other id", func() {
				So(d.Accept(ctx, long), ShouldBeTrue)
				So(d.Accept(ctx, long), ShouldBeFalse)
			})
		})

		Convey("When using a max size of one", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1))
			d.Accept(ctx, "job-1")
			d.Accept(ctx, "job-2")

			Convey("Then only the latest id should be remembered", func() {
				So(d.Size(), ShouldEqual, 1)
				So(d.Contains(ctx, "job-1"), ShouldBeFalse)
				So(d.Contains(ctx, "job-2"), ShouldBeTrue)
			})
		})
	})
}
