package simulate

import (
	"context"
	"fmt"

	"github.com/okian/droprelay/internal/domain/types"
	"github.com/okian/droprelay/pkg/logger"
)

// verifyFresh checks that /latest echoes want and /status reports an active drop.
func verifyFresh(ctx context.Context, c *client, want Drop) error {
	got, err := c.latest(ctx)
	if err != nil {
		return err
	}
	if !sameDrop(got, want) {
		return fmt.Errorf("%w: got job %q name %q, want job %q name %q",
			ErrLatestMismatch, got.Job, got.Name, want.Job, want.Name)
	}

	st, err := c.status(ctx)
	if err != nil {
		return err
	}
	if !st.ActiveDrop {
		return fmt.Errorf("%w: /status reports no active drop", ErrLatestMismatch)
	}
	logger.Get().Info(ctx, "latest drop verified",
		logger.String("job", got.Job),
		logger.Float64("ageSeconds", st.AgeSeconds),
	)
	return nil
}

// verifyExpired checks that /latest returned the empty drop.
func verifyExpired(ctx context.Context, c *client) error {
	got, err := c.latest(ctx)
	if err != nil {
		return err
	}
	if got != (types.Drop{}) {
		return fmt.Errorf("%w: job %q", ErrNotExpired, got.Job)
	}

	st, err := c.status(ctx)
	if err != nil {
		return err
	}
	if st.ActiveDrop {
		return fmt.Errorf("%w: /status still reports an active drop", ErrNotExpired)
	}
	logger.Get().Info(ctx, "drop expiry verified")
	return nil
}

func sameDrop(got types.Drop, want Drop) bool {
	return got.Job == want.Job &&
		got.Name == want.Name &&
		got.MS == want.MS &&
		got.Players == want.Players
}
