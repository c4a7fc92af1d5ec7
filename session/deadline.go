package session

import (
	"context"

	"github.com/sirupsen/logrus"
)

// ApplyDeadline returns a derived context bound by the "deadline" header, if
// one was sent, and the cancel func to release it. Resolves spec.md §9's
// open question (c): there is no hard kill enforced by the core, only a
// context.Context deadline a handler observes cooperatively at its next
// yield point, logged but not forcibly terminated.
func ApplyDeadline(ctx context.Context, h *Headers, log *logrus.Logger) (context.Context, context.CancelFunc) {
	deadline, ok, err := h.Deadline()
	if err != nil {
		if log != nil {
			log.WithError(err).Warn("session: ignoring malformed deadline header")
		}
		return ctx, func() {}
	}
	if !ok {
		return ctx, func() {}
	}
	if log != nil {
		log.WithField("deadline", deadline).Debug("session: applying deadline header")
	}
	return context.WithDeadline(ctx, deadline)
}
