package lobby

import (
	"time"

	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
)

const noticeTTL = 1200 * time.Millisecond

// banner is the message shown above a room. Network failures stay until
// replaced or dismissed; local rejections clear after noticeTTL.
type banner struct {
	text string
	gen  int
	t    eventloop.Timer
}

func (b *banner) set(text string) {
	b.stop()
	b.text = text
}

func (b *banner) warn(sched eventloop.Scheduler, text string, changed func()) {
	b.set(text)
	gen := b.gen
	b.t = sched.AfterFunc(noticeTTL, func() {
		if gen != b.gen {
			return
		}
		b.text = ""
		b.t = nil
		changed()
	})
}

// clear reports whether there was anything to clear.
func (b *banner) clear() bool {
	had := b.text != ""
	b.set("")
	return had
}

func (b *banner) stop() {
	b.gen++
	if b.t != nil {
		b.t.Stop()
		b.t = nil
	}
}
