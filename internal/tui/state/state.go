package state

import (
	"github.com/perchlabs/perch/internal/session"
	"github.com/perchlabs/perch/internal/tui/view"
)

type SessionSelectedMsg = *session.Session

type SessionClearedMsg struct{}

// ViewActivatedMsg is forwarded to the target page whenever the view-state
// machine lands on it, carrying that transition's options.
type ViewActivatedMsg struct {
	Options view.Options
}
