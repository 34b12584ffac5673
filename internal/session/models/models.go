package models

import (
	"fmt"
	"strings"
	"time"

	"aroundtable/internal/pairing"
	id "aroundtable/pkg/domain"
)

// RemovedFamilyName stands in for ids that are no longer on the roster.
const RemovedFamilyName = "(removed family)"

// Session is a saved grouping. It is never modified after it is saved.
type Session struct {
	ID        id.SessionID
	CreatedAt time.Time
	Groups    pairing.Groups
}

// Record is the engine's view of the session.
func (s *Session) Record() pairing.Record {
	return pairing.Record{CreatedAt: s.CreatedAt, Groups: s.Groups}
}

// Member is a family as displayed inside a session.
type Member struct {
	ID      id.FamilyID `json:"id"`
	Name    string      `json:"name"`
	Removed bool        `json:"removed,omitempty"`
}

// View is a session with names resolved against the current roster.
type View struct {
	ID        id.SessionID `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Groups    [][]Member   `json:"groups"`
}

// NewView resolves names; families missing from names render as removed.
func NewView(s *Session, names map[id.FamilyID]string) *View {
	groups := make([][]Member, len(s.Groups))
	for i, group := range s.Groups {
		members := make([]Member, len(group))
		for j, familyID := range group {
			name, ok := names[familyID]
			if !ok {
				members[j] = Member{ID: familyID, Name: RemovedFamilyName, Removed: true}
				continue
			}
			members[j] = Member{ID: familyID, Name: name}
		}
		groups[i] = members
	}
	return &View{ID: s.ID, CreatedAt: s.CreatedAt, Groups: groups}
}

type ListSessionsResponse struct {
	Sessions []*View `json:"sessions"`
}

// Export is a printable rendering of a session.
type Export struct {
	Filename string
	Body     string
}

// Render produces the plain-text export:
//
//	Around The Table
//	Sunday, March 2, 2025 6:00 PM
//
//	Group 1:
//	- Ross
//	- Chen
func (v *View) Render(loc *time.Location) Export {
	if loc == nil {
		loc = time.UTC
	}
	created := v.CreatedAt.In(loc)

	var b strings.Builder
	b.WriteString("Around The Table\n")
	b.WriteString(created.Format("Monday, January 2, 2006 3:04 PM"))
	b.WriteString("\n")
	for i, group := range v.Groups {
		fmt.Fprintf(&b, "\nGroup %d:\n", i+1)
		for _, m := range group {
			fmt.Fprintf(&b, "- %s\n", m.Name)
		}
	}
	return Export{
		Filename: "Around-The-Table-" + created.Format("2006-01-02") + ".txt",
		Body:     b.String(),
	}
}
