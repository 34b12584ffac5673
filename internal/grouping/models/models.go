package models

import (
	"time"

	"aroundtable/internal/pairing"
	id "aroundtable/pkg/domain"
	dErrors "aroundtable/pkg/domain-errors"
)

// Draft is a generated grouping the organizer can still rearrange. It becomes
// a session only when saved, and expires otherwise.
type Draft struct {
	ID        id.DraftID     `json:"id"`
	GroupSize int            `json:"group_size"`
	Groups    pairing.Groups `json:"groups"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// IsExpired reports whether the draft is past its expiry at now.
func (d *Draft) IsExpired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// Move takes familyID out of its group and inserts it into group toGroup at
// index. index is clamped to the target group's bounds. Groups left empty are
// pruned afterwards.
func (d *Draft) Move(familyID id.FamilyID, toGroup, index int) error {
	if toGroup < 0 || toGroup >= len(d.Groups) {
		return dErrors.New(dErrors.CodeInvariantViolation, "target group does not exist")
	}
	from, pos := d.locate(familyID)
	if from < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "family is not part of this grouping")
	}

	src := d.Groups[from]
	d.Groups[from] = append(src[:pos:pos], src[pos+1:]...)

	dst := d.Groups[toGroup]
	index = max(0, min(index, len(dst)))
	moved := make(pairing.Group, 0, len(dst)+1)
	moved = append(moved, dst[:index]...)
	moved = append(moved, familyID)
	moved = append(moved, dst[index:]...)
	d.Groups[toGroup] = moved

	d.prune()
	return nil
}

// AddGroup appends an empty group for members to be moved into.
func (d *Draft) AddGroup() {
	d.Groups = append(d.Groups, pairing.Group{})
}

// NonEmpty returns the groups that have members.
func (d *Draft) NonEmpty() pairing.Groups {
	out := make(pairing.Groups, 0, len(d.Groups))
	for _, g := range d.Groups {
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	return out
}

func (d *Draft) locate(familyID id.FamilyID) (group, pos int) {
	for g, members := range d.Groups {
		for p, member := range members {
			if member == familyID {
				return g, p
			}
		}
	}
	return -1, -1
}

func (d *Draft) prune() {
	d.Groups = d.NonEmpty()
}

// GenerateRequest asks for a new draft. An empty Attending list means the
// whole roster; a zero GroupSize means the configured default.
type GenerateRequest struct {
	GroupSize int           `json:"group_size"`
	Attending []id.FamilyID `json:"attending"`
}

// MoveRequest relocates one family inside a draft.
type MoveRequest struct {
	FamilyID id.FamilyID `json:"family_id"`
	ToGroup  int         `json:"to_group"`
	Index    int         `json:"index"`
}

// Member is a family as displayed inside a draft.
type Member struct {
	ID   id.FamilyID `json:"id"`
	Name string      `json:"name"`
}

// DraftResponse is a draft with names resolved and its repeat-pair score.
type DraftResponse struct {
	ID          id.DraftID `json:"id"`
	GroupSize   int        `json:"group_size"`
	Groups      [][]Member `json:"groups"`
	RepeatScore int        `json:"repeat_score"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// DraftView pairs a draft with the context needed to render it.
type DraftView struct {
	Draft       *Draft
	Names       map[id.FamilyID]string
	RepeatScore int
}

// ToResponse renders a view for the transport layer.
func ToResponse(v *DraftView) *DraftResponse {
	groups := make([][]Member, len(v.Draft.Groups))
	for i, group := range v.Draft.Groups {
		members := make([]Member, len(group))
		for j, familyID := range group {
			members[j] = Member{ID: familyID, Name: v.Names[familyID]}
		}
		groups[i] = members
	}
	return &DraftResponse{
		ID:          v.Draft.ID,
		GroupSize:   v.Draft.GroupSize,
		Groups:      groups,
		RepeatScore: v.RepeatScore,
		CreatedAt:   v.Draft.CreatedAt,
		ExpiresAt:   v.Draft.ExpiresAt,
	}
}

// SavedResponse identifies the session a draft became.
type SavedResponse struct {
	SessionID id.SessionID `json:"session_id"`
	CreatedAt time.Time    `json:"created_at"`
}
