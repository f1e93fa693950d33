package trajectory

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// NodeKind distinguishes synthetic creator nodes from recorded hand-offs.
type NodeKind string

const (
	NodeCreator NodeKind = "CREATOR"
	NodeHandoff NodeKind = "HANDOFF"
)

// DedupPolicy selects how repeated holders are collapsed.
type DedupPolicy int

const (
	// DedupLegacy reverses document order and drops an entry whose holder equals the next
	// element's holder. The final element is always kept, so with newest-first input the
	// earlier entry of a duplicate pair is the one removed.
	DedupLegacy DedupPolicy = iota
	// DedupStrict guarantees no two adjacent nodes of the sorted output share a holder,
	// keeping the earliest node of each run.
	DedupStrict
)

// Node is one display-ready step of a grievance trajectory.
type Node struct {
	Kind        NodeKind  `json:"kind"`
	EntryID     string    `json:"entryId,omitempty"`
	UserCode    string    `json:"userCode"`
	UserDetails string    `json:"userDetails,omitempty"`
	GroupID     string    `json:"groupId,omitempty"`
	UnitID      string    `json:"unitId,omitempty"`
	Department  string    `json:"department,omitempty"`
	StatusID    int       `json:"statusId,omitempty"`
	Round       int       `json:"round,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	CreatedDate time.Time `json:"createdDate"`
	Color       string    `json:"color,omitempty"`

	seq int
}

// Creator identifies who filed the grievance.
type Creator struct {
	UserCode    string
	UserDetails string
}

// Projector derives trajectories from raw history feeds.
type Projector struct {
	policy DedupPolicy
}

// NewProjector builds a projector with the given de-duplication policy.
func NewProjector(policy DedupPolicy) *Projector {
	return &Projector{policy: policy}
}

// Project turns history entries, in the order the backend returned them, into an ordered
// trajectory. It never mutates entries and is deterministic for a given input.
func (p *Projector) Project(entries []domain.HistoryEntry, creator Creator) []Node {
	nodes := make([]Node, 0, len(entries)+1)
	for _, entry := range entries {
		if len(entry.ChangeList) == 0 {
			continue
		}
		node := nodeFromEntry(entry)
		if change, ok := entry.Change(domain.FieldRound); ok {
			nodes = append(nodes, Node{
				Kind:        NodeCreator,
				EntryID:     entry.ID,
				UserCode:    creator.UserCode,
				UserDetails: creator.UserDetails,
				Round:       atoi(change.NewValue),
				CreatedDate: node.CreatedDate,
			})
		}
		nodes = append(nodes, node)
	}
	for i := range nodes {
		nodes[i].seq = i
	}

	if p.policy == DedupLegacy {
		nodes = dedupLegacy(nodes)
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].CreatedDate.Equal(nodes[j].CreatedDate) {
			return nodes[i].seq < nodes[j].seq
		}
		return nodes[i].CreatedDate.Before(nodes[j].CreatedDate)
	})

	if p.policy == DedupStrict {
		nodes = dedupStrict(nodes)
	}
	return nodes
}

func dedupLegacy(nodes []Node) []Node {
	reversed := make([]Node, len(nodes))
	for i, n := range nodes {
		reversed[len(nodes)-1-i] = n
	}
	kept := make([]Node, 0, len(reversed))
	for i, n := range reversed {
		if i == len(reversed)-1 || n.UserCode != reversed[i+1].UserCode {
			kept = append(kept, n)
		}
	}
	return kept
}

func dedupStrict(sorted []Node) []Node {
	kept := make([]Node, 0, len(sorted))
	for _, n := range sorted {
		if len(kept) > 0 && kept[len(kept)-1].UserCode == n.UserCode {
			continue
		}
		kept = append(kept, n)
	}
	return kept
}

func nodeFromEntry(entry domain.HistoryEntry) Node {
	node := Node{Kind: NodeHandoff, EntryID: entry.ID}
	if c, ok := entry.Change(domain.FieldAssignedUserCode); ok {
		node.UserCode = c.NewValue
	}
	if c, ok := entry.Change(domain.FieldAssignedUserDetails); ok {
		node.UserDetails = c.NewValue
	}
	if c, ok := entry.Change(domain.FieldTGroupID); ok {
		node.GroupID = c.NewValue
	}
	if c, ok := entry.Change(domain.FieldTUnitID); ok {
		node.UnitID = c.NewValue
	}
	if c, ok := entry.Change(domain.FieldTDepartment); ok {
		node.Department = c.NewValue
	}
	if c, ok := entry.Change(domain.FieldStatusID); ok {
		node.StatusID = atoi(c.NewValue)
	}
	if c, ok := entry.Change(domain.FieldRound); ok {
		node.Round = atoi(c.NewValue)
	}
	if c, ok := entry.Change(domain.FieldCommentText); ok {
		node.Comment = c.NewValue
	}
	node.CreatedDate = createdDate(entry)
	return node
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// createdDate reads the CreatedDate change; entries without a parseable one sort at epoch 0.
func createdDate(entry domain.HistoryEntry) time.Time {
	c, ok := entry.Change(domain.FieldCreatedDate)
	if !ok {
		return time.Unix(0, 0).UTC()
	}
	value := strings.TrimSpace(c.NewValue)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Unix(0, 0).UTC()
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
