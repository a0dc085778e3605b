package pipeline

import (
	"github.com/researchcanvas/canvasd/internal/domain"
)

// Canvas layout constants. Cards are placed on a fixed grid; groups
// stack vertically with ungrouped artifacts in a final block below.
const (
	gridCols    = 4
	cardWidth   = 320.0
	cardHeight  = 240.0
	cardGap     = 40.0
	groupHeader = 60.0
)

var groupPalette = []string{
	"#6366f1", "#8b5cf6", "#ec4899", "#f59e0b", "#10b981", "#3b82f6",
}

// computeLayout assigns canvas positions to artifacts and materializes
// the proposed groups. Proposals referencing unknown artifact ids lose
// those members silently; a proposal with no surviving members
// produces no group. Artifacts not claimed by any group are laid out
// in a trailing ungrouped block. Artifact order is preserved.
func computeLayout(artifacts []domain.Artifact, proposals []domain.GroupProposal, projectID, phase string) ([]domain.Artifact, []domain.Group) {
	byID := make(map[string]int, len(artifacts))
	for i, a := range artifacts {
		byID[a.ID] = i
	}

	grouped := make(map[string]bool, len(artifacts))
	groups := make([]domain.Group, 0, len(proposals))
	yOffset := 0.0

	for pi, proposal := range proposals {
		var members []int
		for _, id := range proposal.ArtifactIDs {
			idx, ok := byID[id]
			if !ok || grouped[id] {
				continue
			}
			members = append(members, idx)
			grouped[id] = true
		}
		if len(members) == 0 {
			continue
		}

		color := proposal.Color
		if color == "" {
			color = groupPalette[pi%len(groupPalette)]
		}

		cols := gridCols
		if len(members) < cols {
			cols = len(members)
		}
		rows := (len(members) + cols - 1) / cols

		group := domain.Group{
			ID:        domain.NewGroupID(),
			ProjectID: projectID,
			Phase:     phase,
			Title:     proposal.Title,
			Color:     color,
			PositionX: 0,
			PositionY: yOffset,
			Width:     float64(cols)*(cardWidth+cardGap) + cardGap,
			Height:    groupHeader + float64(rows)*(cardHeight+cardGap) + cardGap,
		}
		groups = append(groups, group)

		for n, idx := range members {
			col := n % cols
			row := n / cols
			artifacts[idx].GroupID = group.ID
			artifacts[idx].PositionX = group.PositionX + cardGap + float64(col)*(cardWidth+cardGap)
			artifacts[idx].PositionY = group.PositionY + groupHeader + cardGap + float64(row)*(cardHeight+cardGap)
		}

		yOffset += group.Height + cardGap
	}

	// Ungrouped block.
	n := 0
	for i := range artifacts {
		if grouped[artifacts[i].ID] {
			continue
		}
		col := n % gridCols
		row := n / gridCols
		artifacts[i].PositionX = cardGap + float64(col)*(cardWidth+cardGap)
		artifacts[i].PositionY = yOffset + cardGap + float64(row)*(cardHeight+cardGap)
		n++
	}

	return artifacts, groups
}
