package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/catherinevee/importmgr/pkg/models"
)

// DefaultDiagramBuilder renders the discovered inventory as a flat
// graph: one node per resource, synthetic VPC container nodes, and
// membership edges from networked resources to their VPC.
type DefaultDiagramBuilder struct{}

// Build produces a deterministic diagram for the resource set. Node
// order follows the (already sorted) resource slice; VPC nodes are
// appended in lexical order.
func (DefaultDiagramBuilder) Build(resources []models.DiscoveredResource) models.DiagramData {
	data := models.DiagramData{GeneratedAt: time.Now()}
	vpcs := map[string]bool{}

	for _, r := range resources {
		node := models.DiagramNode{
			ID:      r.Key(),
			Label:   nodeLabel(r),
			Service: r.Service,
		}
		if vpcID := detailString(r, "vpc_id"); vpcID != "" {
			node.Group = vpcID
			vpcs[vpcID] = true
			data.Edges = append(data.Edges, models.DiagramEdge{
				From: node.ID,
				To:   "vpc/" + vpcID,
				Type: "member_of",
			})
		}
		data.Nodes = append(data.Nodes, node)
	}

	vpcIDs := make([]string, 0, len(vpcs))
	for id := range vpcs {
		vpcIDs = append(vpcIDs, id)
	}
	sort.Strings(vpcIDs)
	for _, id := range vpcIDs {
		data.Nodes = append(data.Nodes, models.DiagramNode{
			ID:      "vpc/" + id,
			Label:   id,
			Service: "vpc",
		})
	}
	return data
}

func nodeLabel(r models.DiscoveredResource) string {
	if name, ok := r.Tags["Name"]; ok && name != "" {
		return fmt.Sprintf("%s (%s)", name, r.ID)
	}
	return r.ID
}

func detailString(r models.DiscoveredResource, key string) string {
	if r.Details == nil {
		return ""
	}
	if v, ok := r.Details[key].(string); ok {
		return v
	}
	return ""
}
