// Package normalize strips environment-specific metadata from workflow
// definitions so that two environments' copies of the same workflow can be
// compared, hashed and diffed independently of where they live.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dukex/stagehand/pkg/models"
)

// NormalizedNode is a node reduced to the fields that represent a real
// change: identifiers, UI positions and per-node execution metadata are
// gone, and credential references keep only their names.
type NormalizedNode struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	TypeVersion float64           `json:"type_version,omitempty"`
	Parameters  map[string]any    `json:"parameters,omitempty"`
	Credentials map[string]string `json:"credentials,omitempty"`
	Disabled    bool              `json:"disabled,omitempty"`
}

// NormalizedWorkflow is a workflow with everything environment-specific
// removed. Nodes are sorted by name so comparison is order-independent.
type NormalizedWorkflow struct {
	Name        string           `json:"name"`
	Nodes       []NormalizedNode `json:"nodes"`
	Connections map[string]any   `json:"connections,omitempty"`
	Settings    map[string]any   `json:"settings,omitempty"`
	TagNames    []string         `json:"tag_names,omitempty"`
}

// Normalize reduces a workflow to its environment-independent form.
// Stripped: ids, timestamps, version/trigger counters, active state,
// sharing metadata, tag ids, pin data, node positions, webhook ids and
// credential ids.
func Normalize(workflow *models.Workflow) NormalizedWorkflow {
	nodes := make([]NormalizedNode, 0, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		normalized := NormalizedNode{
			Name:        node.Name,
			Type:        node.Type,
			TypeVersion: node.TypeVersion,
			Parameters:  node.Parameters,
			Disabled:    node.Disabled,
		}

		if len(node.Credentials) > 0 {
			normalized.Credentials = make(map[string]string, len(node.Credentials))
			for credentialType, ref := range node.Credentials {
				normalized.Credentials[credentialType] = ref.Name
			}
		}

		nodes = append(nodes, normalized)
	}

	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Name < nodes[j].Name
	})

	tagNames := make([]string, 0, len(workflow.Tags))
	for _, tag := range workflow.Tags {
		tagNames = append(tagNames, tag.Name)
	}

	sort.Strings(tagNames)

	return NormalizedWorkflow{
		Name:        workflow.Name,
		Nodes:       nodes,
		Connections: workflow.Connections,
		Settings:    workflow.Settings,
		TagNames:    tagNames,
	}
}

// ContentHash returns the SHA-256 over the canonical JSON encoding of the
// normalized workflow. It is the sole idempotency key of a promotion: two
// workflows with the same hash are the same workflow, regardless of
// surface identifiers. encoding/json emits map keys in sorted order, which
// keeps the encoding canonical.
func ContentHash(workflow *models.Workflow) (string, error) {
	normalized := Normalize(workflow)

	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("failed to encode normalized workflow %q: %w", workflow.Name, err)
	}

	sum := sha256.Sum256(payload)

	return hex.EncodeToString(sum[:]), nil
}

// Equal reports whether two workflows have identical normalized content.
func Equal(a, b *models.Workflow) (bool, error) {
	hashA, err := ContentHash(a)
	if err != nil {
		return false, err
	}

	hashB, err := ContentHash(b)
	if err != nil {
		return false, err
	}

	return hashA == hashB, nil
}
