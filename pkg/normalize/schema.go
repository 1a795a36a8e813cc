package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// workflowSchema is the shape every workflow document must satisfy before
// it enters the promotion pipeline. Runtimes and the version-controlled
// store both hand back untyped JSON; this is the boundary that turns it
// into a validated models.Workflow.
const workflowSchema = `{
	"type": "object",
	"required": ["name", "nodes", "connections"],
	"properties": {
		"id": {"type": "string"},
		"name": {"type": "string", "minLength": 1},
		"active": {"type": "boolean"},
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "type"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"type": {"type": "string", "minLength": 1},
					"credentials": {
						"type": "object",
						"additionalProperties": {
							"type": "object",
							"required": ["name"]
						}
					}
				}
			}
		},
		"connections": {"type": "object"}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(workflowSchema)

// ParseWorkflow validates a raw workflow document against the workflow
// schema and decodes it.
func ParseWorkflow(data []byte) (*models.Workflow, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to validate workflow document: %w", err)
	}

	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, issue := range result.Errors() {
			issues = append(issues, issue.String())
		}

		return nil, fmt.Errorf("workflow document is invalid: %v", issues)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow document: %w", err)
	}

	return &workflow, nil
}
