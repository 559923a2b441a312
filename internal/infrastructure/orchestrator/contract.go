package orchestrator

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

//go:embed openapi.yaml
var contractYAML []byte

const orchestrationRequestSchema = "OrchestrationRequest"

// Contract checks outgoing payloads against the embedded OpenAPI document so
// a malformed request never reaches the decision service.
type Contract struct {
	doc     *openapi3.T
	request *openapi3.Schema
}

func LoadContract() (*Contract, error) {
	return loadContract(contractYAML)
}

func loadContract(data []byte) (*Contract, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("load orchestration contract: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate orchestration contract: %w", err)
	}

	if doc.Components == nil {
		return nil, fmt.Errorf("orchestration contract has no components")
	}
	ref, ok := doc.Components.Schemas[orchestrationRequestSchema]
	if !ok || ref.Value == nil {
		return nil, fmt.Errorf("orchestration contract has no %s schema", orchestrationRequestSchema)
	}
	return &Contract{doc: doc, request: ref.Value}, nil
}

func (c *Contract) Version() string {
	if c == nil || c.doc.Info == nil {
		return ""
	}
	return c.doc.Info.Version
}

// ValidateRequest reports every contract violation of req at once.
func (c *Contract) ValidateRequest(req domain.OrchestrationRequest) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal orchestration request: %w", err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("reload orchestration request: %w", err)
	}
	if err := c.request.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		return &ContractError{Err: err}
	}
	return nil
}
