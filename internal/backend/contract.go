package backend

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var contractDoc []byte

var (
	defaultContract     *Contract
	defaultContractErr  error
	defaultContractOnce sync.Once
)

// Contract validates backend response bodies against an OpenAPI document.
type Contract struct {
	doc *openapi3.T
}

// LoadContract parses and validates an OpenAPI document.
func LoadContract(data []byte) (*Contract, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI contract: %w", err)
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI contract: %w", err)
	}

	return &Contract{doc: doc}, nil
}

// DefaultContract returns the embedded contract of the story video backend.
func DefaultContract() (*Contract, error) {
	defaultContractOnce.Do(func() {
		defaultContract, defaultContractErr = LoadContract(contractDoc)
	})
	return defaultContract, defaultContractErr
}

// ValidateResponse checks a successful JSON body for method and path. Paths
// the document does not describe are accepted.
func (c *Contract) ValidateResponse(method, path string, body []byte) error {
	pathItem := c.doc.Paths.Find(path)
	if pathItem == nil {
		return nil
	}
	op := pathItem.GetOperation(strings.ToUpper(method))
	if op == nil || op.Responses == nil {
		return nil
	}

	ref := op.Responses.Status(http.StatusOK)
	if ref == nil || ref.Value == nil {
		return nil
	}
	media := ref.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}

	if err := media.Schema.Value.VisitJSON(value); err != nil {
		return fmt.Errorf("%s %s response violates contract: %w", method, path, err)
	}
	return nil
}

// Endpoints lists "METHOD /path" for every operation in the document.
func (c *Contract) Endpoints() []string {
	var out []string
	for path, item := range c.doc.Paths.Map() {
		for method := range item.Operations() {
			out = append(out, method+" "+path)
		}
	}
	sort.Strings(out)
	return out
}
