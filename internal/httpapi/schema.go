package httpapi

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dmitrijs2005/bkashgate/internal/common"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	schemaCreatePayment = "create_payment"
	schemaRefundPayment = "refund_payment"
)

// contracts holds the compiled request schemas by name.
type contracts map[string]*gojsonschema.Schema

func loadContracts() (contracts, error) {
	out := contracts{}
	for _, name := range []string{schemaCreatePayment, schemaRefundPayment} {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, err
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("error loading or compiling schema %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// validate checks body against the named schema. A violation is reported as
// common.ErrorValidation with every failed rule.
func (c contracts) validate(name string, body []byte) error {
	result, err := c[name].Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", common.ErrorValidation, err)
	}
	if result.Valid() {
		return nil
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("%w: %s", common.ErrorValidation, strings.Join(errs, "; "))
}
