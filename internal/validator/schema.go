package validator

import (
	"fmt"
	"strings"
	"sync"

	xsdvalidate "github.com/terminalstatic/go-xsd-validate"
)

var (
	xsdInit    sync.Once
	xsdInitErr error
)

// validateSchema validates data against the XSD at path. Schema violations
// are returned as messages; err is set only when the schema itself cannot
// be used.
func validateSchema(path string, data []byte) ([]string, error) {
	xsdInit.Do(func() {
		xsdInitErr = xsdvalidate.Init()
	})
	if xsdInitErr != nil {
		return nil, fmt.Errorf("error initialising libxml2: %w", xsdInitErr)
	}

	handler, err := xsdvalidate.NewXsdHandlerUrl(path, xsdvalidate.ParsErrDefault)
	if err != nil {
		return nil, fmt.Errorf("error loading schema %s: %w", path, err)
	}
	defer handler.Free()

	err = handler.ValidateMem(data, xsdvalidate.ValidErrDefault)
	switch e := err.(type) {
	case nil:
		return nil, nil
	case xsdvalidate.ValidationError:
		problems := make([]string, 0, len(e.Errors))
		for _, se := range e.Errors {
			problems = append(problems, fmt.Sprintf("line %d: %s", se.Line, strings.TrimSpace(se.Message)))
		}
		return problems, nil
	default:
		return []string{strings.TrimSpace(err.Error())}, nil
	}
}
