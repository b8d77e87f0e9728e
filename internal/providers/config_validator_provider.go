package providers

import (
	"fmt"
	"handsoff/internal/structures"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}
	if th := cv.conf.Alert.ConfidenceThreshold; th < 0 || th > 1 {
		return fmt.Errorf("invalid config: alert.confidenceThreshold %v is outside [0, 1]", th)
	}
	return nil
}
